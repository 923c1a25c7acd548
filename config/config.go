package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hbiaou/crop-rotation/pkg/logger"
)

type AppConfig struct {
	Port     string `mapstructure:"PORT" validate:"required,numeric"`
	DBPath   string `mapstructure:"DB_PATH" validate:"required"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`

	// Rotation settings
	CyclesPerYear        int    `mapstructure:"CYCLES_PER_YEAR" validate:"min=1,max=4"`
	LookbackDepth        int    `mapstructure:"LOOKBACK_DEPTH" validate:"min=1,max=20"`
	DefaultStartCategory string `mapstructure:"DEFAULT_START_CATEGORY"`
	SeedDefaults         bool   `mapstructure:"SEED_DEFAULTS"`

	ExportDir string `mapstructure:"EXPORT_DIR" validate:"required"`
}

// Load reads .env, then config.yaml if present, then the environment.
func Load() (*AppConfig, error) {
	log := logger.New().WithField("component", "config")

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DefaultStartCategory = strings.TrimSpace(cfg.DefaultStartCategory)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "crop_rotation.db")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("CYCLES_PER_YEAR", 2)
	v.SetDefault("LOOKBACK_DEPTH", 5)
	v.SetDefault("DEFAULT_START_CATEGORY", "")
	v.SetDefault("SEED_DEFAULTS", true)

	v.SetDefault("EXPORT_DIR", "exports")
}
