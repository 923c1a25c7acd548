package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "crop_rotation.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2, cfg.CyclesPerYear)
	assert.Equal(t, 5, cfg.LookbackDepth)
	assert.Empty(t, cfg.DefaultStartCategory)
	assert.True(t, cfg.SeedDefaults)
	assert.Equal(t, "exports", cfg.ExportDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("CYCLES_PER_YEAR", "4")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SEED_DEFAULTS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.CyclesPerYear)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.SeedDefaults)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("CYCLES_PER_YEAR", "6")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CYCLES_PER_YEAR", "2")
	t.Setenv("PORT", "http")
	_, err = Load()
	assert.Error(t, err)
}
