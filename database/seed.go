package database

import (
	_ "embed"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/logger"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const SettingCyclesPerYear = "cycles_per_year"

type SlotRef struct {
	Bed      int `yaml:"bed" json:"bed"`
	Position int `yaml:"position" json:"position"`
}

type GardenLayout struct {
	Code          string    `yaml:"code"`
	Name          string    `yaml:"name"`
	Beds          int       `yaml:"beds"`
	SubBedsPerBed int       `yaml:"sub_beds_per_bed"`
	BedLengthM    float64   `yaml:"bed_length_m"`
	BedWidthM     float64   `yaml:"bed_width_m"`
	Reserve       []SlotRef `yaml:"reserve"`
}

type CropSeed struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Family   string `yaml:"family"`
	Species  string `yaml:"species"`
}

// Defaults is the content of the embedded seed file.
type Defaults struct {
	Settings        map[string]string  `yaml:"settings"`
	Rotation        []string           `yaml:"rotation"`
	Crops           []CropSeed         `yaml:"crops"`
	Gardens         []GardenLayout     `yaml:"gardens"`
	CategoryTargets map[string]float64 `yaml:"category_targets"`
}

func LoadDefaults() (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return nil, fmt.Errorf("parse defaults: %w", err)
	}
	return &d, nil
}

// Seed fills empty tables with the defaults. Tables that already hold rows are
// left alone, so running it twice is harmless. cyclesPerYear overrides the
// seeded setting when positive.
func Seed(db *gorm.DB, cyclesPerYear int) error {
	d, err := LoadDefaults()
	if err != nil {
		return err
	}
	if cyclesPerYear > 0 {
		if d.Settings == nil {
			d.Settings = map[string]string{}
		}
		d.Settings[SettingCyclesPerYear] = strconv.Itoa(cyclesPerYear)
	}
	log := logger.New().WithField("component", "seed")

	return db.Transaction(func(tx *gorm.DB) error {
		if n, err := count(tx, &entities.Setting{}); err != nil {
			return err
		} else if n == 0 {
			for k, v := range d.Settings {
				if err := tx.Create(&entities.Setting{Key: k, Value: v}).Error; err != nil {
					return fmt.Errorf("seed setting %s: %w", k, err)
				}
			}
		}

		if n, err := count(tx, &entities.RotationStep{}); err != nil {
			return err
		} else if n == 0 {
			steps := make([]entities.RotationStep, len(d.Rotation))
			for i, c := range d.Rotation {
				steps[i] = entities.RotationStep{Position: i + 1, Category: c}
			}
			if err := tx.Create(&steps).Error; err != nil {
				return fmt.Errorf("seed rotation: %w", err)
			}
		}

		if n, err := count(tx, &entities.Crop{}); err != nil {
			return err
		} else if n == 0 {
			crops := make([]entities.Crop, len(d.Crops))
			for i, c := range d.Crops {
				crops[i] = entities.Crop{Name: c.Name, Category: c.Category, Family: c.Family, Species: c.Species}
			}
			if err := tx.Create(&crops).Error; err != nil {
				return fmt.Errorf("seed crops: %w", err)
			}
			log.Infof("seeded %d crops", len(crops))
		}

		if n, err := count(tx, &entities.Garden{}); err != nil {
			return err
		} else if n == 0 {
			for _, gs := range d.Gardens {
				g := BuildGarden(gs)
				if err := tx.Create(&g).Error; err != nil {
					return fmt.Errorf("seed garden %s: %w", gs.Code, err)
				}
				targets := make([]entities.CategoryTarget, 0, len(d.CategoryTargets))
				for _, c := range d.Rotation {
					if p, ok := d.CategoryTargets[c]; ok {
						targets = append(targets, entities.CategoryTarget{GardenID: g.GardenID, Category: c, Percentage: p})
					}
				}
				if len(targets) > 0 {
					if err := tx.Create(&targets).Error; err != nil {
						return fmt.Errorf("seed targets %s: %w", gs.Code, err)
					}
				}
				log.WithField("garden", g.Code).Infof("seeded garden with %d sub-beds", len(g.SubBeds))
			}
		}
		return nil
	})
}

// BuildGarden expands a layout into a garden with its sub-beds.
func BuildGarden(gs GardenLayout) entities.Garden {
	reserve := map[SlotRef]bool{}
	for _, r := range gs.Reserve {
		reserve[r] = true
	}
	g := entities.Garden{
		Code:          gs.Code,
		Name:          gs.Name,
		Beds:          gs.Beds,
		SubBedsPerBed: gs.SubBedsPerBed,
		BedLengthM:    gs.BedLengthM,
		BedWidthM:     gs.BedWidthM,
		SubBeds:       make([]entities.SubBed, 0, gs.Beds*gs.SubBedsPerBed),
	}
	for bed := 1; bed <= gs.Beds; bed++ {
		for pos := 1; pos <= gs.SubBedsPerBed; pos++ {
			g.SubBeds = append(g.SubBeds, entities.SubBed{
				BedNumber: bed,
				Position:  pos,
				IsReserve: reserve[SlotRef{Bed: bed, Position: pos}],
			})
		}
	}
	return g
}

func count(tx *gorm.DB, model any) (int64, error) {
	var n int64
	if err := tx.Model(model).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %T: %w", model, err)
	}
	return n, nil
}
