package service

import (
	"context"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/rotation"
)

type GenerateOptions struct {
	// Cycle defaults to the cycle after the garden's latest one, or the
	// current cycle for a garden without history.
	Cycle string `json:"cycle"`
	// StartOffset pins the start category; nil draws it at random.
	StartOffset *int `json:"start_offset"`
}

type OverrideInput struct {
	Category string `json:"category"`
	CropID   *uint  `json:"crop_id"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type BootstrapEntry struct {
	SubBedID uint   `json:"sub_bed_id" validate:"required"`
	Category string `json:"category"`
	CropID   *uint  `json:"crop_id"`
}

type BootstrapRequest struct {
	Cycle   string           `json:"cycle"`
	Entries []BootstrapEntry `json:"entries" validate:"required,min=1,dive"`
}

// Result is a stored cycle with its plans in garden order.
type Result struct {
	Run            *entities.CycleRun        `json:"run"`
	Plans          []entities.CyclePlan      `json:"plans"`
	Primaries      []rotation.BedPrimary     `json:"primaries,omitempty"`
	CategoryCounts map[rotation.Category]int `json:"category_counts,omitempty"`
}

// Preview is an engine run that was not stored.
type Preview struct {
	Cycle string         `json:"cycle"`
	Plan  *rotation.Plan `json:"plan"`
}

type CycleService interface {
	Generate(ctx context.Context, gardenID uint, opts GenerateOptions) (*Result, error)
	Preview(ctx context.Context, gardenID uint, opts GenerateOptions) (*Preview, error)
	Undo(ctx context.Context, gardenID uint) (*entities.CycleRun, error)
	Finalize(ctx context.Context, gardenID uint, cycle string) (*entities.CycleRun, error)
	Override(ctx context.Context, planID uint, in OverrideInput) (*entities.CyclePlan, error)
	Bootstrap(ctx context.Context, gardenID uint, req BootstrapRequest) (*Result, error)
	// ProposeBootstrap returns a filled-in bootstrap request for review. It
	// stores nothing.
	ProposeBootstrap(ctx context.Context, gardenID uint) (*BootstrapRequest, error)

	Get(gardenID uint, cycle string) (*Result, error)
	List(gardenID uint) ([]entities.CycleRun, error)
}
