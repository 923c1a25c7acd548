package service

import "github.com/hbiaou/crop-rotation/pkg/rotation"

type CropShare struct {
	CropID     uint    `json:"crop_id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

type CategoryShare struct {
	Category   string      `json:"category"`
	Percentage float64     `json:"percentage"`
	Crops      []CropShare `json:"crops"`
	// CropTotal is the sum of crop percentages; 0 means an equal split.
	CropTotal float64 `json:"crop_total"`
}

type Distribution struct {
	GardenID   uint            `json:"garden_id"`
	Categories []CategoryShare `json:"categories"`
	Total      float64         `json:"total"`
}

// UpdateRequest replaces a garden's targets. Crop percentages are keyed by
// crop ID and apply within the crop's category.
type UpdateRequest struct {
	Categories map[string]float64 `json:"categories" validate:"required,min=1"`
	Crops      map[uint]float64   `json:"crops"`
}

type DistributionService interface {
	Get(gardenID uint) (*Distribution, error)
	Update(gardenID uint, req UpdateRequest) (*Distribution, error)
	// ResetEqual gives every category of the rotation the same share.
	ResetEqual(gardenID uint) error
	// EngineTargets returns the targets in the form the distributor takes.
	EngineTargets(gardenID uint) (rotation.Targets, error)
}
