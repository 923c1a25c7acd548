package service

import (
	"context"
	"io"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/crop/importer"
)

type CreateCropRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Category string `json:"category" validate:"required"`
	Family   string `json:"family"`
	Species  string `json:"species"`
}

// CategoryGroup lists the crops of one category, in rotation order.
type CategoryGroup struct {
	Position int             `json:"position"`
	Category string          `json:"category"`
	Crops    []entities.Crop `json:"crops"`
}

type ImportReport struct {
	Created int                `json:"created"`
	Updated int                `json:"updated"`
	Skipped []importer.Skipped `json:"skipped,omitempty"`
}

type CropService interface {
	List(category string) ([]entities.Crop, error)
	Grouped() ([]CategoryGroup, error)
	Create(req CreateCropRequest) (*entities.Crop, error)
	Import(r io.Reader, format importer.Format) (*ImportReport, error)
	ImportURL(ctx context.Context, url string) (*ImportReport, error)

	Sequence() ([]entities.RotationStep, error)
	ReplaceSequence(categories []string) ([]entities.RotationStep, error)
}
