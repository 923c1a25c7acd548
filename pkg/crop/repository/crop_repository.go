package repository

import "github.com/hbiaou/crop-rotation/entities"

type CropRepository interface {
	// List returns crops ordered by ID, optionally restricted to one category.
	List(category string) ([]entities.Crop, error)
	FindByID(id uint) (*entities.Crop, error)
	Create(c *entities.Crop) error
	// Upsert inserts crops by name and updates the ones that already exist.
	Upsert(crops []entities.Crop) (created, updated int, err error)
	CountByCategory() (map[string]int64, error)

	Sequence() ([]entities.RotationStep, error)
	ReplaceSequence(categories []string) error
}
