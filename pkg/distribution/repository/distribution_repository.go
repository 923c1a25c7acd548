package repository

import "github.com/hbiaou/crop-rotation/entities"

type DistributionRepository interface {
	CategoryTargets(gardenID uint) ([]entities.CategoryTarget, error)
	CropTargets(gardenID uint) ([]entities.CropTarget, error)
	// Replace swaps every target of the garden in one transaction.
	Replace(gardenID uint, categories []entities.CategoryTarget, crops []entities.CropTarget) error
}
