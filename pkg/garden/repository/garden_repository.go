package repository

import "github.com/hbiaou/crop-rotation/entities"

type GardenRepository interface {
	List() ([]entities.Garden, error)
	FindByID(id uint) (*entities.Garden, error)
	FindByCode(code string) (*entities.Garden, error)
	Create(g *entities.Garden) error
	// SubBeds returns the garden's sub-beds ordered by bed then position.
	SubBeds(gardenID uint, activeOnly bool) ([]entities.SubBed, error)
	CountSubBeds(gardenID uint) (total, reserve int64, err error)
}
