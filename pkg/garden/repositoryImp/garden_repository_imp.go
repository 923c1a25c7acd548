package repositoryImp

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/garden/repository"
)

type gardenRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.GardenRepository { return &gardenRepo{db} }

func (r *gardenRepo) List() ([]entities.Garden, error) {
	var out []entities.Garden
	if err := r.db.Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gardenRepo) FindByID(id uint) (*entities.Garden, error) {
	var g entities.Garden
	if err := r.db.First(&g, "garden_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *gardenRepo) FindByCode(code string) (*entities.Garden, error) {
	var g entities.Garden
	if err := r.db.First(&g, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// Create inserts the garden together with its sub-beds.
func (r *gardenRepo) Create(g *entities.Garden) error { return r.db.Create(g).Error }

func (r *gardenRepo) SubBeds(gardenID uint, activeOnly bool) ([]entities.SubBed, error) {
	var out []entities.SubBed
	q := r.db.Where("garden_id = ?", gardenID)
	if activeOnly {
		q = q.Where("is_reserve = ?", false)
	}
	if err := q.Order("bed_number ASC, position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gardenRepo) CountSubBeds(gardenID uint) (int64, int64, error) {
	var total, reserve int64
	if err := r.db.Model(&entities.SubBed{}).Where("garden_id = ?", gardenID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.Model(&entities.SubBed{}).Where("garden_id = ? AND is_reserve = ?", gardenID, true).Count(&reserve).Error; err != nil {
		return 0, 0, err
	}
	return total, reserve, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrGardenNotFound
	}
	return err
}
