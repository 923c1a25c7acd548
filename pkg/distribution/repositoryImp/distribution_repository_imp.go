package repositoryImp

import (
	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/distribution/repository"
)

type distRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.DistributionRepository { return &distRepo{db} }

func (r *distRepo) CategoryTargets(gardenID uint) ([]entities.CategoryTarget, error) {
	var out []entities.CategoryTarget
	if err := r.db.Where("garden_id = ?", gardenID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *distRepo) CropTargets(gardenID uint) ([]entities.CropTarget, error) {
	var out []entities.CropTarget
	if err := r.db.Where("garden_id = ?", gardenID).Order("crop_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *distRepo) Replace(gardenID uint, categories []entities.CategoryTarget, crops []entities.CropTarget) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("garden_id = ?", gardenID).Delete(&entities.CategoryTarget{}).Error; err != nil {
			return err
		}
		if err := tx.Where("garden_id = ?", gardenID).Delete(&entities.CropTarget{}).Error; err != nil {
			return err
		}
		for i := range categories {
			categories[i].ID = 0
			categories[i].GardenID = gardenID
		}
		for i := range crops {
			crops[i].ID = 0
			crops[i].GardenID = gardenID
		}
		if len(categories) > 0 {
			if err := tx.Create(&categories).Error; err != nil {
				return err
			}
		}
		if len(crops) > 0 {
			if err := tx.Create(&crops).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
