package repositoryImp

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/crop/repository"
)

type cropRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.CropRepository { return &cropRepo{db} }

func (r *cropRepo) List(category string) ([]entities.Crop, error) {
	var out []entities.Crop
	q := r.db.Model(&entities.Crop{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("crop_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cropRepo) FindByID(id uint) (*entities.Crop, error) {
	var c entities.Crop
	if err := r.db.First(&c, "crop_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrCropNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *cropRepo) Create(c *entities.Crop) error {
	if err := r.db.Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("crop %q already exists", c.Name)
		}
		return err
	}
	return nil
}

func (r *cropRepo) Upsert(crops []entities.Crop) (int, int, error) {
	created, updated := 0, 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range crops {
			c := crops[i]
			var existing entities.Crop
			err := tx.Where("name = ?", c.Name).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&c).Error; err != nil {
					return err
				}
				crops[i].CropID = c.CropID
				created++
			case err != nil:
				return err
			default:
				upd := map[string]any{"category": c.Category, "family": c.Family, "species": c.Species}
				if err := tx.Model(&existing).Updates(upd).Error; err != nil {
					return err
				}
				crops[i].CropID = existing.CropID
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (r *cropRepo) CountByCategory() (map[string]int64, error) {
	var rows []struct {
		Category string
		N        int64
	}
	if err := r.db.Model(&entities.Crop{}).Select("category, COUNT(*) AS n").Group("category").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Category] = row.N
	}
	return out, nil
}

func (r *cropRepo) Sequence() ([]entities.RotationStep, error) {
	var out []entities.RotationStep
	if err := r.db.Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cropRepo) ReplaceSequence(categories []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.RotationStep{}).Error; err != nil {
			return err
		}
		// targets of dropped categories would be refused by the engine
		stale := tx.Where("1 = 1")
		if len(categories) > 0 {
			stale = tx.Where("category NOT IN ?", categories)
		}
		if err := stale.Delete(&entities.CategoryTarget{}).Error; err != nil {
			return err
		}
		steps := make([]entities.RotationStep, len(categories))
		for i, c := range categories {
			steps[i] = entities.RotationStep{Position: i + 1, Category: c}
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
