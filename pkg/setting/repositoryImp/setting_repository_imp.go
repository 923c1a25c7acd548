package repositoryImp

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/setting/repository"
)

type settingRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.SettingRepository { return &settingRepo{db} }

func (r *settingRepo) All() ([]entities.Setting, error) {
	var out []entities.Setting
	if err := r.db.Order("`key` ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *settingRepo) Get(key, def string) (string, error) {
	var s entities.Setting
	err := r.db.First(&s, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

func (r *settingRepo) Set(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entities.Setting{Key: key, Value: value}).Error
}
