package repository

import "github.com/hbiaou/crop-rotation/entities"

type SettingRepository interface {
	All() ([]entities.Setting, error)
	// Get returns def when the key is not stored.
	Get(key, def string) (string, error)
	Set(key, value string) error
}
