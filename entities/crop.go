package entities

type Crop struct {
	CropID   uint   `gorm:"primaryKey" json:"crop_id"`
	Name     string `gorm:"uniqueIndex;size:128" json:"name"`
	Category string `gorm:"index" json:"category"`
	Family   string `json:"family"`
	Species  string `json:"species"` // base species shared by varieties
}

// RotationStep is one position of the category sequence.
type RotationStep struct {
	Position int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Category string `gorm:"uniqueIndex" json:"category"`
}

type CategoryTarget struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	GardenID   uint    `gorm:"uniqueIndex:idx_category_target" json:"garden_id"`
	Category   string  `gorm:"uniqueIndex:idx_category_target" json:"category"`
	Percentage float64 `json:"percentage"`
}

type CropTarget struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	GardenID   uint    `gorm:"uniqueIndex:idx_crop_target" json:"garden_id"`
	CropID     uint    `gorm:"uniqueIndex:idx_crop_target" json:"crop_id"`
	Percentage float64 `json:"percentage"`
}
