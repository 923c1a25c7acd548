package entities

import "time"

type Garden struct {
	GardenID      uint     `gorm:"primaryKey" json:"garden_id"`
	Code          string   `gorm:"uniqueIndex;size:16" json:"code"`
	Name          string   `json:"name"`
	Beds          int      `json:"beds"`
	SubBedsPerBed int      `json:"sub_beds_per_bed"`
	BedLengthM    float64  `json:"bed_length_m"`
	BedWidthM     float64  `json:"bed_width_m"`
	SubBeds       []SubBed `gorm:"foreignKey:GardenID;references:GardenID" json:"sub_beds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubBed is one planting slot. Reserve slots are kept out of generation.
type SubBed struct {
	SubBedID  uint `gorm:"primaryKey" json:"sub_bed_id"`
	GardenID  uint `gorm:"uniqueIndex:idx_sub_bed_slot" json:"garden_id"`
	BedNumber int  `gorm:"uniqueIndex:idx_sub_bed_slot" json:"bed_number"`
	Position  int  `gorm:"uniqueIndex:idx_sub_bed_slot" json:"position"`
	IsReserve bool `json:"is_reserve"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
