package service

import (
	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/entities"
)

type CreateGardenRequest struct {
	Code          string             `json:"code" validate:"required,max=16"`
	Name          string             `json:"name" validate:"required"`
	Beds          int                `json:"beds" validate:"required,min=1,max=500"`
	SubBedsPerBed int                `json:"sub_beds_per_bed" validate:"required,min=1,max=20"`
	BedLengthM    float64            `json:"bed_length_m" validate:"gte=0"`
	BedWidthM     float64            `json:"bed_width_m" validate:"gte=0"`
	Reserve       []database.SlotRef `json:"reserve"`
}

type CropCount struct {
	CropID uint   `json:"crop_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

type CategoryStats struct {
	Category string      `json:"category"`
	SubBeds  int         `json:"sub_beds"`
	Crops    []CropCount `json:"crops"`
}

// Stats describes the layout and the realized content of the latest cycle.
type Stats struct {
	Garden         entities.Garden `json:"garden"`
	TotalSubBeds   int64           `json:"total_sub_beds"`
	ActiveSubBeds  int64           `json:"active_sub_beds"`
	ReserveSubBeds int64           `json:"reserve_sub_beds"`
	LatestCycle    string          `json:"latest_cycle,omitempty"`
	Finalized      bool            `json:"finalized"`
	Categories     []CategoryStats `json:"categories"`
}

// GardenSummary is one garden's line in the global statistics.
type GardenSummary struct {
	GardenID       uint   `json:"garden_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Beds           int    `json:"beds"`
	TotalSubBeds   int64  `json:"total_sub_beds"`
	ActiveSubBeds  int64  `json:"active_sub_beds"`
	ReserveSubBeds int64  `json:"reserve_sub_beds"`
	LatestCycle    string `json:"latest_cycle,omitempty"`
}

// GlobalStats adds up every garden. Category counts cover the latest cycle of
// each garden.
type GlobalStats struct {
	TotalGardens   int             `json:"total_gardens"`
	Gardens        []GardenSummary `json:"gardens"`
	TotalBeds      int             `json:"total_beds"`
	TotalSubBeds   int64           `json:"total_sub_beds"`
	ActiveSubBeds  int64           `json:"active_sub_beds"`
	ReserveSubBeds int64           `json:"reserve_sub_beds"`
	Categories     []CategoryStats `json:"categories"`
}

type GardenService interface {
	List() ([]entities.Garden, error)
	Get(id uint) (*entities.Garden, error)
	Create(req CreateGardenRequest) (*entities.Garden, error)
	Stats(id uint) (*Stats, error)
	GlobalStats() (*GlobalStats, error)
}
