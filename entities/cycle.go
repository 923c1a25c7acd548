package entities

import "time"

const (
	RunSourceGenerated = "generated"
	RunSourceBootstrap = "bootstrap"
)

// CycleRun is one generated or bootstrapped cycle of a garden.
type CycleRun struct {
	RunID         uint       `gorm:"primaryKey" json:"run_id"`
	GardenID      uint       `gorm:"uniqueIndex:idx_run_garden_cycle" json:"garden_id"`
	Cycle         string     `gorm:"uniqueIndex:idx_run_garden_cycle;size:16" json:"cycle"`
	GenerationID  string     `gorm:"size:36" json:"generation_id"`
	Source        string     `gorm:"size:16" json:"source"` // generated|bootstrap
	StartCategory string     `json:"start_category"`
	StartOffset   int        `json:"start_offset"`
	Finalized     bool       `json:"finalized"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CyclePlan is the assignment of one sub-bed in one cycle. Actual values are
// what was really planted; they win over the plan in history.
type CyclePlan struct {
	PlanID          uint    `gorm:"primaryKey" json:"plan_id"`
	RunID           uint    `gorm:"index" json:"run_id"`
	GardenID        uint    `gorm:"index:idx_plan_garden_cycle" json:"garden_id"`
	Cycle           string  `gorm:"index:idx_plan_garden_cycle;uniqueIndex:idx_plan_sub_bed_cycle;size:16" json:"cycle"`
	SubBedID        uint    `gorm:"uniqueIndex:idx_plan_sub_bed_cycle" json:"sub_bed_id"`
	SubBed          SubBed  `json:"sub_bed"`
	PlannedCategory string  `json:"planned_category"`
	PlannedCropID   *uint   `json:"planned_crop_id"`
	ActualCategory  string  `json:"actual_category,omitempty"`
	ActualCropID    *uint   `json:"actual_crop_id,omitempty"`
	IsOverride      bool    `json:"is_override"`
	Notes           string  `json:"notes,omitempty"`
	Score           float64 `json:"score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RealizedCategory is the actual category when one was recorded.
func (p *CyclePlan) RealizedCategory() string {
	if p.ActualCategory != "" {
		return p.ActualCategory
	}
	return p.PlannedCategory
}

// RealizedCropID follows RealizedCategory: an actual category without a crop
// means the crop was left open.
func (p *CyclePlan) RealizedCropID() *uint {
	if p.ActualCategory != "" {
		return p.ActualCropID
	}
	return p.PlannedCropID
}
