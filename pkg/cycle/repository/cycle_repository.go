package repository

import (
	"time"

	"github.com/hbiaou/crop-rotation/entities"
)

type CycleRepository interface {
	LatestRun(gardenID uint) (*entities.CycleRun, error)
	FindRun(gardenID uint, cycle string) (*entities.CycleRun, error)
	ListRuns(gardenID uint) ([]entities.CycleRun, error)
	// SaveRun stores a run and its plans atomically. With replace set, an
	// existing run of the same garden and cycle is removed first.
	SaveRun(run *entities.CycleRun, plans []entities.CyclePlan, replace bool) error
	DeleteRun(runID uint) error
	Finalize(runID uint, at time.Time) error

	// Plans lists a cycle's plans with their sub-beds, in garden order.
	Plans(gardenID uint, cycle string) ([]entities.CyclePlan, error)
	FindPlan(planID uint) (*entities.CyclePlan, error)
	UpdateActual(planID uint, category string, cropID *uint, notes string, override bool) error
	// History returns the plans of the depth most recent cycles strictly
	// before the given cycle; an empty before means all cycles.
	History(gardenID uint, before string, depth int) ([]entities.CyclePlan, error)
}
