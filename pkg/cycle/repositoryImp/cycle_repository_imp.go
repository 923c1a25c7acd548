package repositoryImp

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/cycle/repository"
)

type cycleRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.CycleRepository { return &cycleRepo{db} }

func (r *cycleRepo) LatestRun(gardenID uint) (*entities.CycleRun, error) {
	var run entities.CycleRun
	if err := r.db.Where("garden_id = ?", gardenID).Order("cycle DESC").First(&run).Error; err != nil {
		return nil, notFound(err, apperr.ErrCycleNotFound)
	}
	return &run, nil
}

func (r *cycleRepo) FindRun(gardenID uint, cycle string) (*entities.CycleRun, error) {
	var run entities.CycleRun
	if err := r.db.Where("garden_id = ? AND cycle = ?", gardenID, cycle).First(&run).Error; err != nil {
		return nil, notFound(err, apperr.ErrCycleNotFound)
	}
	return &run, nil
}

func (r *cycleRepo) ListRuns(gardenID uint) ([]entities.CycleRun, error) {
	var out []entities.CycleRun
	if err := r.db.Where("garden_id = ?", gardenID).Order("cycle DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cycleRepo) SaveRun(run *entities.CycleRun, plans []entities.CyclePlan, replace bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if replace {
			var old entities.CycleRun
			err := tx.Where("garden_id = ? AND cycle = ?", run.GardenID, run.Cycle).First(&old).Error
			switch {
			case err == nil:
				if err := deleteRun(tx, old.RunID); err != nil {
					return err
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i := range plans {
			plans[i].RunID = run.RunID
			plans[i].GardenID = run.GardenID
			plans[i].Cycle = run.Cycle
		}
		if len(plans) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).CreateInBatches(&plans, 200).Error
	})
}

func (r *cycleRepo) DeleteRun(runID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error { return deleteRun(tx, runID) })
}

func deleteRun(tx *gorm.DB, runID uint) error {
	if err := tx.Where("run_id = ?", runID).Delete(&entities.CyclePlan{}).Error; err != nil {
		return err
	}
	return tx.Delete(&entities.CycleRun{}, "run_id = ?", runID).Error
}

func (r *cycleRepo) Finalize(runID uint, at time.Time) error {
	res := r.db.Model(&entities.CycleRun{}).Where("run_id = ?", runID).
		Updates(map[string]any{"finalized": true, "finalized_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrCycleNotFound
	}
	return nil
}

func (r *cycleRepo) Plans(gardenID uint, cycle string) ([]entities.CyclePlan, error) {
	var out []entities.CyclePlan
	err := r.db.Joins("SubBed").
		Where("cycle_plans.garden_id = ? AND cycle_plans.cycle = ?", gardenID, cycle).
		Order(`"SubBed"."bed_number" ASC, "SubBed"."position" ASC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cycleRepo) FindPlan(planID uint) (*entities.CyclePlan, error) {
	var p entities.CyclePlan
	if err := r.db.Joins("SubBed").First(&p, "cycle_plans.plan_id = ?", planID).Error; err != nil {
		return nil, notFound(err, apperr.ErrPlanNotFound)
	}
	return &p, nil
}

func (r *cycleRepo) UpdateActual(planID uint, category string, cropID *uint, notes string, override bool) error {
	upd := map[string]any{
		"actual_category": category,
		"actual_crop_id":  cropID,
		"notes":           notes,
		"is_override":     override,
	}
	res := r.db.Model(&entities.CyclePlan{}).Where("plan_id = ?", planID).Updates(upd)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrPlanNotFound
	}
	return nil
}

func (r *cycleRepo) History(gardenID uint, before string, depth int) ([]entities.CyclePlan, error) {
	if depth <= 0 {
		return nil, nil
	}
	var cycles []string
	q := r.db.Model(&entities.CycleRun{}).Where("garden_id = ?", gardenID)
	if before != "" {
		q = q.Where("cycle < ?", before)
	}
	if err := q.Order("cycle DESC").Limit(depth).Pluck("cycle", &cycles).Error; err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, nil
	}

	var out []entities.CyclePlan
	if err := r.db.Where("garden_id = ? AND cycle IN ?", gardenID, cycles).Order("cycle DESC, sub_bed_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err, nf error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return err
}
