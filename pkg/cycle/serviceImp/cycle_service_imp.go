package serviceImp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	croprepo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	"github.com/hbiaou/crop-rotation/pkg/cycle"
	repo "github.com/hbiaou/crop-rotation/pkg/cycle/repository"
	"github.com/hbiaou/crop-rotation/pkg/cycle/service"
	distsvc "github.com/hbiaou/crop-rotation/pkg/distribution/service"
	gardenrepo "github.com/hbiaou/crop-rotation/pkg/garden/repository"
	"github.com/hbiaou/crop-rotation/pkg/logger"
	"github.com/hbiaou/crop-rotation/pkg/rotation"
	settingrepo "github.com/hbiaou/crop-rotation/pkg/setting/repository"
)

// OffsetSource draws the start offset of a generation.
type OffsetSource interface {
	Intn(n int) int
}

type randomOffsets struct{}

func (randomOffsets) Intn(n int) int { return rand.IntN(n) }

type Options struct {
	CyclesPerYear int
	Lookback      int
	StartCategory string
	Offsets       OffsetSource
	Now           func() time.Time
}

type cycleSvc struct {
	r        repo.CycleRepository
	gardens  gardenrepo.GardenRepository
	crops    croprepo.CropRepository
	settings settingrepo.SettingRepository
	dist     distsvc.DistributionService
	opts     Options
	locks    sync.Map // garden id -> *sync.Mutex
}

func NewCycleService(
	r repo.CycleRepository,
	gardens gardenrepo.GardenRepository,
	crops croprepo.CropRepository,
	settings settingrepo.SettingRepository,
	dist distsvc.DistributionService,
	opts Options,
) service.CycleService {
	if opts.Offsets == nil {
		opts.Offsets = randomOffsets{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lookback <= 0 {
		opts.Lookback = rotation.DefaultLookback
	}
	opts.CyclesPerYear = cycle.Normalize(opts.CyclesPerYear)
	return &cycleSvc{r: r, gardens: gardens, crops: crops, settings: settings, dist: dist, opts: opts}
}

func (s *cycleSvc) lock(gardenID uint) func() {
	m, _ := s.locks.LoadOrStore(gardenID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// cyclesPerYear prefers the stored setting over the configured default.
func (s *cycleSvc) cyclesPerYear() (int, error) {
	v, err := s.settings.Get(database.SettingCyclesPerYear, strconv.Itoa(s.opts.CyclesPerYear))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return s.opts.CyclesPerYear, nil
	}
	return cycle.Normalize(n), nil
}

// target resolves the cycle to generate and whether it replaces the latest
// unfinalized one.
func (s *cycleSvc) target(gardenID uint, requested string) (string, bool, error) {
	perYear, err := s.cyclesPerYear()
	if err != nil {
		return "", false, err
	}
	requested = strings.TrimSpace(requested)
	if requested != "" {
		if err := cycle.Validate(requested, perYear); err != nil {
			return "", false, apperr.Validation("cycle", "%v", err)
		}
	}

	latest, err := s.r.LatestRun(gardenID)
	if apperr.IsNotFound(err) {
		if requested == "" {
			requested = cycle.Current(s.opts.Now(), perYear)
		}
		return requested, false, nil
	}
	if err != nil {
		return "", false, err
	}

	if requested == "" {
		if !latest.Finalized {
			requested = latest.Cycle
		} else if requested, err = cycle.Next(latest.Cycle, perYear); err != nil {
			return "", false, apperr.Conflict("cannot derive the cycle after %s: %v", latest.Cycle, err)
		}
	}
	switch {
	case requested == latest.Cycle && latest.Finalized:
		return "", false, apperr.Conflict("cycle %s is finalized", requested)
	case requested == latest.Cycle:
		return requested, true, nil
	case requested < latest.Cycle:
		return "", false, apperr.Validation("cycle", "%s is before the latest cycle %s", requested, latest.Cycle)
	case !latest.Finalized:
		return "", false, apperr.Conflict("finalize cycle %s before generating %s", latest.Cycle, requested)
	}
	return requested, false, nil
}

// sequence builds the rotation order with the configured start category.
func (s *cycleSvc) sequence() (*rotation.Sequence, error) {
	steps, err := s.crops.Sequence()
	if err != nil {
		return nil, err
	}
	cats := make([]rotation.Category, len(steps))
	for i, st := range steps {
		cats[i] = rotation.Category(st.Category)
	}
	start := rotation.Category(s.opts.StartCategory)
	if start != "" {
		found := false
		for _, c := range cats {
			found = found || c == start
		}
		if !found {
			start = ""
		}
	}
	return rotation.NewSequence(cats, start)
}

func (s *cycleSvc) request(gardenID uint, target string, seq *rotation.Sequence, offset *int) (rotation.Request, error) {
	var req rotation.Request

	subBeds, err := s.gardens.SubBeds(gardenID, true)
	if err != nil {
		return req, err
	}
	sbs := make([]rotation.SubBed, len(subBeds))
	for i, sb := range subBeds {
		sbs[i] = rotation.SubBed{ID: sb.SubBedID, Bed: sb.BedNumber, Position: sb.Position}
	}

	crops, err := s.crops.List("")
	if err != nil {
		return req, err
	}
	catalog := make([]rotation.Crop, len(crops))
	for i, c := range crops {
		catalog[i] = toEngineCrop(c)
	}

	targets, err := s.dist.EngineTargets(gardenID)
	if err != nil {
		return req, err
	}

	past, err := s.r.History(gardenID, target, s.opts.Lookback)
	if err != nil {
		return req, err
	}
	records := make([]rotation.CycleRecord, len(past))
	for i := range past {
		records[i] = toRecord(&past[i])
	}

	var start int
	if offset != nil {
		start = *offset
	} else {
		start = s.opts.Offsets.Intn(seq.Len())
	}

	return rotation.Request{
		Garden:      rotation.GroupSubBeds(gardenID, sbs),
		Catalog:     catalog,
		Targets:     targets,
		History:     rotation.BuildHistory(records),
		StartOffset: start,
	}, nil
}

func (s *cycleSvc) distribute(gardenID uint, target string, offset *int) (*rotation.Plan, error) {
	seq, err := s.sequence()
	if err != nil {
		return nil, err
	}
	req, err := s.request(gardenID, target, seq, offset)
	if err != nil {
		return nil, err
	}
	model := rotation.DefaultScoringModel()
	model.Lookback = s.opts.Lookback
	plan, err := rotation.NewDistributor(seq, model).Distribute(req)
	if err != nil {
		return nil, fmt.Errorf("distribute %s: %w", target, err)
	}
	return plan, nil
}

func (s *cycleSvc) Generate(ctx context.Context, gardenID uint, opts service.GenerateOptions) (*service.Result, error) {
	defer s.lock(gardenID)()

	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	target, replace, err := s.target(gardenID, opts.Cycle)
	if err != nil {
		return nil, err
	}
	plan, err := s.distribute(gardenID, target, opts.StartOffset)
	if err != nil {
		return nil, err
	}

	run := &entities.CycleRun{
		GardenID:      gardenID,
		Cycle:         target,
		GenerationID:  uuid.NewString(),
		Source:        entities.RunSourceGenerated,
		StartCategory: string(plan.StartCategory),
		StartOffset:   plan.StartOffset,
	}
	plans := make([]entities.CyclePlan, len(plan.Entries))
	for i, e := range plan.Entries {
		cropID := e.CropID
		plans[i] = entities.CyclePlan{
			SubBedID:        e.SubBed.ID,
			PlannedCategory: string(e.Category),
			PlannedCropID:   &cropID,
			Score:           e.Score,
		}
	}
	if err := s.r.SaveRun(run, plans, replace); err != nil {
		return nil, fmt.Errorf("save cycle %s: %w", target, err)
	}

	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"garden":         gardenID,
		"cycle":          target,
		"generation_id":  run.GenerationID,
		"start_category": run.StartCategory,
		"start_offset":   run.StartOffset,
		"replaced":       replace,
	})
	for _, p := range plan.Primaries {
		if p.Forced {
			log.WithField("bed", p.Bed).Warn("bed repeats the previous primary category")
		}
	}
	log.Infof("generated %d assignments", len(plans))

	res, err := s.Get(gardenID, target)
	if err != nil {
		return nil, err
	}
	res.Primaries = plan.Primaries
	res.CategoryCounts = plan.CategoryCounts
	return res, nil
}

func (s *cycleSvc) Preview(ctx context.Context, gardenID uint, opts service.GenerateOptions) (*service.Preview, error) {
	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	target, _, err := s.target(gardenID, opts.Cycle)
	if err != nil {
		return nil, err
	}
	plan, err := s.distribute(gardenID, target, opts.StartOffset)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"garden": gardenID,
		"cycle":  target,
	}).Debug("previewed cycle")
	return &service.Preview{Cycle: target, Plan: plan}, nil
}

// Undo removes the latest cycle when it has not been finalized.
func (s *cycleSvc) Undo(ctx context.Context, gardenID uint) (*entities.CycleRun, error) {
	defer s.lock(gardenID)()

	run, err := s.r.LatestRun(gardenID)
	if err != nil {
		return nil, err
	}
	if run.Finalized {
		return nil, apperr.Conflict("cycle %s is finalized", run.Cycle)
	}
	if err := s.r.DeleteRun(run.RunID); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"garden":        gardenID,
		"cycle":         run.Cycle,
		"generation_id": run.GenerationID,
	}).Info("undid cycle")
	return run, nil
}

func (s *cycleSvc) Finalize(ctx context.Context, gardenID uint, cycleID string) (*entities.CycleRun, error) {
	defer s.lock(gardenID)()

	run, err := s.r.FindRun(gardenID, cycleID)
	if err != nil {
		return nil, err
	}
	if run.Finalized {
		return run, nil
	}
	now := s.opts.Now()
	if err := s.r.Finalize(run.RunID, now); err != nil {
		return nil, err
	}
	run.Finalized = true
	run.FinalizedAt = &now
	logger.FromContext(ctx).WithFields(map[string]interface{}{"garden": gardenID, "cycle": cycleID}).Info("finalized cycle")
	return run, nil
}

// Override records what was really planted. An empty category with no crop
// clears a previous override.
func (s *cycleSvc) Override(ctx context.Context, planID uint, in service.OverrideInput) (*entities.CyclePlan, error) {
	p, err := s.r.FindPlan(planID)
	if err != nil {
		return nil, err
	}
	defer s.lock(p.GardenID)()

	// undo or regeneration may have removed the plan while we waited
	if p, err = s.r.FindPlan(planID); err != nil {
		return nil, err
	}
	run, err := s.r.FindRun(p.GardenID, p.Cycle)
	if err != nil {
		return nil, err
	}
	if run.Finalized {
		return nil, apperr.Conflict("cycle %s is finalized", p.Cycle)
	}

	category := strings.TrimSpace(in.Category)
	notes := strings.TrimSpace(in.Notes)
	if category == "" && in.CropID == nil {
		if err := s.r.UpdateActual(planID, "", nil, notes, false); err != nil {
			return nil, err
		}
		return s.r.FindPlan(planID)
	}

	if in.CropID != nil {
		crop, err := s.crops.FindByID(*in.CropID)
		if err != nil {
			return nil, err
		}
		if category == "" {
			category = crop.Category
		}
		if crop.Category != category {
			return nil, apperr.Validation("crop_id", "%s belongs to %s, not %s", crop.Name, crop.Category, category)
		}
	}
	seq, err := s.sequence()
	if err != nil {
		return nil, err
	}
	if !seq.Contains(rotation.Category(category)) {
		return nil, apperr.Validation("category", "%q is not in the rotation sequence", category)
	}

	if err := s.r.UpdateActual(planID, category, in.CropID, notes, true); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"garden":   p.GardenID,
		"cycle":    p.Cycle,
		"plan_id":  planID,
		"category": category,
	}).Info("recorded actual planting")
	return s.r.FindPlan(planID)
}

// Bootstrap stores what is in the ground before the first generated cycle.
// Every active sub-bed needs a category; the cycle is stored finalized.
func (s *cycleSvc) Bootstrap(ctx context.Context, gardenID uint, req service.BootstrapRequest) (*service.Result, error) {
	defer s.lock(gardenID)()

	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	if _, err := s.r.LatestRun(gardenID); err == nil {
		return nil, apperr.Conflict("garden %d already has cycles", gardenID)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	perYear, err := s.cyclesPerYear()
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(req.Cycle)
	if target == "" {
		target = cycle.Current(s.opts.Now(), perYear)
	} else if err := cycle.Validate(target, perYear); err != nil {
		return nil, apperr.Validation("cycle", "%v", err)
	}

	seq, err := s.sequence()
	if err != nil {
		return nil, err
	}
	subBeds, err := s.gardens.SubBeds(gardenID, true)
	if err != nil {
		return nil, err
	}
	crops, err := s.crops.List("")
	if err != nil {
		return nil, err
	}
	cropCat := make(map[uint]string, len(crops))
	for _, c := range crops {
		cropCat[c.CropID] = c.Category
	}

	byID := make(map[uint]service.BootstrapEntry, len(req.Entries))
	for _, e := range req.Entries {
		byID[e.SubBedID] = e
	}
	active := make(map[uint]bool, len(subBeds))
	missing := 0
	plans := make([]entities.CyclePlan, 0, len(subBeds))
	for _, sb := range subBeds {
		active[sb.SubBedID] = true
		e, ok := byID[sb.SubBedID]
		cat := strings.TrimSpace(e.Category)
		if !ok || cat == "" {
			missing++
			continue
		}
		if !seq.Contains(rotation.Category(cat)) {
			return nil, apperr.Validation("category", "%q is not in the rotation sequence", cat)
		}
		if e.CropID != nil {
			c, known := cropCat[*e.CropID]
			if !known {
				return nil, apperr.ErrCropNotFound
			}
			if c != cat {
				return nil, apperr.Validation("crop_id", "crop %d belongs to %s, not %s", *e.CropID, c, cat)
			}
		}
		plans = append(plans, entities.CyclePlan{
			SubBedID:        sb.SubBedID,
			PlannedCategory: cat,
			PlannedCropID:   e.CropID,
			ActualCategory:  cat,
			ActualCropID:    e.CropID,
		})
	}
	for id := range byID {
		if !active[id] {
			return nil, apperr.Validation("sub_bed_id", "sub-bed %d is not an active sub-bed of garden %d", id, gardenID)
		}
	}
	if missing > 0 {
		return nil, apperr.Validation("entries", "every sub-bed needs a category; %d without one", missing)
	}

	now := s.opts.Now()
	run := &entities.CycleRun{
		GardenID:     gardenID,
		Cycle:        target,
		GenerationID: uuid.NewString(),
		Source:       entities.RunSourceBootstrap,
		Finalized:    true,
		FinalizedAt:  &now,
	}
	if err := s.r.SaveRun(run, plans, false); err != nil {
		return nil, fmt.Errorf("save bootstrap %s: %w", target, err)
	}
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"garden": gardenID,
		"cycle":  target,
	}).Infof("bootstrapped %d sub-beds", len(plans))
	return s.Get(gardenID, target)
}

// ProposeBootstrap gives each category a contiguous run of sub-beds in
// rotation order, sized by the garden's targets. Crops split each run the same
// way, equally when the category has no crop shares.
func (s *cycleSvc) ProposeBootstrap(ctx context.Context, gardenID uint) (*service.BootstrapRequest, error) {
	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	perYear, err := s.cyclesPerYear()
	if err != nil {
		return nil, err
	}
	seq, err := s.sequence()
	if err != nil {
		return nil, err
	}
	subBeds, err := s.gardens.SubBeds(gardenID, true)
	if err != nil {
		return nil, err
	}
	sbs := make([]rotation.SubBed, len(subBeds))
	for i, sb := range subBeds {
		sbs[i] = rotation.SubBed{ID: sb.SubBedID, Bed: sb.BedNumber, Position: sb.Position}
	}
	var ordered []rotation.SubBed
	for _, bed := range rotation.GroupSubBeds(gardenID, sbs).Beds {
		ordered = append(ordered, bed.SubBeds...)
	}

	targets, err := s.dist.EngineTargets(gardenID)
	if err != nil {
		return nil, err
	}
	crops, err := s.crops.List("")
	if err != nil {
		return nil, err
	}
	byCat := map[rotation.Category][]uint{}
	for _, c := range crops {
		cat := rotation.Category(c.Category)
		byCat[cat] = append(byCat[cat], c.CropID)
	}

	cats := seq.Categories()
	quotas, err := rotation.Allocate(len(ordered), cats, targets.Categories)
	if err != nil {
		return nil, err
	}

	entries := make([]service.BootstrapEntry, 0, len(ordered))
	next := 0
	for _, cat := range cats {
		slots := ordered[next : next+quotas[cat]]
		next += quotas[cat]
		ids := byCat[cat]
		if len(ids) == 0 {
			for _, sb := range slots {
				entries = append(entries, service.BootstrapEntry{SubBedID: sb.ID, Category: string(cat)})
			}
			continue
		}
		shares := targets.Crops[cat]
		if !anyPositive(shares) {
			shares = make(map[uint]float64, len(ids))
			for _, id := range ids {
				shares[id] = 1
			}
		}
		counts, err := rotation.Allocate(len(slots), ids, shares)
		if err != nil {
			return nil, err
		}
		k := 0
		for _, id := range ids {
			for range counts[id] {
				cropID := id
				entries = append(entries, service.BootstrapEntry{SubBedID: slots[k].ID, Category: string(cat), CropID: &cropID})
				k++
			}
		}
	}

	logger.FromContext(ctx).WithField("garden", gardenID).Debugf("proposed bootstrap for %d sub-beds", len(entries))
	return &service.BootstrapRequest{Cycle: cycle.Current(s.opts.Now(), perYear), Entries: entries}, nil
}

func anyPositive(m map[uint]float64) bool {
	for _, v := range m {
		if v > 0 {
			return true
		}
	}
	return false
}

func (s *cycleSvc) Get(gardenID uint, cycleID string) (*service.Result, error) {
	run, err := s.r.FindRun(gardenID, cycleID)
	if err != nil {
		return nil, err
	}
	plans, err := s.r.Plans(gardenID, cycleID)
	if err != nil {
		return nil, err
	}
	return &service.Result{Run: run, Plans: plans}, nil
}

func (s *cycleSvc) List(gardenID uint) ([]entities.CycleRun, error) {
	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	return s.r.ListRuns(gardenID)
}

func toEngineCrop(c entities.Crop) rotation.Crop {
	return rotation.Crop{
		ID:       c.CropID,
		Name:     c.Name,
		Category: rotation.Category(c.Category),
		Family:   c.Family,
		Species:  c.Species,
	}
}

func toRecord(p *entities.CyclePlan) rotation.CycleRecord {
	rec := rotation.CycleRecord{
		Cycle:    p.Cycle,
		SubBedID: p.SubBedID,
		Planned:  rotation.Assignment{Category: rotation.Category(p.PlannedCategory), CropID: deref(p.PlannedCropID)},
	}
	if p.ActualCategory != "" {
		rec.Actual = &rotation.Assignment{Category: rotation.Category(p.ActualCategory), CropID: deref(p.ActualCropID)}
	}
	return rec
}

func deref(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
