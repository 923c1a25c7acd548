package serviceImp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	cropRepoImp "github.com/hbiaou/crop-rotation/pkg/crop/repositoryImp"
	croprepo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	cropSvcImp "github.com/hbiaou/crop-rotation/pkg/crop/serviceImp"
	cyclerepo "github.com/hbiaou/crop-rotation/pkg/cycle/repository"
	cycleRepoImp "github.com/hbiaou/crop-rotation/pkg/cycle/repositoryImp"
	"github.com/hbiaou/crop-rotation/pkg/cycle/service"
	distRepoImp "github.com/hbiaou/crop-rotation/pkg/distribution/repositoryImp"
	distsvc "github.com/hbiaou/crop-rotation/pkg/distribution/service"
	distSvcImp "github.com/hbiaou/crop-rotation/pkg/distribution/serviceImp"
	gardenRepoImp "github.com/hbiaou/crop-rotation/pkg/garden/repositoryImp"
	gardensvc "github.com/hbiaou/crop-rotation/pkg/garden/service"
	gardenSvcImp "github.com/hbiaou/crop-rotation/pkg/garden/serviceImp"
	"github.com/hbiaou/crop-rotation/pkg/rotation"
	settingRepoImp "github.com/hbiaou/crop-rotation/pkg/setting/repositoryImp"
)

type fixedOffset int

func (f fixedOffset) Intn(int) int { return int(f) }

type CycleServiceSuite struct {
	suite.Suite
	db     *gorm.DB
	crops  croprepo.CropRepository
	svc    service.CycleService
	garden *entities.Garden
	ctx    context.Context
}

func TestCycleService(t *testing.T) {
	suite.Run(t, new(CycleServiceSuite))
}

func (s *CycleServiceSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(database.Seed(db, 2))
	s.db = db
	s.ctx = context.Background()

	gardens := gardenRepoImp.New(db)
	s.crops = cropRepoImp.New(db)
	cycles := cycleRepoImp.New(db)
	dist := distSvcImp.NewDistributionService(distRepoImp.New(db), s.crops, gardens)

	g, err := gardenSvcImp.NewGardenService(gardens, s.crops, cycles, dist).Create(gardensvc.CreateGardenRequest{
		Code:          "T1",
		Name:          "Test",
		Beds:          3,
		SubBedsPerBed: 2,
	})
	s.Require().NoError(err)
	s.garden = g

	s.svc = NewCycleService(cycles, gardens, s.crops, settingRepoImp.New(db), dist, Options{
		CyclesPerYear: 2,
		Offsets:       fixedOffset(0),
		Now:           func() time.Time { return time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC) },
	})
}

func (s *CycleServiceSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *CycleServiceSuite) cropNamed(name string) entities.Crop {
	crops, err := s.crops.List("")
	s.Require().NoError(err)
	for _, c := range crops {
		if c.Name == name {
			return c
		}
	}
	s.FailNow("crop not seeded", name)
	return entities.Crop{}
}

func (s *CycleServiceSuite) TestGenerateFirstCycle() {
	res, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)

	s.Equal("2026A", res.Run.Cycle)
	s.Equal(entities.RunSourceGenerated, res.Run.Source)
	s.Equal("Feuille", res.Run.StartCategory)
	s.NotEmpty(res.Run.GenerationID)
	s.False(res.Run.Finalized)
	s.Require().Len(res.Plans, 6)
	s.Len(res.Primaries, 3)

	crops, err := s.crops.List("")
	s.Require().NoError(err)
	byID := map[uint]entities.Crop{}
	for _, c := range crops {
		byID[c.CropID] = c
	}
	seen := map[uint]bool{}
	total := 0
	for _, p := range res.Plans {
		s.False(seen[p.SubBedID])
		seen[p.SubBedID] = true
		s.Require().NotNil(p.PlannedCropID)
		s.Equal(p.PlannedCategory, byID[*p.PlannedCropID].Category)
	}
	for _, n := range res.CategoryCounts {
		total += n
	}
	s.Equal(6, total)
	s.Equal(1, res.Plans[0].SubBed.BedNumber)
	s.Equal("Feuille", res.Plans[0].PlannedCategory)
}

func (s *CycleServiceSuite) TestGenerateAfterDroppingCategory() {
	catalog := cropSvcImp.NewCropService(s.crops)
	dist := distSvcImp.NewDistributionService(distRepoImp.New(s.db), s.crops, gardenRepoImp.New(s.db))
	base := []string{"Feuille", "Graine", "Racine", "Fruit", "Couverture"}

	_, err := catalog.ReplaceSequence(append(append([]string{}, base...), "Tubercule"))
	s.Require().NoError(err)
	_, err = dist.Update(s.garden.GardenID, distsvc.UpdateRequest{Categories: map[string]float64{
		"Feuille": 18, "Graine": 18, "Racine": 18, "Fruit": 18, "Couverture": 18, "Tubercule": 10,
	}})
	s.Require().NoError(err)

	_, err = catalog.ReplaceSequence(base)
	s.Require().NoError(err)

	d, err := dist.Get(s.garden.GardenID)
	s.Require().NoError(err)
	s.Len(d.Categories, 5)
	s.InDelta(90, d.Total, 1e-9)

	res, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)
	s.Len(res.Plans, 6)
	s.NotContains(res.CategoryCounts, rotation.Category("Tubercule"))
}

func (s *CycleServiceSuite) TestRegenerateReplacesUnfinalizedCycle() {
	first, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)
	offset := 2
	second, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{StartOffset: &offset})
	s.Require().NoError(err)

	s.Equal(first.Run.Cycle, second.Run.Cycle)
	s.NotEqual(first.Run.GenerationID, second.Run.GenerationID)
	s.Equal("Racine", second.Run.StartCategory)

	runs, err := s.svc.List(s.garden.GardenID)
	s.Require().NoError(err)
	s.Len(runs, 1)

	var plans int64
	s.Require().NoError(s.db.Model(&entities.CyclePlan{}).Where("garden_id = ?", s.garden.GardenID).Count(&plans).Error)
	s.EqualValues(6, plans)
}

func (s *CycleServiceSuite) TestGenerateOrdering() {
	id := s.garden.GardenID
	_, err := s.svc.Generate(s.ctx, id, service.GenerateOptions{Cycle: "2026A"})
	s.Require().NoError(err)

	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{Cycle: "2026B"})
	s.True(apperr.IsConflict(err), "unfinalized latest cycle blocks the next one")

	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{Cycle: "2026Q1"})
	s.True(apperr.IsValidation(err))

	_, err = s.svc.Finalize(s.ctx, id, "2026A")
	s.Require().NoError(err)

	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{Cycle: "2026A"})
	s.True(apperr.IsConflict(err))
	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{Cycle: "2025B"})
	s.True(apperr.IsValidation(err))

	next, err := s.svc.Generate(s.ctx, id, service.GenerateOptions{})
	s.Require().NoError(err)
	s.Equal("2026B", next.Run.Cycle)
}

func (s *CycleServiceSuite) TestGenerateUnknownGarden() {
	_, err := s.svc.Generate(s.ctx, 9999, service.GenerateOptions{})
	s.True(apperr.IsNotFound(err))
}

func (s *CycleServiceSuite) TestPreviewDoesNotPersist() {
	p, err := s.svc.Preview(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)
	s.Equal("2026A", p.Cycle)
	s.Len(p.Plan.Entries, 6)

	runs, err := s.svc.List(s.garden.GardenID)
	s.Require().NoError(err)
	s.Empty(runs)
}

func (s *CycleServiceSuite) TestUndo() {
	id := s.garden.GardenID
	_, err := s.svc.Undo(s.ctx, id)
	s.True(apperr.IsNotFound(err))

	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{})
	s.Require().NoError(err)
	run, err := s.svc.Undo(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("2026A", run.Cycle)

	var plans int64
	s.Require().NoError(s.db.Model(&entities.CyclePlan{}).Where("garden_id = ?", id).Count(&plans).Error)
	s.Zero(plans)

	_, err = s.svc.Generate(s.ctx, id, service.GenerateOptions{})
	s.Require().NoError(err)
	_, err = s.svc.Finalize(s.ctx, id, "2026A")
	s.Require().NoError(err)
	_, err = s.svc.Undo(s.ctx, id)
	s.True(apperr.IsConflict(err))
}

func (s *CycleServiceSuite) TestFinalizeIsIdempotent() {
	id := s.garden.GardenID
	_, err := s.svc.Generate(s.ctx, id, service.GenerateOptions{})
	s.Require().NoError(err)

	first, err := s.svc.Finalize(s.ctx, id, "2026A")
	s.Require().NoError(err)
	s.True(first.Finalized)
	s.Require().NotNil(first.FinalizedAt)

	second, err := s.svc.Finalize(s.ctx, id, "2026A")
	s.Require().NoError(err)
	s.True(second.Finalized)

	_, err = s.svc.Finalize(s.ctx, id, "2024A")
	s.True(apperr.IsNotFound(err))
}

func (s *CycleServiceSuite) TestOverride() {
	res, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)
	plan := res.Plans[0]
	tomate := s.cropNamed("Tomate")

	updated, err := s.svc.Override(s.ctx, plan.PlanID, service.OverrideInput{CropID: &tomate.CropID, Notes: "planted late"})
	s.Require().NoError(err)
	s.True(updated.IsOverride)
	s.Equal("Fruit", updated.ActualCategory)
	s.Equal("Fruit", updated.RealizedCategory())
	s.Equal("planted late", updated.Notes)
	s.Require().NotNil(updated.ActualCropID)
	s.Equal(tomate.CropID, *updated.ActualCropID)

	_, err = s.svc.Override(s.ctx, plan.PlanID, service.OverrideInput{Category: "Racine", CropID: &tomate.CropID})
	s.True(apperr.IsValidation(err))
	_, err = s.svc.Override(s.ctx, plan.PlanID, service.OverrideInput{Category: "Tubercule"})
	s.True(apperr.IsValidation(err))
	_, err = s.svc.Override(s.ctx, 9999, service.OverrideInput{Category: "Racine"})
	s.True(apperr.IsNotFound(err))

	cleared, err := s.svc.Override(s.ctx, plan.PlanID, service.OverrideInput{})
	s.Require().NoError(err)
	s.False(cleared.IsOverride)
	s.Empty(cleared.ActualCategory)
	s.Equal(plan.PlannedCategory, cleared.RealizedCategory())

	_, err = s.svc.Finalize(s.ctx, s.garden.GardenID, "2026A")
	s.Require().NoError(err)
	_, err = s.svc.Override(s.ctx, plan.PlanID, service.OverrideInput{Category: "Racine"})
	s.True(apperr.IsConflict(err))
}

// planReads closes read after the first FindPlan returns.
type planReads struct {
	cyclerepo.CycleRepository
	once sync.Once
	read chan struct{}
}

func (r *planReads) FindPlan(planID uint) (*entities.CyclePlan, error) {
	p, err := r.CycleRepository.FindPlan(planID)
	r.once.Do(func() { close(r.read) })
	return p, err
}

func (s *CycleServiceSuite) TestOverrideRereadsPlanUnderLock() {
	res, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)

	cycles := &planReads{CycleRepository: cycleRepoImp.New(s.db), read: make(chan struct{})}
	gardens := gardenRepoImp.New(s.db)
	dist := distSvcImp.NewDistributionService(distRepoImp.New(s.db), s.crops, gardens)
	svc := NewCycleService(cycles, gardens, s.crops, settingRepoImp.New(s.db), dist, Options{
		CyclesPerYear: 2,
		Offsets:       fixedOffset(0),
	}).(*cycleSvc)

	unlock := svc.lock(s.garden.GardenID)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Override(s.ctx, res.Plans[0].PlanID, service.OverrideInput{Category: "Racine"})
		done <- err
	}()

	// the plan goes away between the first read and the lock
	<-cycles.read
	s.Require().NoError(cycles.DeleteRun(res.Run.RunID))
	unlock()

	s.True(apperr.IsNotFound(<-done))
}

func (s *CycleServiceSuite) bootstrapEntries(category string, cropID *uint) []service.BootstrapEntry {
	subBeds, err := gardenRepoImp.New(s.db).SubBeds(s.garden.GardenID, true)
	s.Require().NoError(err)
	out := make([]service.BootstrapEntry, len(subBeds))
	for i, sb := range subBeds {
		out[i] = service.BootstrapEntry{SubBedID: sb.SubBedID, Category: category, CropID: cropID}
	}
	return out
}

func (s *CycleServiceSuite) TestBootstrap() {
	id := s.garden.GardenID
	choux := s.cropNamed("Choux")
	entries := s.bootstrapEntries("Feuille", &choux.CropID)

	_, err := s.svc.Bootstrap(s.ctx, id, service.BootstrapRequest{Cycle: "2025B", Entries: entries[1:]})
	s.True(apperr.IsValidation(err), "every sub-bed needs a category")

	_, err = s.svc.Bootstrap(s.ctx, id, service.BootstrapRequest{Cycle: "2025B", Entries: s.bootstrapEntries("Racine", &choux.CropID)})
	s.True(apperr.IsValidation(err), "crop must belong to the category")

	res, err := s.svc.Bootstrap(s.ctx, id, service.BootstrapRequest{Cycle: "2025B", Entries: entries})
	s.Require().NoError(err)
	s.Equal(entities.RunSourceBootstrap, res.Run.Source)
	s.True(res.Run.Finalized)
	s.Len(res.Plans, 6)
	for _, p := range res.Plans {
		s.Equal("Feuille", p.RealizedCategory())
	}

	_, err = s.svc.Bootstrap(s.ctx, id, service.BootstrapRequest{Cycle: "2025B", Entries: entries})
	s.True(apperr.IsConflict(err))

	next, err := s.svc.Generate(s.ctx, id, service.GenerateOptions{})
	s.Require().NoError(err)
	s.Equal("2026A", next.Run.Cycle)
	// the bootstrapped crop is penalized, everything else earns the diversity bonus
	for _, p := range next.Plans {
		s.Require().NotNil(p.PlannedCropID)
		if *p.PlannedCropID == choux.CropID {
			s.Greater(p.Score, 0.0, "sub-bed %d", p.SubBedID)
		} else {
			s.Less(p.Score, 0.0, "sub-bed %d", p.SubBedID)
		}
	}
}

func (s *CycleServiceSuite) TestProposeBootstrap() {
	id := s.garden.GardenID
	req, err := s.svc.ProposeBootstrap(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("2026A", req.Cycle)
	s.Require().Len(req.Entries, 6)

	crops, err := s.crops.List("")
	s.Require().NoError(err)
	catOf := map[uint]string{}
	for _, c := range crops {
		catOf[c.CropID] = c.Category
	}
	counts := map[string]int{}
	for _, e := range req.Entries {
		counts[e.Category]++
		s.Require().NotNil(e.CropID)
		s.Equal(e.Category, catOf[*e.CropID])
	}
	// six sub-beds on an equal split: the spare unit goes to the first category
	s.Equal(map[string]int{"Feuille": 2, "Graine": 1, "Racine": 1, "Fruit": 1, "Couverture": 1}, counts)
	s.Equal("Feuille", req.Entries[0].Category)
	s.Equal("Feuille", req.Entries[1].Category)
	s.Equal("Couverture", req.Entries[5].Category)

	runs, err := s.svc.List(id)
	s.Require().NoError(err)
	s.Empty(runs, "proposal stores nothing")

	res, err := s.svc.Bootstrap(s.ctx, id, *req)
	s.Require().NoError(err)
	s.True(res.Run.Finalized)
	s.Len(res.Plans, 6)

	_, err = s.svc.ProposeBootstrap(s.ctx, 9999)
	s.True(apperr.IsNotFound(err))
}

func (s *CycleServiceSuite) TestCyclesPerYearSetting() {
	s.Require().NoError(settingRepoImp.New(s.db).Set(database.SettingCyclesPerYear, "4"))

	res, err := s.svc.Generate(s.ctx, s.garden.GardenID, service.GenerateOptions{})
	s.Require().NoError(err)
	s.Equal("2026Q1", res.Run.Cycle)
}

func TestToRecordPrefersActual(t *testing.T) {
	planned, actual := uint(1), uint(2)
	rec := toRecord(&entities.CyclePlan{
		Cycle:           "2025A",
		SubBedID:        3,
		PlannedCategory: "Feuille",
		PlannedCropID:   &planned,
		ActualCategory:  "Fruit",
		ActualCropID:    &actual,
	})
	require.NotNil(t, rec.Actual)
	assert.Equal(t, uint(2), rec.Realized().CropID)

	rec = toRecord(&entities.CyclePlan{Cycle: "2025A", SubBedID: 3, PlannedCategory: "Feuille"})
	assert.Nil(t, rec.Actual)
	assert.Zero(t, rec.Realized().CropID)
}
