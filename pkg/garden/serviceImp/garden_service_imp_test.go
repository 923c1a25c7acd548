package serviceImp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	cropRepoImp "github.com/hbiaou/crop-rotation/pkg/crop/repositoryImp"
	cycleRepoImp "github.com/hbiaou/crop-rotation/pkg/cycle/repositoryImp"
	distRepoImp "github.com/hbiaou/crop-rotation/pkg/distribution/repositoryImp"
	distSvcImp "github.com/hbiaou/crop-rotation/pkg/distribution/serviceImp"
	gardenRepoImp "github.com/hbiaou/crop-rotation/pkg/garden/repositoryImp"
	"github.com/hbiaou/crop-rotation/pkg/garden/service"
)

func newService(t *testing.T) (*gorm.DB, service.GardenService) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, 2))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	gardens := gardenRepoImp.New(db)
	crops := cropRepoImp.New(db)
	dist := distSvcImp.NewDistributionService(distRepoImp.New(db), crops, gardens)
	return db, NewGardenService(gardens, crops, cycleRepoImp.New(db), dist)
}

func TestCreateGarden(t *testing.T) {
	db, s := newService(t)

	g, err := s.Create(service.CreateGardenRequest{
		Code:          "G3",
		Name:          "Verger",
		Beds:          4,
		SubBedsPerBed: 3,
		Reserve:       []database.SlotRef{{Bed: 4, Position: 3}},
	})
	require.NoError(t, err)

	full, err := s.Get(g.GardenID)
	require.NoError(t, err)
	require.Len(t, full.SubBeds, 12)
	assert.Equal(t, 1, full.SubBeds[0].BedNumber)
	assert.True(t, full.SubBeds[11].IsReserve)

	var targets int64
	require.NoError(t, db.Model(&entities.CategoryTarget{}).Where("garden_id = ?", g.GardenID).Count(&targets).Error)
	assert.EqualValues(t, 5, targets)

	_, err = s.Create(service.CreateGardenRequest{Code: "G3", Name: "Dup", Beds: 1, SubBedsPerBed: 1})
	assert.True(t, apperr.IsConflict(err))

	_, err = s.Create(service.CreateGardenRequest{
		Code: "G4", Name: "Bad", Beds: 2, SubBedsPerBed: 2,
		Reserve: []database.SlotRef{{Bed: 3, Position: 1}},
	})
	assert.True(t, apperr.IsValidation(err))

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestStats(t *testing.T) {
	db, s := newService(t)
	gardens := gardenRepoImp.New(db)
	g2, err := gardens.FindByCode("G2")
	require.NoError(t, err)

	st, err := s.Stats(g2.GardenID)
	require.NoError(t, err)
	assert.EqualValues(t, 46, st.TotalSubBeds)
	assert.EqualValues(t, 45, st.ActiveSubBeds)
	assert.EqualValues(t, 1, st.ReserveSubBeds)
	assert.Empty(t, st.LatestCycle)
	assert.Empty(t, st.Categories)

	var crop entities.Crop
	require.NoError(t, db.Where("name = ?", "Tomate").First(&crop).Error)
	subBeds, err := gardens.SubBeds(g2.GardenID, true)
	require.NoError(t, err)
	plans := make([]entities.CyclePlan, len(subBeds))
	for i, sb := range subBeds {
		plans[i] = entities.CyclePlan{SubBedID: sb.SubBedID, PlannedCategory: "Feuille"}
	}
	plans[0].ActualCategory = "Fruit"
	plans[0].ActualCropID = &crop.CropID
	run := &entities.CycleRun{GardenID: g2.GardenID, Cycle: "2026A", GenerationID: "x", Source: entities.RunSourceGenerated}
	require.NoError(t, cycleRepoImp.New(db).SaveRun(run, plans, false))

	st, err = s.Stats(g2.GardenID)
	require.NoError(t, err)
	assert.Equal(t, "2026A", st.LatestCycle)
	require.Len(t, st.Categories, 5)
	assert.Equal(t, "Feuille", st.Categories[0].Category)
	assert.Equal(t, 44, st.Categories[0].SubBeds)
	fruit := st.Categories[3]
	assert.Equal(t, 1, fruit.SubBeds)
	require.Len(t, fruit.Crops, 1)
	assert.Equal(t, "Tomate", fruit.Crops[0].Name)

	_, err = s.Stats(999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestGlobalStats(t *testing.T) {
	db, s := newService(t)
	gardens := gardenRepoImp.New(db)
	cycles := cycleRepoImp.New(db)

	var tomate entities.Crop
	require.NoError(t, db.Where("name = ?", "Tomate").First(&tomate).Error)

	for i, code := range []string{"G1", "G2"} {
		g, err := gardens.FindByCode(code)
		require.NoError(t, err)
		subBeds, err := gardens.SubBeds(g.GardenID, true)
		require.NoError(t, err)
		plans := make([]entities.CyclePlan, len(subBeds))
		for j, sb := range subBeds {
			plans[j] = entities.CyclePlan{SubBedID: sb.SubBedID, PlannedCategory: "Fruit", PlannedCropID: &tomate.CropID}
		}
		if i == 1 {
			plans[0].ActualCategory = "Feuille"
		}
		run := &entities.CycleRun{GardenID: g.GardenID, Cycle: "2026A", GenerationID: code, Source: entities.RunSourceGenerated}
		require.NoError(t, cycles.SaveRun(run, plans, false))
	}

	st, err := s.GlobalStats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalGardens)
	require.Len(t, st.Gardens, 2)
	assert.Equal(t, "G1", st.Gardens[0].Code)
	assert.Equal(t, "2026A", st.Gardens[1].LatestCycle)
	assert.Equal(t, 28+23, st.TotalBeds)
	assert.EqualValues(t, 112+46, st.TotalSubBeds)
	assert.EqualValues(t, 110+45, st.ActiveSubBeds)
	assert.EqualValues(t, 3, st.ReserveSubBeds)

	require.Len(t, st.Categories, 5)
	assert.Equal(t, 1, st.Categories[0].SubBeds, "actual category without crop")
	assert.Empty(t, st.Categories[0].Crops)
	fruit := st.Categories[3]
	assert.Equal(t, "Fruit", fruit.Category)
	assert.Equal(t, 154, fruit.SubBeds)
	assert.Equal(t, []service.CropCount{{CropID: tomate.CropID, Name: "Tomate", Count: 154}}, fruit.Crops)
}
