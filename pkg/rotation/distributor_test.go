package rotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []Crop{
	{ID: 1, Name: "Lettuce", Category: "Leaf", Family: "Asteraceae", Species: "Lactuca sativa"},
	{ID: 2, Name: "Amaranth", Category: "Leaf", Family: "Amaranthaceae", Species: "Amaranthus cruentus"},
	{ID: 3, Name: "Cabbage", Category: "Leaf", Family: "Brassicaceae", Species: "Brassica oleracea"},
	{ID: 4, Name: "Bean", Category: "Seed", Family: "Fabaceae", Species: "Phaseolus vulgaris"},
	{ID: 5, Name: "Pea", Category: "Seed", Family: "Fabaceae", Species: "Pisum sativum"},
	{ID: 6, Name: "Carrot", Category: "Root", Family: "Apiaceae", Species: "Daucus carota"},
	{ID: 7, Name: "Radish", Category: "Root", Family: "Brassicaceae", Species: "Raphanus sativus"},
	{ID: 8, Name: "Tomato", Category: "Fruit", Family: "Solanaceae", Species: "Solanum lycopersicum"},
	{ID: 9, Name: "Pepper", Category: "Fruit", Family: "Solanaceae", Species: "Capsicum annuum"},
	{ID: 10, Name: "Mucuna", Category: "Cover", Family: "Fabaceae", Species: "Mucuna pruriens"},
}

// makeGarden numbers sub-beds from 1 in traversal order.
func makeGarden(beds, perBed int) Garden {
	g := Garden{ID: 1}
	id := uint(1)
	for b := 1; b <= beds; b++ {
		bed := Bed{Position: b}
		for p := 1; p <= perBed; p++ {
			bed.SubBeds = append(bed.SubBeds, SubBed{ID: id, Bed: b, Position: p})
			id++
		}
		g.Beds = append(g.Beds, bed)
	}
	return g
}

func newTestDistributor(t *testing.T) *Distributor {
	t.Helper()
	seq, err := NewSequence(DefaultCategories, "")
	require.NoError(t, err)
	return NewDistributor(seq, DefaultScoringModel())
}

func categoriesOf(p *Plan) []Category {
	out := make([]Category, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Category
	}
	return out
}

func TestDistributeSpillsWithinBed(t *testing.T) {
	d := newTestDistributor(t)

	plan, err := d.Distribute(Request{
		Garden:  makeGarden(3, 4),
		Catalog: testCatalog,
		Targets: Targets{Categories: defaultTargets},
	})
	require.NoError(t, err)

	assert.Equal(t, Category("Leaf"), plan.StartCategory)
	assert.Equal(t, []Category{
		"Leaf", "Leaf", "Leaf", "Leaf",
		"Seed", "Seed", "Seed", "Root",
		"Root", "Fruit", "Cover", "Leaf",
	}, categoriesOf(plan))

	require.Len(t, plan.Primaries, 3)
	assert.Equal(t, Category("Leaf"), plan.Primaries[0].Category)
	assert.Equal(t, Category("Seed"), plan.Primaries[1].Category)
	assert.Equal(t, Category("Root"), plan.Primaries[2].Category)
}

func TestDistributeConservesQuotas(t *testing.T) {
	d := newTestDistributor(t)

	for offset := 0; offset < 5; offset++ {
		plan, err := d.Distribute(Request{
			Garden:      makeGarden(28, 4),
			Catalog:     testCatalog,
			Targets:     Targets{Categories: defaultTargets},
			StartOffset: offset,
		})
		require.NoError(t, err, "offset %d", offset)
		require.Len(t, plan.Entries, 112)

		cats := map[Category]int{}
		crops := map[uint]int{}
		seen := map[uint]bool{}
		for _, e := range plan.Entries {
			assert.False(t, seen[e.SubBed.ID], "sub-bed %d assigned twice", e.SubBed.ID)
			seen[e.SubBed.ID] = true
			cats[e.Category]++
			crops[e.CropID]++
		}
		assert.Equal(t, plan.CategoryCounts, cats)
		assert.Equal(t, plan.CropCounts, crops)

		for i := 1; i < len(plan.Primaries); i++ {
			if plan.Primaries[i].Forced {
				continue
			}
			assert.NotEqual(t, plan.Primaries[i-1].Category, plan.Primaries[i].Category,
				"offset %d bed %d repeats its predecessor", offset, plan.Primaries[i].Bed)
		}
	}
}

func TestDistributeSkipsRepeatedPrimary(t *testing.T) {
	d := newTestDistributor(t)

	plan, err := d.Distribute(Request{
		Garden:  makeGarden(3, 2),
		Catalog: testCatalog,
		Targets: Targets{Categories: map[Category]float64{"Leaf": 50, "Root": 50}},
	})
	require.NoError(t, err)

	primaries := []Category{plan.Primaries[0].Category, plan.Primaries[1].Category, plan.Primaries[2].Category}
	assert.Equal(t, []Category{"Leaf", "Root", "Leaf"}, primaries)
	assert.Equal(t, []Category{"Leaf", "Leaf", "Root", "Root", "Leaf", "Root"}, categoriesOf(plan))
}

func TestDistributeForcedRepeat(t *testing.T) {
	d := newTestDistributor(t)

	plan, err := d.Distribute(Request{
		Garden:  makeGarden(2, 1),
		Catalog: testCatalog,
		Targets: Targets{Categories: map[Category]float64{"Leaf": 100}},
	})
	require.NoError(t, err)

	require.Len(t, plan.Primaries, 2)
	assert.False(t, plan.Primaries[0].Forced)
	assert.True(t, plan.Primaries[1].Forced)
	assert.Equal(t, Category("Leaf"), plan.Primaries[1].Category)
}

func TestDistributeStartOffset(t *testing.T) {
	d := newTestDistributor(t)
	req := Request{
		Garden:  makeGarden(5, 1),
		Catalog: testCatalog,
		Targets: Targets{Categories: defaultTargets},
	}

	req.StartOffset = 2
	plan, err := d.Distribute(req)
	require.NoError(t, err)
	assert.Equal(t, Category("Root"), plan.StartCategory)
	assert.Equal(t, Category("Root"), plan.Entries[0].Category)

	req.StartOffset = -1
	plan, err = d.Distribute(req)
	require.NoError(t, err)
	assert.Equal(t, 4, plan.StartOffset)
	assert.Equal(t, Category("Cover"), plan.StartCategory)
}

func TestDistributeIsDeterministic(t *testing.T) {
	d := newTestDistributor(t)
	history := NewMemoryHistory(map[uint][]Assignment{
		1: {{Category: "Leaf", CropID: 1}},
		5: {{Category: "Fruit", CropID: 8}, {Category: "Root", CropID: 6}},
	})
	req := Request{
		Garden:      makeGarden(10, 3),
		Catalog:     testCatalog,
		Targets:     Targets{Categories: defaultTargets},
		History:     history,
		StartOffset: 3,
	}

	first, err := d.Distribute(req)
	require.NoError(t, err)
	second, err := d.Distribute(req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, a, b)
}

func TestDistributeAvoidsRecentCrop(t *testing.T) {
	d := newTestDistributor(t)
	garden := makeGarden(1, 2)
	req := Request{
		Garden:  garden,
		Catalog: testCatalog,
		Targets: Targets{
			Categories: map[Category]float64{"Leaf": 100},
			Crops:      map[Category]map[uint]float64{"Leaf": {1: 50, 2: 50}},
		},
		History: BuildHistory([]CycleRecord{
			{Cycle: "2025A", SubBedID: 1, Planned: Assignment{Category: "Leaf", CropID: 1}},
		}),
	}

	plan, err := d.Distribute(req)
	require.NoError(t, err)
	first, _ := plan.Lookup(1)
	second, _ := plan.Lookup(2)
	assert.Equal(t, uint(2), first.CropID)
	assert.Equal(t, uint(1), second.CropID)

	// the recorded planting replaces the plan in history
	req.History = BuildHistory([]CycleRecord{
		{
			Cycle:    "2025A",
			SubBedID: 1,
			Planned:  Assignment{Category: "Leaf", CropID: 1},
			Actual:   &Assignment{Category: "Leaf", CropID: 2},
		},
	})
	plan, err = d.Distribute(req)
	require.NoError(t, err)
	first, _ = plan.Lookup(1)
	assert.Equal(t, uint(1), first.CropID)
}

func TestDistributeExhaustion(t *testing.T) {
	d := newTestDistributor(t)
	catalog := make([]Crop, 0, len(testCatalog))
	for _, c := range testCatalog {
		if c.Category != "Cover" {
			catalog = append(catalog, c)
		}
	}

	plan, err := d.Distribute(Request{
		Garden:  makeGarden(3, 4),
		Catalog: catalog,
		Targets: Targets{Categories: defaultTargets},
	})
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.True(t, IsExhaustion(err))

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, Category("Cover"), exhausted.Category)
}

func TestDistributeConfigurationErrors(t *testing.T) {
	d := newTestDistributor(t)
	targets := Targets{Categories: defaultTargets}

	t.Run("empty garden", func(t *testing.T) {
		_, err := d.Distribute(Request{Garden: Garden{ID: 1}, Catalog: testCatalog, Targets: targets})
		assert.True(t, IsConfiguration(err))
	})

	t.Run("crop outside sequence", func(t *testing.T) {
		catalog := append([]Crop{{ID: 99, Name: "Yam", Category: "Tuber"}}, testCatalog...)
		_, err := d.Distribute(Request{Garden: makeGarden(2, 2), Catalog: catalog, Targets: targets})
		assert.True(t, IsConfiguration(err))
	})

	t.Run("target category outside sequence", func(t *testing.T) {
		_, err := d.Distribute(Request{
			Garden:  makeGarden(2, 2),
			Catalog: testCatalog,
			Targets: Targets{Categories: map[Category]float64{"Leaf": 50, "Tuber": 50}},
		})
		assert.True(t, IsConfiguration(err))
	})

	t.Run("duplicate sub-bed", func(t *testing.T) {
		g := makeGarden(2, 2)
		g.Beds[1].SubBeds[0].ID = g.Beds[0].SubBeds[0].ID
		_, err := d.Distribute(Request{Garden: g, Catalog: testCatalog, Targets: targets})
		assert.True(t, IsConfiguration(err))
	})

	t.Run("no targets", func(t *testing.T) {
		_, err := d.Distribute(Request{Garden: makeGarden(2, 2), Catalog: testCatalog})
		assert.True(t, IsConfiguration(err))
	})
}

func TestDistributeUnevenBeds(t *testing.T) {
	d := newTestDistributor(t)
	g := Garden{ID: 2, Beds: []Bed{
		{Position: 2, SubBeds: []SubBed{{ID: 12, Bed: 2, Position: 2}, {ID: 11, Bed: 2, Position: 1}}},
		{Position: 1, SubBeds: []SubBed{{ID: 10, Bed: 1, Position: 1}}},
		{Position: 3},
		{Position: 4, SubBeds: []SubBed{{ID: 13, Bed: 4, Position: 1}, {ID: 14, Bed: 4, Position: 2}, {ID: 15, Bed: 4, Position: 3}}},
	}}

	plan, err := d.Distribute(Request{Garden: g, Catalog: testCatalog, Targets: Targets{Categories: defaultTargets}})
	require.NoError(t, err)

	ids := make([]uint, len(plan.Entries))
	for i, e := range plan.Entries {
		ids[i] = e.SubBed.ID
	}
	assert.Equal(t, []uint{10, 11, 12, 13, 14, 15}, ids)
	assert.Len(t, plan.Primaries, 3)
}
