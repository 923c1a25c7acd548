package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tomatoA = Crop{ID: 1, Name: "TomatoA", Category: "Fruit", Family: "Solanaceae", Species: "Solanum-X"}
	tomatoB = Crop{ID: 2, Name: "TomatoB", Category: "Fruit", Family: "Solanaceae", Species: "Solanum-X"}
	pepper  = Crop{ID: 3, Name: "Pepper", Category: "Fruit", Family: "Solanaceae", Species: "Capsicum annuum"}
	okra    = Crop{ID: 4, Name: "Okra", Category: "Fruit", Family: "Malvaceae", Species: "Abelmoschus esculentus"}
	lettuce = Crop{ID: 5, Name: "Lettuce", Category: "Leaf", Family: "Asteraceae", Species: "Lactuca sativa"}
)

func TestScoreTiers(t *testing.T) {
	m := DefaultScoringModel()

	// TomatoA one cycle ago, lettuce two cycles ago, TomatoB three cycles ago.
	window := []Crop{tomatoA, lettuce, tomatoB}

	a := m.Score(tomatoA, window)
	b := m.Score(tomatoB, window)
	fresh := m.Score(okra, window)

	assert.InDelta(t, 100+50.0/3, a, 1e-9)
	assert.InDelta(t, 50+100.0/3, b, 1e-9)
	assert.InDelta(t, -5, fresh, 1e-9)

	assert.Greater(t, a, b)
	assert.Greater(t, b, fresh)
}

func TestScoreFamilyIsLightest(t *testing.T) {
	m := DefaultScoringModel()
	window := []Crop{tomatoA}

	assert.InDelta(t, 20-5, m.Score(pepper, window), 1e-9)
	assert.Less(t, m.Score(pepper, window), m.Score(tomatoB, window))
}

func TestScoreDecaysWithDistance(t *testing.T) {
	m := DefaultScoringModel()

	recent := m.Score(tomatoA, []Crop{tomatoA})
	older := m.Score(tomatoA, []Crop{lettuce, lettuce, lettuce, tomatoA})

	assert.Greater(t, recent, older)
	assert.Greater(t, older, 0.0)
}

func TestScoreIgnoresEntriesBeyondLookback(t *testing.T) {
	m := DefaultScoringModel()
	m.Lookback = 2

	window := []Crop{lettuce, lettuce, tomatoA, tomatoA}
	assert.InDelta(t, -5, m.Score(tomatoA, window), 1e-9)

	m.Lookback = 3
	assert.InDelta(t, 100.0/3, m.Score(tomatoA, window), 1e-9)
}

func TestScoreCategoryOnlyEntries(t *testing.T) {
	m := DefaultScoringModel()

	// a category-only record occupies a slot without matching anything
	window := []Crop{{Category: "Fruit"}, tomatoA}
	assert.InDelta(t, 50, m.Score(tomatoA, window), 1e-9)
	assert.InDelta(t, 20, m.Score(tomatoB, window), 1e-9)
}

func TestRankBreaksTiesByID(t *testing.T) {
	m := DefaultScoringModel()

	ranked := m.Rank([]Crop{okra, lettuce, pepper}, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, uint(3), ranked[0].Crop.ID)
	assert.Equal(t, uint(4), ranked[1].Crop.ID)
	assert.Equal(t, uint(5), ranked[2].Crop.ID)
}

func TestRankPrefersNeverSeen(t *testing.T) {
	m := DefaultScoringModel()
	window := []Crop{tomatoA, okra, tomatoB}

	ranked := m.Rank([]Crop{tomatoA, tomatoB, okra, pepper}, window)
	order := []uint{ranked[0].Crop.ID, ranked[1].Crop.ID, ranked[2].Crop.ID, ranked[3].Crop.ID}
	// pepper: family hits at d=1 and d=3; okra: exact at d=2
	assert.Equal(t, []uint{3, 4, 2, 1}, order)
}
