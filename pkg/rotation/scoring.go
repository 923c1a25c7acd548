package rotation

import "sort"

// DefaultLookback is the number of past cycles considered when scoring.
const DefaultLookback = 5

// ScoringModel penalizes crops that repeat recently on the same sub-bed.
// Lower scores are better.
type ScoringModel struct {
	ExactCrop      float64
	SameSpecies    float64
	SameFamily     float64
	DiversityBonus float64
	Lookback       int
}

// DefaultScoringModel returns the stock weights.
func DefaultScoringModel() ScoringModel {
	return ScoringModel{
		ExactCrop:      100,
		SameSpecies:    50,
		SameFamily:     20,
		DiversityBonus: 5,
		Lookback:       DefaultLookback,
	}
}

// Score rates candidate against window (most recent first). An entry at
// distance d contributes weight/d for the strongest matching tier only.
func (m ScoringModel) Score(candidate Crop, window []Crop) float64 {
	lookback := m.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(window) > lookback {
		window = window[:lookback]
	}

	score := 0.0
	seen := false
	for i, prev := range window {
		d := float64(i + 1)
		switch {
		case prev.ID != 0 && prev.ID == candidate.ID:
			score += m.ExactCrop / d
			seen = true
		case prev.Species != "" && prev.Species == candidate.Species:
			score += m.SameSpecies / d
		case prev.Family != "" && prev.Family == candidate.Family:
			score += m.SameFamily / d
		}
	}
	if !seen {
		score -= m.DiversityBonus
	}
	return score
}

// Scored pairs a crop with its score.
type Scored struct {
	Crop  Crop
	Score float64
}

// Rank scores every candidate and orders them best first. Equal scores fall
// back to ascending crop ID.
func (m ScoringModel) Rank(candidates []Crop, window []Crop) []Scored {
	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = Scored{Crop: c, Score: m.Score(c, window)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Crop.ID < out[j].Crop.ID
	})
	return out
}
