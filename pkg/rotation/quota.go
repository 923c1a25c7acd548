package rotation

import (
	"fmt"
	"math"
	"sort"
)

// Allocate splits total units across keys by percentage using largest-remainder
// rounding. Keys order breaks ties. Percentages are normalized by their positive
// sum, so targets that drift away from 100 are accepted.
//
// When total is at least the number of keys with a positive percentage, each of
// those keys receives one unit or more.
func Allocate[K comparable](total int, keys []K, percentages map[K]float64) (map[K]int, error) {
	if total < 0 {
		return nil, configErr("total", "negative unit count %d", total)
	}

	out := make(map[K]int, len(keys))
	listed := make(map[K]bool, len(keys))
	sum := 0.0
	positive := 0
	for _, k := range keys {
		if listed[k] {
			return nil, configErr("keys", "duplicate key %v", k)
		}
		listed[k] = true
		p := percentages[k]
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return nil, configErr("percentage", "invalid percentage %v for %v", p, k)
		}
		out[k] = 0
		if p > 0 {
			sum += p
			positive++
		}
	}
	for k, p := range percentages {
		if !listed[k] && p > 0 {
			return nil, configErr("percentage", "percentage given for unknown key %v", k)
		}
	}
	if total == 0 {
		return out, nil
	}
	if positive == 0 {
		return nil, configErr("percentage", "no positive percentage to distribute %d units", total)
	}

	shares := make([]float64, len(keys))
	base := make([]int, len(keys))
	assigned := 0
	for i, k := range keys {
		p := percentages[k]
		if p <= 0 {
			continue
		}
		shares[i] = float64(total) * p / sum
		base[i] = int(math.Floor(shares[i]))
		assigned += base[i]
	}

	floor := 0
	if total >= positive {
		floor = 1
		for i, k := range keys {
			if percentages[k] > 0 && base[i] == 0 {
				base[i] = 1
				assigned++
			}
		}
	}

	// Minimum-one bumps can overshoot; take back from the keys that lose least.
	for assigned > total {
		j := -1
		best := math.Inf(1)
		for i := range keys {
			if base[i] <= floor {
				continue
			}
			deficit := shares[i] - float64(base[i]-1)
			if deficit <= best {
				best = deficit
				j = i
			}
		}
		if j < 0 {
			return nil, invariantErr("cannot trim %d units down to %d", assigned, total)
		}
		base[j]--
		assigned--
	}

	if assigned < total {
		order := make([]int, 0, positive)
		for i, k := range keys {
			if percentages[k] > 0 {
				order = append(order, i)
			}
		}
		sort.SliceStable(order, func(a, b int) bool {
			return shares[order[a]]-float64(base[order[a]]) > shares[order[b]]-float64(base[order[b]])
		})
		for i := 0; assigned < total; i++ {
			base[order[i%len(order)]]++
			assigned++
		}
	}

	check := 0
	for i, k := range keys {
		out[k] = base[i]
		check += base[i]
	}
	if check != total {
		return nil, invariantErr("allocated %d units, expected %d", check, total)
	}
	return out, nil
}

// CategoryQuotas allocates total units across the sequence.
func CategoryQuotas(total int, seq *Sequence, percentages map[Category]float64) (map[Category]int, error) {
	for c, p := range percentages {
		if p > 0 && !seq.Contains(c) {
			return nil, configErr("targets", "category %q is not in the rotation sequence", c)
		}
	}
	q, err := Allocate(total, seq.Categories(), percentages)
	if err != nil {
		return nil, fmt.Errorf("category quotas: %w", err)
	}
	return q, nil
}

// CropQuotas allocates a category's units across its crops. Crops without a
// positive percentage share equally when none of them has one.
func CropQuotas(cat Category, units int, crops []Crop, percentages map[uint]float64) (map[uint]int, error) {
	if units == 0 {
		out := make(map[uint]int, len(crops))
		for _, c := range crops {
			out[c.ID] = 0
		}
		return out, nil
	}
	if len(crops) == 0 {
		return nil, &ExhaustionError{Category: cat, Message: fmt.Sprintf("quota of %d units but no crops in category", units)}
	}

	ids := make([]uint, len(crops))
	inCat := make(map[uint]bool, len(crops))
	for i, c := range crops {
		ids[i] = c.ID
		inCat[c.ID] = true
	}

	pcts := map[uint]float64{}
	anyPositive := false
	for id, p := range percentages {
		if p < 0 {
			return nil, configErr("targets", "negative percentage for crop %d", id)
		}
		if p > 0 && !inCat[id] {
			return nil, configErr("targets", "crop %d is not in category %q", id, cat)
		}
		if p > 0 {
			anyPositive = true
		}
		pcts[id] = p
	}
	if !anyPositive {
		for _, id := range ids {
			pcts[id] = 1
		}
	}

	q, err := Allocate(units, ids, pcts)
	if err != nil {
		return nil, fmt.Errorf("crop quotas for %q: %w", cat, err)
	}
	return q, nil
}
