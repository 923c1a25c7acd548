package rotation

import "sort"

// History is the read-only view over past cycles the distributor scores against.
type History interface {
	// Window returns at most depth realized assignments for the sub-bed, most
	// recent first. Fewer entries are returned when fewer cycles exist. An
	// empty Assignment marks a cycle the sub-bed sat out.
	Window(subBedID uint, depth int) []Assignment
}

// MemoryHistory is a History backed by a map.
type MemoryHistory struct {
	bySubBed map[uint][]Assignment
}

// NewMemoryHistory copies windows keyed by sub-bed, each most recent first.
func NewMemoryHistory(windows map[uint][]Assignment) *MemoryHistory {
	h := &MemoryHistory{bySubBed: make(map[uint][]Assignment, len(windows))}
	for id, w := range windows {
		h.bySubBed[id] = append([]Assignment(nil), w...)
	}
	return h
}

func (h *MemoryHistory) Window(subBedID uint, depth int) []Assignment {
	if h == nil || depth <= 0 {
		return nil
	}
	w := h.bySubBed[subBedID]
	if len(w) > depth {
		w = w[:depth]
	}
	return append([]Assignment(nil), w...)
}

// CycleRecord is one stored plan row as seen by the history adapter.
type CycleRecord struct {
	Cycle    string
	SubBedID uint
	Planned  Assignment
	Actual   *Assignment
}

// Realized prefers the recorded actual planting over the plan.
func (r CycleRecord) Realized() Assignment {
	if r.Actual != nil && r.Actual.Category != "" {
		return *r.Actual
	}
	return r.Planned
}

// BuildHistory keys distance by cycle: entry i of a window is the i-th most
// recent cycle present in records. A sub-bed without a row in a cycle (a
// reserve slot, or one added later) gets an empty Assignment there, so older
// crops keep their distance.
func BuildHistory(records []CycleRecord) *MemoryHistory {
	seen := map[string]bool{}
	var cycles []string
	for _, r := range records {
		if !seen[r.Cycle] {
			seen[r.Cycle] = true
			cycles = append(cycles, r.Cycle)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(cycles)))
	slot := make(map[string]int, len(cycles))
	for i, c := range cycles {
		slot[c] = i
	}

	windows := map[uint][]Assignment{}
	filled := map[uint]map[int]bool{}
	for _, r := range records {
		i := slot[r.Cycle]
		w := windows[r.SubBedID]
		for len(w) <= i {
			w = append(w, Assignment{})
		}
		if filled[r.SubBedID] == nil {
			filled[r.SubBedID] = map[int]bool{}
		}
		// one row per sub-bed and cycle; keep the first if duplicated
		if !filled[r.SubBedID][i] {
			w[i] = r.Realized()
			filled[r.SubBedID][i] = true
		}
		windows[r.SubBedID] = w
	}
	return &MemoryHistory{bySubBed: windows}
}

type emptyHistory struct{}

func (emptyHistory) Window(uint, int) []Assignment { return nil }
