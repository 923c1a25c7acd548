package rotation

import (
	"fmt"
	"sort"
)

// Request carries every input of one distribution run.
type Request struct {
	Garden  Garden
	Catalog []Crop
	Targets Targets
	History History
	// StartOffset shifts the default start category. It is the only random
	// input of a run and is drawn by the caller.
	StartOffset int
}

// Distributor walks a garden bed by bed and assigns every sub-bed.
type Distributor struct {
	seq   *Sequence
	model ScoringModel
}

func NewDistributor(seq *Sequence, model ScoringModel) *Distributor {
	return &Distributor{seq: seq, model: model}
}

func (d *Distributor) Sequence() *Sequence { return d.seq }

func (d *Distributor) Model() ScoringModel { return d.model }

// run holds the quota bookkeeping of one Distribute call.
type run struct {
	seq       *Sequence
	model     ScoringModel
	history   History
	catalog   map[uint]Crop
	crops     map[Category][]Crop
	catLeft   map[Category]int
	cropLeft  map[Category]map[uint]int
	unitsLeft int
}

// Distribute builds a complete plan or fails without producing one.
func (d *Distributor) Distribute(req Request) (*Plan, error) {
	if d.seq == nil || d.seq.Len() == 0 {
		return nil, configErr("sequence", "rotation sequence is empty")
	}

	garden, err := normalizeGarden(req.Garden)
	if err != nil {
		return nil, err
	}
	total := garden.TotalSubBeds()
	if total == 0 {
		return nil, configErr("garden", "garden %d has no sub-beds", garden.ID)
	}

	catalog, err := d.indexCatalog(req.Catalog)
	if err != nil {
		return nil, err
	}

	catQuota, err := CategoryQuotas(total, d.seq, req.Targets.Categories)
	if err != nil {
		return nil, err
	}

	crops := CropsByCategory(req.Catalog)
	cropQuota := make(map[Category]map[uint]int, d.seq.Len())
	cropCounts := map[uint]int{}
	for _, cat := range d.seq.Categories() {
		q, err := CropQuotas(cat, catQuota[cat], crops[cat], req.Targets.Crops[cat])
		if err != nil {
			return nil, err
		}
		sum := 0
		for id, n := range q {
			sum += n
			if n > 0 {
				cropCounts[id] = n
			}
		}
		if sum != catQuota[cat] {
			return nil, invariantErr("crop quotas of %q sum to %d, category quota is %d", cat, sum, catQuota[cat])
		}
		cropQuota[cat] = q
	}

	history := req.History
	if history == nil {
		history = emptyHistory{}
	}

	r := &run{
		seq:       d.seq,
		model:     d.model,
		history:   history,
		catalog:   catalog,
		crops:     crops,
		catLeft:   make(map[Category]int, len(catQuota)),
		cropLeft:  make(map[Category]map[uint]int, len(cropQuota)),
		unitsLeft: total,
	}
	for c, n := range catQuota {
		r.catLeft[c] = n
	}
	for c, q := range cropQuota {
		m := make(map[uint]int, len(q))
		for id, n := range q {
			m[id] = n
		}
		r.cropLeft[c] = m
	}

	offset := d.seq.wrap(req.StartOffset)
	start := d.seq.Offset(offset)
	plan := &Plan{
		StartCategory:  start,
		StartOffset:    offset,
		Primaries:      make([]BedPrimary, 0, len(garden.Beds)),
		Entries:        make([]Entry, 0, total),
		CategoryCounts: catQuota,
		CropCounts:     cropCounts,
	}

	var prev Category
	bedIndex := 0
	for _, bed := range garden.Beds {
		if len(bed.SubBeds) == 0 {
			continue
		}
		primary, forced, err := r.primary(d.seq.Advance(start, bedIndex), prev)
		if err != nil {
			return nil, err
		}
		plan.Primaries = append(plan.Primaries, BedPrimary{Bed: bed.Position, Category: primary, Forced: forced})

		current := primary
		for _, sb := range bed.SubBeds {
			if r.catLeft[current] == 0 {
				next, ok := r.spill(current)
				if !ok {
					return nil, invariantErr("no category quota left for sub-bed %d", sb.ID)
				}
				current = next
			}
			entry, err := r.fill(sb, current)
			if err != nil {
				return nil, err
			}
			plan.Entries = append(plan.Entries, entry)
		}
		prev = primary
		bedIndex++
	}

	if err := r.done(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (d *Distributor) indexCatalog(catalog []Crop) (map[uint]Crop, error) {
	out := make(map[uint]Crop, len(catalog))
	for _, c := range catalog {
		if c.ID == 0 {
			return nil, configErr("catalog", "crop %q has no identifier", c.Name)
		}
		if c.Category == "" {
			return nil, configErr("catalog", "crop %q has no category", c.Name)
		}
		if !d.seq.Contains(c.Category) {
			return nil, configErr("catalog", "crop %q has category %q outside the rotation sequence", c.Name, c.Category)
		}
		if _, dup := out[c.ID]; dup {
			return nil, configErr("catalog", "duplicate crop identifier %d", c.ID)
		}
		out[c.ID] = c
	}
	return out, nil
}

// primary picks the bed's first category. The computed category is kept unless
// it has no quota or repeats the previous bed while something else is left; in
// that case the sequence is walked forward in order.
func (r *run) primary(computed, prev Category) (Category, bool, error) {
	for step := 0; step < r.seq.Len(); step++ {
		c := r.seq.Advance(computed, step)
		if r.catLeft[c] > 0 && c != prev {
			return c, false, nil
		}
	}
	if prev != "" && r.catLeft[prev] > 0 {
		return prev, true, nil
	}
	return "", false, invariantErr("no category quota left while %d units remain", r.unitsLeft)
}

// spill returns the next category after c, in sequence order, with quota left.
func (r *run) spill(c Category) (Category, bool) {
	for step := 1; step <= r.seq.Len(); step++ {
		next := r.seq.Advance(c, step)
		if r.catLeft[next] > 0 {
			return next, true
		}
	}
	return "", false
}

func (r *run) fill(sb SubBed, cat Category) (Entry, error) {
	left := r.cropLeft[cat]
	candidates := make([]Crop, 0, len(r.crops[cat]))
	for _, c := range r.crops[cat] {
		if left[c.ID] > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return Entry{}, &ExhaustionError{Category: cat, Message: fmt.Sprintf("no crop quota left for sub-bed %d", sb.ID)}
	}

	ranked := r.model.Rank(candidates, r.window(sb.ID))
	best := ranked[0]

	left[best.Crop.ID]--
	r.catLeft[cat]--
	r.unitsLeft--
	return Entry{SubBed: sb, Category: cat, CropID: best.Crop.ID, Score: best.Score}, nil
}

func (r *run) window(subBedID uint) []Crop {
	depth := r.model.Lookback
	if depth <= 0 {
		depth = DefaultLookback
	}
	past := r.history.Window(subBedID, depth)
	if len(past) > depth {
		past = past[:depth]
	}
	out := make([]Crop, len(past))
	for i, a := range past {
		if c, ok := r.catalog[a.CropID]; ok {
			out[i] = c
			continue
		}
		out[i] = Crop{ID: a.CropID, Category: a.Category}
	}
	return out
}

func (r *run) done() error {
	if r.unitsLeft != 0 {
		return invariantErr("%d units left unassigned", r.unitsLeft)
	}
	for c, n := range r.catLeft {
		if n != 0 {
			return invariantErr("category %q has %d units left", c, n)
		}
	}
	for c, q := range r.cropLeft {
		for id, n := range q {
			if n != 0 {
				return invariantErr("crop %d in %q has %d units left", id, c, n)
			}
		}
	}
	return nil
}

// normalizeGarden copies the topology with beds and sub-beds sorted by position.
func normalizeGarden(g Garden) (Garden, error) {
	out := Garden{ID: g.ID, Beds: make([]Bed, len(g.Beds))}
	seen := map[uint]bool{}
	for i, b := range g.Beds {
		sbs := append([]SubBed(nil), b.SubBeds...)
		for _, sb := range sbs {
			if seen[sb.ID] {
				return Garden{}, configErr("garden", "duplicate sub-bed %d", sb.ID)
			}
			seen[sb.ID] = true
		}
		sort.SliceStable(sbs, func(x, y int) bool { return sbs[x].Position < sbs[y].Position })
		out.Beds[i] = Bed{Position: b.Position, SubBeds: sbs}
	}
	sort.SliceStable(out.Beds, func(x, y int) bool { return out.Beds[x].Position < out.Beds[y].Position })
	return out, nil
}
