// Package rotation assigns a category and a crop to every sub-bed of a garden
// for one planting cycle.
//
// The package is a pure computation: callers load topology, catalog, targets and
// history, pass them in a Request, and persist the returned Plan themselves.
package rotation

import "sort"

// Category is a rotation group such as Leaf or Root.
type Category string

// Crop is one catalog entry. Species may be shared by several crops.
type Crop struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Family   string   `json:"family,omitempty"`
	Species  string   `json:"species,omitempty"`
}

// SubBed is the atomic planting unit.
type SubBed struct {
	ID       uint `json:"id"`
	Bed      int  `json:"bed"`
	Position int  `json:"position"`
}

// Bed is an ordered group of sub-beds. Sub-bed counts may differ between beds.
type Bed struct {
	Position int      `json:"position"`
	SubBeds  []SubBed `json:"sub_beds"`
}

// Garden is the topology handed to the distributor.
type Garden struct {
	ID   uint  `json:"id"`
	Beds []Bed `json:"beds"`
}

// TotalSubBeds counts every sub-bed across beds.
func (g Garden) TotalSubBeds() int {
	n := 0
	for _, b := range g.Beds {
		n += len(b.SubBeds)
	}
	return n
}

// GroupSubBeds turns a flat sub-bed list into beds ordered by position, each with
// its sub-beds ordered by position.
func GroupSubBeds(gardenID uint, subBeds []SubBed) Garden {
	byBed := map[int][]SubBed{}
	for _, sb := range subBeds {
		byBed[sb.Bed] = append(byBed[sb.Bed], sb)
	}
	positions := make([]int, 0, len(byBed))
	for p := range byBed {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	g := Garden{ID: gardenID, Beds: make([]Bed, 0, len(positions))}
	for _, p := range positions {
		sbs := byBed[p]
		sort.SliceStable(sbs, func(i, j int) bool { return sbs[i].Position < sbs[j].Position })
		g.Beds = append(g.Beds, Bed{Position: p, SubBeds: sbs})
	}
	return g
}

// Assignment is a realized or planned (category, crop) pair. CropID 0 means the
// category was recorded without a crop.
type Assignment struct {
	Category Category `json:"category"`
	CropID   uint     `json:"crop_id"`
}

// Targets holds distribution percentages for one garden: per category, and per
// crop within its category.
type Targets struct {
	Categories map[Category]float64          `json:"categories"`
	Crops      map[Category]map[uint]float64 `json:"crops"`
}

// BedPrimary records the category given to the first sub-bed of a bed.
type BedPrimary struct {
	Bed      int      `json:"bed"`
	Category Category `json:"category"`
	// Forced is set when the bed repeats the previous bed's primary because no
	// other category had quota left.
	Forced bool `json:"forced,omitempty"`
}

// Entry is one sub-bed assignment in a plan.
type Entry struct {
	SubBed   SubBed   `json:"sub_bed"`
	Category Category `json:"category"`
	CropID   uint     `json:"crop_id"`
	Score    float64  `json:"score"`
}

// Plan is the output of one distribution run. Entries follow traversal order.
type Plan struct {
	StartCategory  Category         `json:"start_category"`
	StartOffset    int              `json:"start_offset"`
	Primaries      []BedPrimary     `json:"primaries"`
	Entries        []Entry          `json:"entries"`
	CategoryCounts map[Category]int `json:"category_counts"`
	CropCounts     map[uint]int     `json:"crop_counts"`
}

// Lookup returns the entry planned for a sub-bed.
func (p *Plan) Lookup(subBedID uint) (Entry, bool) {
	for _, e := range p.Entries {
		if e.SubBed.ID == subBedID {
			return e, true
		}
	}
	return Entry{}, false
}

// CropsByCategory groups a catalog by category, each group sorted by crop ID.
func CropsByCategory(catalog []Crop) map[Category][]Crop {
	out := map[Category][]Crop{}
	for _, c := range catalog {
		out[c.Category] = append(out[c.Category], c)
	}
	for cat := range out {
		crops := out[cat]
		sort.Slice(crops, func(i, j int) bool { return crops[i].ID < crops[j].ID })
	}
	return out
}
