package serviceImp

import (
	"sort"
	"strings"

	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	croprepo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	cyclerepo "github.com/hbiaou/crop-rotation/pkg/cycle/repository"
	distsvc "github.com/hbiaou/crop-rotation/pkg/distribution/service"
	repo "github.com/hbiaou/crop-rotation/pkg/garden/repository"
	"github.com/hbiaou/crop-rotation/pkg/garden/service"
)

type gardenSvc struct {
	r      repo.GardenRepository
	crops  croprepo.CropRepository
	cycles cyclerepo.CycleRepository
	dist   distsvc.DistributionService
}

func NewGardenService(r repo.GardenRepository, crops croprepo.CropRepository, cycles cyclerepo.CycleRepository, dist distsvc.DistributionService) service.GardenService {
	return &gardenSvc{r: r, crops: crops, cycles: cycles, dist: dist}
}

func (s *gardenSvc) List() ([]entities.Garden, error) { return s.r.List() }

func (s *gardenSvc) Get(id uint) (*entities.Garden, error) {
	g, err := s.r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if g.SubBeds, err = s.r.SubBeds(id, false); err != nil {
		return nil, err
	}
	return g, nil
}

// Create lays out the sub-beds and starts the garden on an equal split.
func (s *gardenSvc) Create(req service.CreateGardenRequest) (*entities.Garden, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, apperr.Validation("code", "required")
	}
	if _, err := s.r.FindByCode(code); err == nil {
		return nil, apperr.Conflict("garden %q already exists", code)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}
	for _, slot := range req.Reserve {
		if slot.Bed < 1 || slot.Bed > req.Beds || slot.Position < 1 || slot.Position > req.SubBedsPerBed {
			return nil, apperr.Validation("reserve", "slot %d/%d is outside the layout", slot.Bed, slot.Position)
		}
	}

	g := database.BuildGarden(database.GardenLayout{
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Beds:          req.Beds,
		SubBedsPerBed: req.SubBedsPerBed,
		BedLengthM:    req.BedLengthM,
		BedWidthM:     req.BedWidthM,
		Reserve:       req.Reserve,
	})
	if err := s.r.Create(&g); err != nil {
		return nil, err
	}
	if err := s.dist.ResetEqual(g.GardenID); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *gardenSvc) Stats(id uint) (*service.Stats, error) {
	g, err := s.r.FindByID(id)
	if err != nil {
		return nil, err
	}
	total, reserve, err := s.r.CountSubBeds(id)
	if err != nil {
		return nil, err
	}
	st := &service.Stats{
		Garden:         *g,
		TotalSubBeds:   total,
		ActiveSubBeds:  total - reserve,
		ReserveSubBeds: reserve,
		Categories:     []service.CategoryStats{},
	}

	run, err := s.cycles.LatestRun(id)
	if apperr.IsNotFound(err) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.LatestCycle = run.Cycle
	st.Finalized = run.Finalized

	plans, err := s.cycles.Plans(id, run.Cycle)
	if err != nil {
		return nil, err
	}
	steps, err := s.crops.Sequence()
	if err != nil {
		return nil, err
	}
	catalog, err := s.crops.List("")
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(catalog))
	for _, c := range catalog {
		names[c.CropID] = c.Name
	}

	bedsByCat := map[string]int{}
	cropsByCat := map[string]map[uint]int{}
	for i := range plans {
		p := &plans[i]
		if p.SubBed.IsReserve {
			continue
		}
		cat := p.RealizedCategory()
		bedsByCat[cat]++
		if cid := p.RealizedCropID(); cid != nil {
			if cropsByCat[cat] == nil {
				cropsByCat[cat] = map[uint]int{}
			}
			cropsByCat[cat][*cid]++
		}
	}
	for _, step := range steps {
		cs := categoryStats(step.Category, bedsByCat[step.Category], cropsByCat[step.Category], names)
		st.Categories = append(st.Categories, cs)
	}
	return st, nil
}

func (s *gardenSvc) GlobalStats() (*service.GlobalStats, error) {
	gardens, err := s.r.List()
	if err != nil {
		return nil, err
	}
	steps, err := s.crops.Sequence()
	if err != nil {
		return nil, err
	}
	out := &service.GlobalStats{
		TotalGardens: len(gardens),
		Gardens:      make([]service.GardenSummary, 0, len(gardens)),
		Categories:   make([]service.CategoryStats, 0, len(steps)),
	}

	bedsByCat := map[string]int{}
	cropsByCat := map[string]map[uint]int{}
	names := map[uint]string{}
	for _, g := range gardens {
		st, err := s.Stats(g.GardenID)
		if err != nil {
			return nil, err
		}
		out.Gardens = append(out.Gardens, service.GardenSummary{
			GardenID:       g.GardenID,
			Code:           g.Code,
			Name:           g.Name,
			Beds:           g.Beds,
			TotalSubBeds:   st.TotalSubBeds,
			ActiveSubBeds:  st.ActiveSubBeds,
			ReserveSubBeds: st.ReserveSubBeds,
			LatestCycle:    st.LatestCycle,
		})
		out.TotalBeds += g.Beds
		out.TotalSubBeds += st.TotalSubBeds
		out.ActiveSubBeds += st.ActiveSubBeds
		out.ReserveSubBeds += st.ReserveSubBeds

		for _, cs := range st.Categories {
			bedsByCat[cs.Category] += cs.SubBeds
			for _, cc := range cs.Crops {
				if cropsByCat[cs.Category] == nil {
					cropsByCat[cs.Category] = map[uint]int{}
				}
				cropsByCat[cs.Category][cc.CropID] += cc.Count
				names[cc.CropID] = cc.Name
			}
		}
	}
	for _, step := range steps {
		out.Categories = append(out.Categories, categoryStats(step.Category, bedsByCat[step.Category], cropsByCat[step.Category], names))
	}
	return out, nil
}

// categoryStats orders crops by count, then name.
func categoryStats(category string, subBeds int, counts map[uint]int, names map[uint]string) service.CategoryStats {
	cs := service.CategoryStats{Category: category, SubBeds: subBeds, Crops: make([]service.CropCount, 0, len(counts))}
	for id, n := range counts {
		cs.Crops = append(cs.Crops, service.CropCount{CropID: id, Name: names[id], Count: n})
	}
	sort.Slice(cs.Crops, func(i, j int) bool {
		if cs.Crops[i].Count != cs.Crops[j].Count {
			return cs.Crops[i].Count > cs.Crops[j].Count
		}
		return cs.Crops[i].Name < cs.Crops[j].Name
	})
	return cs
}
