package serviceImp

import (
	"math"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	croprepo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	repo "github.com/hbiaou/crop-rotation/pkg/distribution/repository"
	"github.com/hbiaou/crop-rotation/pkg/distribution/service"
	gardenrepo "github.com/hbiaou/crop-rotation/pkg/garden/repository"
	"github.com/hbiaou/crop-rotation/pkg/rotation"
)

type distSvc struct {
	r       repo.DistributionRepository
	crops   croprepo.CropRepository
	gardens gardenrepo.GardenRepository
}

func NewDistributionService(r repo.DistributionRepository, crops croprepo.CropRepository, gardens gardenrepo.GardenRepository) service.DistributionService {
	return &distSvc{r: r, crops: crops, gardens: gardens}
}

func (s *distSvc) Get(gardenID uint) (*service.Distribution, error) {
	if _, err := s.gardens.FindByID(gardenID); err != nil {
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
	cats, err := s.r.CategoryTargets(gardenID)
	if err != nil {
		return nil, err
	}
	cropTargets, err := s.r.CropTargets(gardenID)
	if err != nil {
		return nil, err
	}

	catPct := map[string]float64{}
	for _, t := range cats {
		catPct[t.Category] = t.Percentage
	}
	cropPct := map[uint]float64{}
	for _, t := range cropTargets {
		cropPct[t.CropID] = t.Percentage
	}

	out := &service.Distribution{GardenID: gardenID, Categories: make([]service.CategoryShare, 0, len(steps))}
	for _, st := range steps {
		share := service.CategoryShare{Category: st.Category, Percentage: catPct[st.Category], Crops: []service.CropShare{}}
		for _, c := range catalog {
			if c.Category != st.Category {
				continue
			}
			p := cropPct[c.CropID]
			share.Crops = append(share.Crops, service.CropShare{CropID: c.CropID, Name: c.Name, Percentage: p})
			share.CropTotal += p
		}
		out.Total += share.Percentage
		out.Categories = append(out.Categories, share)
	}
	return out, nil
}

func (s *distSvc) Update(gardenID uint, req service.UpdateRequest) (*service.Distribution, error) {
	if _, err := s.gardens.FindByID(gardenID); err != nil {
		return nil, err
	}
	steps, err := s.crops.Sequence()
	if err != nil {
		return nil, err
	}
	inSeq := map[string]bool{}
	for _, st := range steps {
		inSeq[st.Category] = true
	}

	cats := make([]entities.CategoryTarget, 0, len(req.Categories))
	positive := false
	for _, st := range steps {
		p, ok := req.Categories[st.Category]
		if !ok {
			continue
		}
		if err := checkPercentage("categories."+st.Category, p); err != nil {
			return nil, err
		}
		positive = positive || p > 0
		cats = append(cats, entities.CategoryTarget{Category: st.Category, Percentage: p})
	}
	for c := range req.Categories {
		if !inSeq[c] {
			return nil, apperr.Validation("categories", "%q is not in the rotation sequence", c)
		}
	}
	if !positive {
		return nil, apperr.Validation("categories", "at least one category needs a positive percentage")
	}

	crops := make([]entities.CropTarget, 0, len(req.Crops))
	for id, p := range req.Crops {
		if _, err := s.crops.FindByID(id); err != nil {
			return nil, err
		}
		if err := checkPercentage("crops", p); err != nil {
			return nil, err
		}
		crops = append(crops, entities.CropTarget{CropID: id, Percentage: p})
	}

	if err := s.r.Replace(gardenID, cats, crops); err != nil {
		return nil, err
	}
	return s.Get(gardenID)
}

func (s *distSvc) ResetEqual(gardenID uint) error {
	steps, err := s.crops.Sequence()
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	share := 100.0 / float64(len(steps))
	cats := make([]entities.CategoryTarget, len(steps))
	for i, st := range steps {
		cats[i] = entities.CategoryTarget{Category: st.Category, Percentage: share}
	}
	return s.r.Replace(gardenID, cats, nil)
}

// EngineTargets falls back to an equal split when the garden has no category
// targets. Crop targets follow each crop's current category.
func (s *distSvc) EngineTargets(gardenID uint) (rotation.Targets, error) {
	out := rotation.Targets{
		Categories: map[rotation.Category]float64{},
		Crops:      map[rotation.Category]map[uint]float64{},
	}
	steps, err := s.crops.Sequence()
	if err != nil {
		return out, err
	}
	cats, err := s.r.CategoryTargets(gardenID)
	if err != nil {
		return out, err
	}
	inSeq := make(map[string]bool, len(steps))
	for _, st := range steps {
		inSeq[st.Category] = true
	}
	for _, t := range cats {
		if inSeq[t.Category] {
			out.Categories[rotation.Category(t.Category)] = t.Percentage
		}
	}
	if len(out.Categories) == 0 {
		for _, st := range steps {
			out.Categories[rotation.Category(st.Category)] = 1
		}
	}

	cropTargets, err := s.r.CropTargets(gardenID)
	if err != nil {
		return out, err
	}
	if len(cropTargets) == 0 {
		return out, nil
	}
	catalog, err := s.crops.List("")
	if err != nil {
		return out, err
	}
	catOf := make(map[uint]rotation.Category, len(catalog))
	for _, c := range catalog {
		catOf[c.CropID] = rotation.Category(c.Category)
	}
	for _, t := range cropTargets {
		cat, ok := catOf[t.CropID]
		if !ok {
			continue
		}
		if out.Crops[cat] == nil {
			out.Crops[cat] = map[uint]float64{}
		}
		out.Crops[cat][t.CropID] = t.Percentage
	}
	return out, nil
}

func checkPercentage(field string, p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 100 {
		return apperr.Validation(field, "percentage %v out of range 0..100", p)
	}
	return nil
}
