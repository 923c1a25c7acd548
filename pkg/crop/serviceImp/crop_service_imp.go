package serviceImp

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/crop/importer"
	repo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	"github.com/hbiaou/crop-rotation/pkg/crop/service"
	"github.com/hbiaou/crop-rotation/pkg/logger"
	"github.com/hbiaou/crop-rotation/pkg/rotation"
)

const maxImportBytes = 2 << 20

type cropSvc struct{ r repo.CropRepository }

func NewCropService(r repo.CropRepository) service.CropService { return &cropSvc{r} }

func (s *cropSvc) List(category string) ([]entities.Crop, error) {
	return s.r.List(strings.TrimSpace(category))
}

func (s *cropSvc) Grouped() ([]service.CategoryGroup, error) {
	steps, err := s.r.Sequence()
	if err != nil {
		return nil, err
	}
	crops, err := s.r.List("")
	if err != nil {
		return nil, err
	}
	byCat := map[string][]entities.Crop{}
	for _, c := range crops {
		byCat[c.Category] = append(byCat[c.Category], c)
	}
	out := make([]service.CategoryGroup, 0, len(steps))
	for _, st := range steps {
		cs := byCat[st.Category]
		if cs == nil {
			cs = []entities.Crop{}
		}
		out = append(out, service.CategoryGroup{Position: st.Position, Category: st.Category, Crops: cs})
	}
	return out, nil
}

func (s *cropSvc) Create(req service.CreateCropRequest) (*entities.Crop, error) {
	c := &entities.Crop{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Family:   strings.TrimSpace(req.Family),
		Species:  strings.TrimSpace(req.Species),
	}
	if c.Name == "" {
		return nil, apperr.Validation("name", "required")
	}
	known, err := s.categories()
	if err != nil {
		return nil, err
	}
	if !known[c.Category] {
		return nil, apperr.Validation("category", "%q is not in the rotation sequence", c.Category)
	}
	if err := s.r.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *cropSvc) Import(r io.Reader, format importer.Format) (*service.ImportReport, error) {
	res, err := importer.Parse(io.LimitReader(r, maxImportBytes), format)
	if err != nil {
		return nil, apperr.Validation("file", "%v", err)
	}
	return s.store(res)
}

func (s *cropSvc) ImportURL(ctx context.Context, url string) (*service.ImportReport, error) {
	res, err := importer.FetchURL(ctx, url, maxImportBytes)
	if err != nil {
		return nil, apperr.Validation("url", "%v", err)
	}
	rep, err := s.store(res)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithField("url", url).Infof("imported crops: %d created, %d updated", rep.Created, rep.Updated)
	return rep, nil
}

// store keeps rows whose category is in the rotation and reports the rest.
func (s *cropSvc) store(res *importer.Result) (*service.ImportReport, error) {
	known, err := s.categories()
	if err != nil {
		return nil, err
	}
	rep := &service.ImportReport{Skipped: append([]importer.Skipped(nil), res.Skipped...)}
	seen := map[string]bool{}
	crops := make([]entities.Crop, 0, len(res.Rows))
	for _, row := range res.Rows {
		if !known[row.Category] {
			rep.Skipped = append(rep.Skipped, importer.Skipped{Line: row.Line, Reason: fmt.Sprintf("unknown category %q", row.Category)})
			continue
		}
		if seen[row.Name] {
			rep.Skipped = append(rep.Skipped, importer.Skipped{Line: row.Line, Reason: "duplicate name"})
			continue
		}
		seen[row.Name] = true
		crops = append(crops, entities.Crop{Name: row.Name, Category: row.Category, Family: row.Family, Species: row.Species})
	}
	if len(crops) > 0 {
		rep.Created, rep.Updated, err = s.r.Upsert(crops)
		if err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func (s *cropSvc) Sequence() ([]entities.RotationStep, error) { return s.r.Sequence() }

// ReplaceSequence rejects orders the engine would refuse and orders that drop
// a category still used by crops.
func (s *cropSvc) ReplaceSequence(categories []string) ([]entities.RotationStep, error) {
	cats := make([]rotation.Category, len(categories))
	clean := make([]string, len(categories))
	for i, c := range categories {
		clean[i] = strings.TrimSpace(c)
		cats[i] = rotation.Category(clean[i])
	}
	seq, err := rotation.NewSequence(cats, "")
	if err != nil {
		return nil, apperr.Validation("categories", "%v", err)
	}
	counts, err := s.r.CountByCategory()
	if err != nil {
		return nil, err
	}
	for cat, n := range counts {
		if n > 0 && !seq.Contains(rotation.Category(cat)) {
			return nil, apperr.Validation("categories", "category %q still has %d crops", cat, n)
		}
	}
	if err := s.r.ReplaceSequence(clean); err != nil {
		return nil, err
	}
	return s.r.Sequence()
}

func (s *cropSvc) categories() (map[string]bool, error) {
	steps, err := s.r.Sequence()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(steps))
	for _, st := range steps {
		out[st.Category] = true
	}
	return out, nil
}
