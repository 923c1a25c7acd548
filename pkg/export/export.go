// Package export writes cycle plans to Excel workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hbiaou/crop-rotation/entities"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	croprepo "github.com/hbiaou/crop-rotation/pkg/crop/repository"
	cyclerepo "github.com/hbiaou/crop-rotation/pkg/cycle/repository"
	gardenrepo "github.com/hbiaou/crop-rotation/pkg/garden/repository"
)

var headers = []string{"Bed", "Sub-bed", "Category", "Crop", "Notes"}

// palette is applied to categories in rotation order.
var palette = []string{"C6EFCE", "FFEB9C", "F8CBAD", "FFC7CE", "BDD7EE", "E4DFEC", "D9D9D9"}

// Row is one sub-bed line of a sheet.
type Row struct {
	Bed      int
	Position int
	Reserve  bool
	Category string
	Crop     string
	Notes    string
}

type Sheet struct {
	Name string
	Rows []Row
}

// Build lays out one sheet per garden. categories fixes the fill colour order.
func Build(sheets []Sheet, categories []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if len(sheets) == 0 {
		return f, nil
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"375623"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	fills := make(map[string]int, len(categories))
	for i, cat := range categories {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{palette[i%len(palette)]}},
		})
		if err != nil {
			return nil, err
		}
		fills[cat] = id
	}

	for i, sh := range sheets {
		name := sheetName(sh.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, name, sh.Rows, header, fills); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, name string, rows []Row, header int, fills map[string]int) error {
	if err := f.SetSheetRow(name, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", "E1", header); err != nil {
		return err
	}
	for i, r := range rows {
		line := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, line)
		notes := r.Notes
		if r.Reserve {
			notes = strings.TrimSpace("reserve " + notes)
		}
		if err := f.SetSheetRow(name, cell, &[]any{r.Bed, r.Position, r.Category, r.Crop, notes}); err != nil {
			return err
		}
		if style, ok := fills[r.Category]; ok {
			from, _ := excelize.CoordinatesToCellName(3, line)
			to, _ := excelize.CoordinatesToCellName(4, line)
			if err := f.SetCellStyle(name, from, to, style); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(name, "C", "D", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(name, "E", "E", 32); err != nil {
		return err
	}
	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// sheetName keeps within Excel's 31 character limit and its forbidden set.
func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Garden %d", i+1)
	}
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}

// Exporter loads stored cycles and turns them into workbooks.
type Exporter struct {
	gardens gardenrepo.GardenRepository
	crops   croprepo.CropRepository
	cycles  cyclerepo.CycleRepository
	dir     string
}

// New returns an exporter. When dir is set every workbook is also archived there.
func New(gardens gardenrepo.GardenRepository, crops croprepo.CropRepository, cycles cyclerepo.CycleRepository, dir string) *Exporter {
	return &Exporter{gardens: gardens, crops: crops, cycles: cycles, dir: dir}
}

// Garden exports one garden's cycle.
func (e *Exporter) Garden(gardenID uint, cycle string) (*excelize.File, string, error) {
	g, err := e.gardens.FindByID(gardenID)
	if err != nil {
		return nil, "", err
	}
	if _, err := e.cycles.FindRun(gardenID, cycle); err != nil {
		return nil, "", err
	}
	return e.build([]entities.Garden{*g}, cycle, fmt.Sprintf("%s_%s.xlsx", g.Code, cycle))
}

// All exports every garden that has the cycle, one sheet each.
func (e *Exporter) All(cycle string) (*excelize.File, string, error) {
	gardens, err := e.gardens.List()
	if err != nil {
		return nil, "", err
	}
	with := make([]entities.Garden, 0, len(gardens))
	for _, g := range gardens {
		if _, err := e.cycles.FindRun(g.GardenID, cycle); err == nil {
			with = append(with, g)
		} else if !apperr.IsNotFound(err) {
			return nil, "", err
		}
	}
	if len(with) == 0 {
		return nil, "", apperr.ErrCycleNotFound
	}
	return e.build(with, cycle, fmt.Sprintf("rotation_%s.xlsx", cycle))
}

func (e *Exporter) build(gardens []entities.Garden, cycle, filename string) (*excelize.File, string, error) {
	categories, err := e.categories()
	if err != nil {
		return nil, "", err
	}
	catalog, err := e.crops.List("")
	if err != nil {
		return nil, "", err
	}
	names := make(map[uint]string, len(catalog))
	for _, c := range catalog {
		names[c.CropID] = c.Name
	}

	sheets := make([]Sheet, 0, len(gardens))
	for _, g := range gardens {
		plans, err := e.cycles.Plans(g.GardenID, cycle)
		if err != nil {
			return nil, "", err
		}
		sh := Sheet{Name: g.Code + " " + g.Name, Rows: make([]Row, len(plans))}
		for i := range plans {
			p := &plans[i]
			row := Row{
				Bed:      p.SubBed.BedNumber,
				Position: p.SubBed.Position,
				Reserve:  p.SubBed.IsReserve,
				Category: p.RealizedCategory(),
				Notes:    p.Notes,
			}
			if id := p.RealizedCropID(); id != nil {
				row.Crop = names[*id]
			}
			sh.Rows[i] = row
		}
		sheets = append(sheets, sh)
	}

	f, err := Build(sheets, categories)
	if err != nil {
		return nil, "", err
	}
	if err := e.archive(f, filename); err != nil {
		return nil, "", err
	}
	return f, filename, nil
}

func (e *Exporter) categories() ([]string, error) {
	steps, err := e.crops.Sequence()
	if err != nil {
		return nil, err
	}
	categories := make([]string, len(steps))
	for i, s := range steps {
		categories[i] = s.Category
	}
	return categories, nil
}

// archive keeps a copy in the export directory when one is configured.
func (e *Exporter) archive(f *excelize.File, filename string) error {
	if e.dir == "" {
		return nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	if err := f.SaveAs(filepath.Join(e.dir, filename)); err != nil {
		return fmt.Errorf("archive %s: %w", filename, err)
	}
	return nil
}
