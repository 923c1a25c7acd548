package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	gardensvc "github.com/hbiaou/crop-rotation/pkg/garden/service"
)

const (
	summarySheet = "Summary"
	cropsSheet   = "Crops by category"
)

var gardenHeaders = []string{"Code", "Name", "Beds", "Sub-beds", "Active", "Reserve", "Latest cycle"}

// BuildStatistics writes the all-gardens summary and the crop counts per
// category of each garden's latest cycle.
func BuildStatistics(st *gardensvc.GlobalStats, categories []string, day time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(cropsSheet); err != nil {
		return nil, err
	}

	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"375623"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	if err := writeSummary(f, st, day, title, header); err != nil {
		return nil, fmt.Errorf("sheet %s: %w", summarySheet, err)
	}
	if err := writeCropCounts(f, st, categories, title, bold); err != nil {
		return nil, fmt.Errorf("sheet %s: %w", cropsSheet, err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSummary(f *excelize.File, st *gardensvc.GlobalStats, day time.Time, title, header int) error {
	sh := summarySheet
	if err := f.SetCellValue(sh, "A1", "Global statistics"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, "A1", "A1", title); err != nil {
		return err
	}
	if err := f.SetCellValue(sh, "A2", "Date: "+day.Format("2006-01-02")); err != nil {
		return err
	}
	totals := [][]any{
		{"Gardens", st.TotalGardens},
		{"Beds", st.TotalBeds},
		{"Sub-beds", st.TotalSubBeds},
		{"Active sub-beds", st.ActiveSubBeds},
		{"Reserve sub-beds", st.ReserveSubBeds},
	}
	row := 4
	for _, t := range totals {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sh, cell, &t); err != nil {
			return err
		}
		row++
	}

	row++
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sh, cell, &gardenHeaders); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(gardenHeaders), row)
	if err := f.SetCellStyle(sh, cell, last, header); err != nil {
		return err
	}
	for _, g := range st.Gardens {
		row++
		cell, _ := excelize.CoordinatesToCellName(1, row)
		line := []any{g.Code, g.Name, g.Beds, g.TotalSubBeds, g.ActiveSubBeds, g.ReserveSubBeds, g.LatestCycle}
		if err := f.SetSheetRow(sh, cell, &line); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sh, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(sh, "B", "G", 14)
}

func writeCropCounts(f *excelize.File, st *gardensvc.GlobalStats, categories []string, title, bold int) error {
	sh := cropsSheet
	if err := f.SetCellValue(sh, "A1", "Crops by category (latest cycles)"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, "A1", "A1", title); err != nil {
		return err
	}
	byCat := make(map[string]gardensvc.CategoryStats, len(st.Categories))
	for _, cs := range st.Categories {
		byCat[cs.Category] = cs
	}

	row := 3
	for i, cat := range categories {
		fill, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{palette[i%len(palette)]}},
		})
		if err != nil {
			return err
		}
		cs := byCat[cat]
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sh, cell, &[]any{cat, cs.SubBeds}); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(sh, cell, end, fill); err != nil {
			return err
		}
		row++
		cell, _ = excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sh, cell, &[]any{"Crop", "Sub-beds"}); err != nil {
			return err
		}
		end, _ = excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(sh, cell, end, bold); err != nil {
			return err
		}
		row++
		if len(cs.Crops) == 0 {
			cell, _ = excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellValue(sh, cell, "(no crop)"); err != nil {
				return err
			}
			row++
		}
		for _, c := range cs.Crops {
			cell, _ = excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sh, cell, &[]any{c.Name, c.Count}); err != nil {
				return err
			}
			row++
		}
		row++
	}
	return f.SetColWidth(sh, "A", "B", 22)
}

// Statistics builds the global statistics workbook and archives it like the
// cycle exports.
func (e *Exporter) Statistics(st *gardensvc.GlobalStats, day time.Time) (*excelize.File, string, error) {
	categories, err := e.categories()
	if err != nil {
		return nil, "", err
	}
	f, err := BuildStatistics(st, categories, day)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("statistics_%s.xlsx", day.Format("20060102"))
	if err := e.archive(f, name); err != nil {
		return nil, "", err
	}
	return f, name, nil
}
