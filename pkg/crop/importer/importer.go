// Package importer reads crop catalog rows from CSV, XLSX and HTML tables.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// Row is one crop read from a source. Line is 1-based and counts the header.
type Row struct {
	Line     int    `json:"line"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Family   string `json:"family,omitempty"`
	Species  string `json:"species,omitempty"`
}

type Skipped struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Result struct {
	Rows    []Row     `json:"rows"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

var (
	nameAliases     = []string{"name", "crop", "crop_name", "nom", "culture"}
	categoryAliases = []string{"category", "categorie", "catégorie", "group"}
	familyAliases   = []string{"family", "famille", "botanical_family"}
	speciesAliases  = []string{"species", "espece", "espèce", "base_species"}
)

// DetectFormat picks a format from the file extension, then the content type.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/csv"):
		return FormatCSV, nil
	case strings.Contains(ct, "spreadsheetml"):
		return FormatXLSX, nil
	case strings.Contains(ct, "text/html"):
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported import file %q (%s)", filename, contentType)
}

func Parse(r io.Reader, f Format) (*Result, error) {
	switch f {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	case FormatHTML:
		return ParseHTML(r)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return fromRecords(records)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Result, error) {
	x, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer x.Close()
	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheet")
	}
	records, err := x.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// ParseHTML reads the first table of the page; header cells may be th or td.
func ParseHTML(r io.Reader) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("no table found")
	}
	var records [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var rec []string
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			rec = append(rec, strings.Join(strings.Fields(cell.Text()), " "))
		})
		if len(rec) > 0 {
			records = append(records, rec)
		}
	})
	return fromRecords(records)
}

// FetchURL downloads a CSV, XLSX or HTML document and parses it.
func FetchURL(ctx context.Context, u string, maxBytes int) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	if resp.ContentLength > int64(maxBytes) {
		return nil, fmt.Errorf("document too large")
	}
	// one byte over the limit tells a full document from a cut one
	b, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBytes {
		return nil, fmt.Errorf("document too large")
	}
	f, err := DetectFormat(resp.Request.URL.Path, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(b), f)
}

func fromRecords(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.New("empty document")
	}
	head := records[0]

	// Build normalized header map
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "\uFEFF") // BOM
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, "-", "")
		s = strings.ReplaceAll(s, "_", "")
		return s
	}
	hmap := map[string]int{}
	for i, h := range head {
		hmap[norm(h)] = i
	}
	// Accept multiple aliases
	findAny := func(keys ...string) int {
		for _, k := range keys {
			if idx, ok := hmap[norm(k)]; ok {
				return idx
			}
		}
		return -1
	}

	cName := findAny(nameAliases...)
	cCat := findAny(categoryAliases...)
	cFam := findAny(familyAliases...)
	cSpec := findAny(speciesAliases...)
	if cName == -1 || cCat == -1 {
		return nil, fmt.Errorf("missing required columns. Found headers: %v. Need at least: name, category", head)
	}

	res := &Result{}
	for i, rec := range records[1:] {
		line := i + 2
		// guard against short rows
		get := func(idx int) string {
			if idx < 0 || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		row := Row{Line: line, Name: get(cName), Category: get(cCat), Family: get(cFam), Species: get(cSpec)}
		switch {
		case row.Name == "" && row.Category == "":
			continue // blank line
		case row.Name == "":
			res.Skipped = append(res.Skipped, Skipped{Line: line, Reason: "missing name"})
		case row.Category == "":
			res.Skipped = append(res.Skipped, Skipped{Line: line, Reason: "missing category"})
		default:
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}
