// Package report renders processed providers as CSV or XLSX tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provider-cli/internal/model"
)

// Header is the report column order.
var Header = []string{"Provider Name", "NPI", "Specialty", "Phone", "Status", "Confidence", "Processing Time"}

// Row is one report line. ProcessingTime is nil for records read back
// from the store.
type Row struct {
	Name           string
	NPI            string
	Specialty      string
	Phone          string
	Status         model.FinalStatus
	Confidence     float64
	ProcessingTime *float64
}

// Rows builds report rows from freshly processed results.
func Rows(results []model.ProviderResult) []Row {
	out := make([]Row, 0, len(results))
	for _, r := range results {
		secs := r.ProcessingTime
		out = append(out, Row{
			Name:           r.FinalRecord.Name,
			NPI:            r.FinalRecord.NPI,
			Specialty:      r.FinalRecord.Specialty,
			Phone:          r.FinalRecord.Phone,
			Status:         r.QA.FinalStatus,
			Confidence:     r.QA.FinalConfidence,
			ProcessingTime: &secs,
		})
	}
	return out
}

// StoredRows builds report rows from stored records.
func StoredRows(providers []model.StoredProvider) []Row {
	out := make([]Row, 0, len(providers))
	for _, p := range providers {
		out = append(out, Row{
			Name:       p.Name,
			NPI:        p.NPI,
			Specialty:  p.Specialty,
			Phone:      p.Phone,
			Status:     p.ValidationStatus,
			Confidence: p.ConfidenceScore,
		})
	}
	return out
}

// Strings formats r in Header order: confidence as a one-decimal
// percentage and processing time in seconds with two decimals.
func (r Row) Strings() []string {
	secs := ""
	if r.ProcessingTime != nil {
		secs = fmt.Sprintf("%.2f", *r.ProcessingTime)
	}
	return []string{
		r.Name,
		r.NPI,
		r.Specialty,
		r.Phone,
		string(r.Status),
		fmt.Sprintf("%.1f%%", r.Confidence*100),
		secs,
	}
}

// WriteCSV writes the header and rows as CSV.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", r.NPI)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteXLSX writes the header and rows to a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Providers")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	addRow(sheet, Header)
	for _, r := range rows {
		addRow(sheet, r.Strings())
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteFile writes rows to path, choosing XLSX for a .xlsx extension and
// CSV otherwise.
func WriteFile(path string, rows []Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "report: close %s", path)
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(f, rows)
	}
	return WriteCSV(f, rows)
}
