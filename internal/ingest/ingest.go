// Package ingest reads provider batches from CSV, gzipped CSV, and XLSX files.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-cli/internal/model"
)

// Columns recognized in the header row. Matching ignores case and
// surrounding whitespace; other columns are ignored.
const (
	ColName      = "name"
	ColNPI       = "npi"
	ColPhone     = "phone"
	ColEmail     = "email"
	ColAddress   = "address"
	ColCity      = "city"
	ColState     = "state"
	ColZip       = "zip"
	ColSpecialty = "specialty"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = eris.New("ingest: missing header row")

// ReadFile loads every provider row from path. The format follows the
// extension: .csv, .csv.gz (or .gz), or .xlsx.
func ReadFile(ctx context.Context, path string) ([]model.Provider, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		rows, err := readXLSX(path, 0)
		if err != nil {
			return nil, err
		}
		return fromRows(rows)
	case strings.HasSuffix(lower, ".gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()

		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: gzip %s", path)
		}
		defer zr.Close()
		return ReadCSV(ctx, zr)
	case strings.HasSuffix(lower, ".csv"):
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadCSV(ctx, f)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses providers from CSV data with a header row.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Provider, error) {
	rowCh, errCh := streamCSV(ctx, r)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return fromRows(rows)
}

// fromRows maps rows to providers using the first row as the header.
// Fully blank rows are skipped.
func fromRows(rows [][]string) ([]model.Provider, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	idx := headerIndex(rows[0])
	if len(idx) == 0 {
		return nil, eris.Wrapf(ErrNoHeader, "ingest: no known columns in %v", rows[0])
	}

	providers := make([]model.Provider, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		providers = append(providers, model.Provider{
			Name:      get(ColName),
			NPI:       get(ColNPI),
			Phone:     get(ColPhone),
			Email:     get(ColEmail),
			Address:   get(ColAddress),
			City:      get(ColCity),
			State:     get(ColState),
			Zip:       get(ColZip),
			Specialty: get(ColSpecialty),
		})
	}
	return providers, nil
}

func headerIndex(header []string) map[string]int {
	known := map[string]bool{
		ColName: true, ColNPI: true, ColPhone: true, ColEmail: true, ColAddress: true,
		ColCity: true, ColState: true, ColZip: true, ColSpecialty: true,
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !known[key] {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
