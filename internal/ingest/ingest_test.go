package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provider-cli/internal/model"
)

const sampleCSV = `name,npi,phone,address,city,state,zip,specialty
Dr. Sarah Johnson,1234567890,555-123-4567,123 Medical Plaza,New York,NY,10001,
Dr. Michael Chen,9876543210,555-987-6543,456 Healthcare Ave,Los Angeles,CA,90001,Pediatrics
`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	got, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Provider{
		Name:    "Dr. Sarah Johnson",
		NPI:     "1234567890",
		Phone:   "555-123-4567",
		Address: "123 Medical Plaza",
		City:    "New York",
		State:   "NY",
		Zip:     "10001",
	}, got[0])
	assert.Equal(t, "Pediatrics", got[1].Specialty)
}

func TestReadCSV_MissingColumnsDefaultEmpty(t *testing.T) {
	data := "NPI , Name\n1234567890,Dr. A\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. A", got[0].Name)
	assert.Equal(t, "1234567890", got[0].NPI)
	assert.Empty(t, got[0].Phone)
	assert.Empty(t, got[0].Zip)
}

func TestReadCSV_RaggedAndBlankRows(t *testing.T) {
	data := "name,npi,phone,email\nDr. A,123\n,,,\nDr. B,456,555-000-1111,b@example.org\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Phone)
	assert.Equal(t, "b@example.org", got[1].Email)
}

func TestReadCSV_BOMHeader(t *testing.T) {
	data := "\ufeffname,npi\nDr. A,123\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. A", got[0].Name)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ReadCSV(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	got, err := ReadCSV(context.Background(), strings.NewReader("name,npi\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile_CSV(t *testing.T) {
	got, err := ReadFile(context.Background(), writeFile(t, "providers.csv", sampleCSV))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	got, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dr. Michael Chen", got[1].Name)
}

func TestReadFile_GzipCorrupt(t *testing.T) {
	_, err := ReadFile(context.Background(), writeFile(t, "bad.csv.gz", "not gzip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: gzip")
}

func TestReadFile_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Providers")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Name", "NPI", "Phone", "City"},
		{"Dr. Emily Rodriguez", "5555555555", "555-555-5555", "Chicago"},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "providers.xlsx")
	require.NoError(t, f.Save(path))

	got, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. Emily Rodriguez", got[0].Name)
	assert.Equal(t, "5555555555", got[0].NPI)
	assert.Equal(t, "Chicago", got[0].City)
	assert.Empty(t, got[0].State)
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(context.Background(), writeFile(t, "providers.json", "[]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported file type ".json"`)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = ReadFile(context.Background(), writeFile(t, "broken.xlsx", "not a zip"))
	assert.Error(t, err)
}

func TestSampleProviders(t *testing.T) {
	got := SampleProviders()
	require.Len(t, got, 5)
	for _, p := range got {
		assert.NotEmpty(t, p.Name)
		assert.Len(t, p.NPI, 10)
		assert.Empty(t, p.Specialty)
	}
}
