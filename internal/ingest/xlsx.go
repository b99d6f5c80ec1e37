package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX returns every row of the sheet at sheetIndex as strings.
func readXLSX(path string, sheetIndex int) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: xlsx: open %s", path)
	}
	if sheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: xlsx: sheet index %d out of range (file has %d sheets)", sheetIndex, len(f.Sheets))
	}

	sheet := f.Sheets[sheetIndex]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
