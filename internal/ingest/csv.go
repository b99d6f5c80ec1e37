package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// streamCSV reads CSV records and sends them on the row channel, header
// included. Both channels are closed when reading completes.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1 // allow ragged rows
		reader.LazyQuotes = true

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
