package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/sells-group/provider-cli/internal/model"
)

// batchProgress draws one bar for a batch and shows the last record's
// outcome beside it.
type batchProgress struct {
	container *mpb.Progress
	bar       *mpb.Bar
	last      *atomic.Value
}

func newBatchProgress(out io.Writer, total int) *batchProgress {
	last := &atomic.Value{}
	last.Store("")

	p := mpb.New(mpb.WithWidth(60), mpb.WithOutput(out))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("providers ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return last.Load().(string)
			}),
		),
	)
	return &batchProgress{container: p, bar: bar, last: last}
}

// Observe matches pipeline.WithProgress.
func (bp *batchProgress) Observe(done, _ int, r model.ProviderResult) {
	bp.last.Store(fmt.Sprintf("%s: %s", r.Input.DisplayName(), r.QA.FinalStatus))
	bp.bar.SetCurrent(int64(done))
}

// Wait stops the bar, leaving it on screen when the batch ended early.
func (bp *batchProgress) Wait() {
	if !bp.bar.Completed() {
		bp.bar.Abort(false)
	}
	bp.container.Wait()
}
