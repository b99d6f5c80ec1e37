package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provider-cli/internal/model"
)

// BatchOption configures one ProcessBatch call.
type BatchOption func(*batchOpts)

type batchOpts struct {
	source     string
	onProgress func(done, total int, r model.ProviderResult)
}

// WithSource records where the batch came from on the stored run.
func WithSource(source string) BatchOption {
	return func(o *batchOpts) {
		o.source = source
	}
}

// WithProgress calls fn after each record finishes its stages.
func WithProgress(fn func(done, total int, r model.ProviderResult)) BatchOption {
	return func(o *batchOpts) {
		o.onProgress = fn
	}
}

// ProcessBatch runs every record in input order and summarizes the outcome.
// Cancelling ctx stops the batch between records; the records finished so
// far are returned together with the context error.
func (p *Pipeline) ProcessBatch(ctx context.Context, providers []model.Provider, opts ...BatchOption) (*model.BatchResult, error) {
	if len(providers) == 0 {
		return nil, ErrEmptyBatch
	}

	var o batchOpts
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: batch started", zap.Int("providers", len(providers)), zap.String("source", o.source))

	start := time.Now()
	results := make([]model.ProviderResult, 0, len(providers))
	persistErrs := make([]string, len(providers))

	var g errgroup.Group
	parallel := p.store != nil && p.persistConcurrency > 1
	if parallel {
		g.SetLimit(p.persistConcurrency)
	}

	// A started record runs to completion; cancellation is honoured only
	// between records.
	recordCtx := context.WithoutCancel(ctx)

	var cancelErr error
	for i, in := range providers {
		if err := ctx.Err(); err != nil {
			cancelErr = eris.Wrapf(err, "pipeline: batch cancelled after %d of %d providers", i, len(providers))
			break
		}

		res := p.process(recordCtx, in)
		results = append(results, res)

		if parallel {
			rec := res.FinalRecord
			g.Go(func() error {
				if err := p.persist(recordCtx, rec); err != nil {
					persistErrs[i] = err.Error()
				}
				return nil
			})
		} else if err := p.persist(recordCtx, res.FinalRecord); err != nil {
			persistErrs[i] = err.Error()
			res.PersistError = persistErrs[i]
		}

		// In parallel mode the write may still be in flight, so
		// PersistError is only set on the returned results.
		if o.onProgress != nil {
			o.onProgress(i+1, len(providers), res)
		}
	}
	_ = g.Wait()

	for i := range results {
		results[i].PersistError = persistErrs[i]
	}

	if len(results) == 0 {
		return nil, cancelErr
	}

	summary, err := Summarize(results, time.Since(start))
	if err != nil {
		return nil, err
	}

	batch := &model.BatchResult{RunID: runID, Results: results, Summary: summary}
	p.saveRun(ctx, model.BatchRun{ID: runID, Source: o.source, Summary: summary, CreatedAt: p.now()})

	log.Info("pipeline: batch complete",
		zap.Int("approved", summary.Approved),
		zap.Int("needs_review", summary.NeedsReview),
		zap.Int("rejected", summary.Rejected),
		zap.Float64("avg_confidence", summary.AvgConfidence),
		zap.Float64("total_seconds", summary.TotalSeconds),
	)
	return batch, cancelErr
}

func (p *Pipeline) saveRun(ctx context.Context, run model.BatchRun) {
	if p.store == nil {
		return
	}
	// The run record is written even when the batch was cancelled.
	if err := p.store.SaveBatchRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Error("pipeline: save batch run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// Summarize counts final statuses and averages final confidence across
// results. elapsed is the wall time of the whole batch.
func Summarize(results []model.ProviderResult, elapsed time.Duration) (model.BatchSummary, error) {
	n := len(results)
	if n == 0 {
		return model.BatchSummary{}, ErrEmptyBatch
	}

	s := model.BatchSummary{Total: n}
	var confSum float64
	for _, r := range results {
		switch r.QA.FinalStatus {
		case model.FinalStatusApproved:
			s.Approved++
		case model.FinalStatusNeedsReview:
			s.NeedsReview++
		case model.FinalStatusRejected:
			s.Rejected++
		}
		if r.PersistError != "" {
			s.PersistFailed++
		}
		confSum += r.QA.FinalConfidence
	}

	s.ApprovedPct = percent(s.Approved, n)
	s.NeedsReviewPct = percent(s.NeedsReview, n)
	s.RejectedPct = percent(s.Rejected, n)
	s.AvgConfidence = confSum / float64(n)
	s.TotalSeconds = model.Round2(elapsed.Seconds())
	if secs := elapsed.Seconds(); secs > 0 {
		s.Throughput = model.Round2(float64(n) / secs)
	}
	return s, nil
}

// percent returns part/total as a percentage rounded to one decimal.
func percent(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*1000) / 10
}
