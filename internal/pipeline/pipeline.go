// Package pipeline runs provider records through validation, enrichment,
// quality checking, and case management.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/internal/resilience"
	"github.com/sells-group/provider-cli/pkg/nppes"
)

// AgentsUsed names the stages every record passes through, in order.
var AgentsUsed = []string{"Validation", "Enrichment", "QA", "Management"}

// Store is the part of the record store the pipeline writes to.
type Store interface {
	UpsertProvider(ctx context.Context, rec model.FinalRecord) error
	SaveBatchRun(ctx context.Context, run model.BatchRun) error
}

// Pipeline drives records through the four stages in a fixed order.
type Pipeline struct {
	validator *Validator
	enricher  *Enricher
	checker   *QualityChecker
	manager   *CaseManager

	store              Store
	persistConcurrency int
	now                func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists every final record and batch run to s.
func WithStore(s Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithPersistConcurrency sets how many upserts may run at once during a
// batch. Values below 2 keep writes sequential.
func WithPersistConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.persistConcurrency = n
	}
}

// WithClock replaces time.Now for audit and processed-at timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New wires the four stages. registryGuard may be nil.
func New(registry nppes.Client, registryGuard *resilience.Guard, text TextGenerator, prompts PromptSettings, opts ...Option) *Pipeline {
	p := &Pipeline{
		persistConcurrency: 1,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.validator = NewValidator(registry, registryGuard, text, prompts)
	p.enricher = NewEnricher(text, prompts)
	p.checker = NewQualityChecker()
	p.manager = NewCaseManager(p.now)
	return p
}

// ProcessProvider runs one record through every stage and persists the
// final record when a store is configured. A failed write is reported on
// the result and does not fail the call.
func (p *Pipeline) ProcessProvider(ctx context.Context, in model.Provider) model.ProviderResult {
	res := p.process(ctx, in)
	if err := p.persist(ctx, res.FinalRecord); err != nil {
		res.PersistError = err.Error()
	}
	return res
}

func (p *Pipeline) process(ctx context.Context, in model.Provider) model.ProviderResult {
	log := zap.L().With(zap.String("npi", in.NPI), zap.String("provider", in.DisplayName()))
	start := time.Now()

	v := p.validator.Validate(ctx, in)
	e := p.enricher.Enrich(ctx, in, v)
	q := p.checker.Check(in, v, e)
	m := p.manager.Manage(in, v, e, q)

	elapsed := time.Since(start)
	log.Info("pipeline: provider processed",
		zap.String("validation_status", string(v.Status)),
		zap.String("status", string(q.FinalStatus)),
		zap.Float64("confidence", q.FinalConfidence),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return model.ProviderResult{
		Input:          in,
		Validation:     v,
		Enrichment:     e,
		QA:             q,
		Management:     m,
		FinalRecord:    m.FinalRecord,
		ProcessingTime: model.Round2(elapsed.Seconds()),
		AgentsUsed:     append([]string(nil), AgentsUsed...),
	}
}

func (p *Pipeline) persist(ctx context.Context, rec model.FinalRecord) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.UpsertProvider(ctx, rec); err != nil {
		zap.L().Error("pipeline: persist failed", zap.String("npi", rec.NPI), zap.Error(err))
		return err
	}
	return nil
}
