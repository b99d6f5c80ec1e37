package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/pkg/nppes"
)

func offlinePipeline(st Store, opts ...Option) *Pipeline {
	f := sampleFixtures()
	opts = append([]Option{WithClock(fixedClock())}, opts...)
	if st != nil {
		opts = append(opts, WithStore(st))
	}
	return New(NewStubRegistry(f), nil, NewStubTextGenerator(f), DefaultPromptSettings(), opts...)
}

func TestProcessProvider_EndToEnd(t *testing.T) {
	st := newMemStore()
	got := offlinePipeline(st).ProcessProvider(context.Background(), sampleProvider())

	assert.True(t, got.Validation.NPI.Valid)
	assert.Equal(t, model.ValidationStatusValidated, got.Validation.Status)
	assert.Equal(t, "Cardiology", got.Enrichment.Specialty)
	assert.Equal(t, model.SpecialtySourceInference, got.Enrichment.SpecialtySource)
	assert.Equal(t, model.FinalStatusApproved, got.QA.FinalStatus)
	assert.InDelta(t, 0.97, got.FinalRecord.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"Validation", "Enrichment", "QA", "Management"}, got.AgentsUsed)
	assert.Equal(t, got.Management.FinalRecord, got.FinalRecord)
	assert.GreaterOrEqual(t, got.ProcessingTime, 0.0)
	assert.Empty(t, got.PersistError)

	require.Contains(t, st.records, "1234567893")
	assert.Equal(t, got.FinalRecord, st.records["1234567893"])
}

func TestProcessProvider_PersistFailureIsReported(t *testing.T) {
	st := newMemStore()
	st.failFor["1234567893"] = true

	got := offlinePipeline(st).ProcessProvider(context.Background(), sampleProvider())
	assert.Equal(t, model.FinalStatusApproved, got.QA.FinalStatus)
	assert.Contains(t, got.PersistError, "disk full")
}

func TestProcessProvider_Idempotent(t *testing.T) {
	p := offlinePipeline(nil)

	first := p.ProcessProvider(context.Background(), sampleProvider())
	second := p.ProcessProvider(context.Background(), sampleProvider())

	// Timestamps come from the fixed clock, so the records match byte for byte.
	a, err := json.Marshal(first.FinalRecord)
	require.NoError(t, err)
	b, err := json.Marshal(second.FinalRecord)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestProcessProvider_DoesNotMutateInput(t *testing.T) {
	in := sampleProvider()
	before := in
	_ = offlinePipeline(nil).ProcessProvider(context.Background(), in)
	assert.Equal(t, before, in)
}

func resultWithStatus(status model.FinalStatus, conf float64) model.ProviderResult {
	return model.ProviderResult{QA: model.QAResult{FinalStatus: status, FinalConfidence: conf}}
}

func TestSummarize(t *testing.T) {
	results := []model.ProviderResult{
		resultWithStatus(model.FinalStatusApproved, 0.97),
		resultWithStatus(model.FinalStatusApproved, 0.9),
		resultWithStatus(model.FinalStatusNeedsReview, 0.7),
		resultWithStatus(model.FinalStatusRejected, 0.3),
		resultWithStatus(model.FinalStatusApproved, 0.88),
	}
	results[3].PersistError = "boom"

	s, err := Summarize(results, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Approved)
	assert.Equal(t, 1, s.NeedsReview)
	assert.Equal(t, 1, s.Rejected)
	assert.InDelta(t, 60.0, s.ApprovedPct, 1e-9)
	assert.InDelta(t, 20.0, s.NeedsReviewPct, 1e-9)
	assert.InDelta(t, 20.0, s.RejectedPct, 1e-9)
	assert.InDelta(t, 0.75, s.AvgConfidence, 1e-9)
	assert.InDelta(t, 2.0, s.TotalSeconds, 1e-9)
	assert.InDelta(t, 2.5, s.Throughput, 1e-9)
	assert.Equal(t, 1, s.PersistFailed)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil, time.Second)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSummarize_PercentRounding(t *testing.T) {
	results := []model.ProviderResult{
		resultWithStatus(model.FinalStatusApproved, 1),
		resultWithStatus(model.FinalStatusNeedsReview, 1),
		resultWithStatus(model.FinalStatusRejected, 1),
	}
	s, err := Summarize(results, 0)
	require.NoError(t, err)
	assert.InDelta(t, 33.3, s.ApprovedPct, 1e-9)
	assert.Zero(t, s.Throughput)
}

func TestProcessBatch_Empty(t *testing.T) {
	st := newMemStore()
	_, err := offlinePipeline(st).ProcessBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Empty(t, st.runs)
}

func batchInputs() []model.Provider {
	good := sampleProvider()

	badNPI := sampleProvider()
	badNPI.Name = "Dr. Michael Chen"
	badNPI.NPI = "12345"

	badAll := model.Provider{Name: "Unknown Clinic", NPI: "999", Phone: "12"}

	return []model.Provider{good, badNPI, badAll}
}

func TestProcessBatch_InOrderWithProgress(t *testing.T) {
	st := newMemStore()
	var progress []int

	res, err := offlinePipeline(st).ProcessBatch(context.Background(), batchInputs(),
		WithSource("providers.csv"),
		WithProgress(func(done, total int, _ model.ProviderResult) {
			assert.Equal(t, 3, total)
			progress = append(progress, done)
		}),
	)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int{1, 2, 3}, progress)

	assert.Equal(t, "Dr. Sarah Johnson", res.Results[0].Input.Name)
	assert.Equal(t, "Dr. Michael Chen", res.Results[1].Input.Name)
	assert.Equal(t, "Unknown Clinic", res.Results[2].Input.Name)

	assert.Equal(t, model.FinalStatusApproved, res.Results[0].QA.FinalStatus)
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Approved)
	assert.Equal(t, res.Summary.Total, res.Summary.Approved+res.Summary.NeedsReview+res.Summary.Rejected)

	require.Len(t, st.runs, 1)
	assert.Equal(t, res.RunID, st.runs[0].ID)
	assert.Equal(t, "providers.csv", st.runs[0].Source)
	assert.Equal(t, 3, st.upserts)
}

func TestProcessBatch_ParallelPersistence(t *testing.T) {
	st := newMemStore()
	st.failFor["12345"] = true

	res, err := offlinePipeline(st, WithPersistConcurrency(4)).ProcessBatch(context.Background(), batchInputs())
	require.NoError(t, err)

	assert.Equal(t, 3, st.upserts)
	assert.Empty(t, res.Results[0].PersistError)
	assert.Contains(t, res.Results[1].PersistError, "disk full")
	assert.Empty(t, res.Results[2].PersistError)
	assert.Equal(t, 1, res.Summary.PersistFailed)
}

func TestProcessBatch_CancelledBetweenRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	res, err := offlinePipeline(newMemStore()).ProcessBatch(ctx, batchInputs(),
		WithProgress(func(done, _ int, _ model.ProviderResult) {
			if done == 1 {
				cancel()
			}
		}),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Summary.Total)
}

// cancellingRegistry cancels the batch context during the first lookup and
// then fails like a real client would if it saw that context.
type cancellingRegistry struct {
	next   nppes.Client
	cancel context.CancelFunc
}

func (r *cancellingRegistry) Lookup(ctx context.Context, number string) (*nppes.Provider, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.next.Lookup(ctx, number)
}

func TestProcessBatch_CancelDuringRecordFinishesRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := sampleFixtures()
	st := newMemStore()
	registry := &cancellingRegistry{next: NewStubRegistry(f), cancel: cancel}
	p := New(registry, nil, NewStubTextGenerator(f), DefaultPromptSettings(),
		WithClock(fixedClock()), WithStore(st))

	good := sampleProvider()
	res, err := p.ProcessBatch(ctx, []model.Provider{good, good})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Len(t, res.Results, 1)

	got := res.Results[0]
	assert.True(t, got.Validation.NPI.Valid, got.Validation.NPI.Error)
	assert.Equal(t, model.FinalStatusApproved, got.QA.FinalStatus)
	assert.Equal(t, 0, res.Summary.Rejected)
	assert.Equal(t, 1, res.Summary.Approved)

	require.Len(t, st.runs, 1)
	assert.Equal(t, 0, st.runs[0].Summary.Rejected)
	assert.Equal(t, model.FinalStatusApproved, st.records[good.NPI].ValidationStatus)
}

func TestProcessBatch_ProgressSeesPersistError(t *testing.T) {
	st := newMemStore()
	st.failFor["12345"] = true

	seen := map[string]string{}
	_, err := offlinePipeline(st).ProcessBatch(context.Background(), batchInputs(),
		WithProgress(func(_, _ int, r model.ProviderResult) {
			seen[r.Input.NPI] = r.PersistError
		}),
	)
	require.NoError(t, err)
	assert.Contains(t, seen["12345"], "disk full")
	assert.Empty(t, seen["1234567893"])
}

func TestProcessBatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := offlinePipeline(nil).ProcessBatch(ctx, batchInputs())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	data := `
registry:
  "1234567893":
    first_name: SARAH
    last_name: JOHNSON
    credential: MD
    status: A
    taxonomies:
      - code: 207RC0000X
        desc: Cardiovascular Disease
        primary: true
specialties:
  Dr. Mike Chen: Pediatrics
assessment: Looks like a valid record.
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	f, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Contains(t, f.Registry, "1234567893")
	assert.Equal(t, "Cardiovascular Disease", f.Registry["1234567893"].Taxonomies[0].Desc)
	assert.True(t, f.Registry["1234567893"].Taxonomies[0].Primary)
	assert.Equal(t, "Pediatrics", f.Specialties["Dr. Mike Chen"])

	reg := NewStubRegistry(f)
	got, err := reg.Lookup(context.Background(), "1234567893")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SARAH JOHNSON", got.Name())
	assert.Contains(t, string(got.Raw), `"first_name":"SARAH"`)

	missing, err := reg.Lookup(context.Background(), "0000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	text := NewStubTextGenerator(f)
	spec, err := text.Generate(context.Background(), TextRequest{Purpose: PurposeSpecialty, Subject: "dr. mike chen"})
	require.NoError(t, err)
	assert.Equal(t, "Pediatrics", spec)

	spec, err = text.Generate(context.Background(), TextRequest{Purpose: PurposeSpecialty, Subject: "Someone Else"})
	require.NoError(t, err)
	assert.Equal(t, "General Practice", spec)
}

func TestLoadFixtures_Errors(t *testing.T) {
	_, err := LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry: [unclosed"), 0o644))
	_, err = LoadFixtures(path)
	assert.Error(t, err)
}

func TestStubTextGenerator_DefaultAssessment(t *testing.T) {
	got, err := NewStubTextGenerator(nil).Generate(context.Background(), TextRequest{Purpose: PurposePlausibility})
	require.NoError(t, err)
	assert.Equal(t, DefaultStubAssessment, got)
}
