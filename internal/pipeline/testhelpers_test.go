package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-cli/internal/model"
)

// textFunc adapts a function to TextGenerator.
type textFunc func(ctx context.Context, req TextRequest) (string, error)

func (f textFunc) Generate(ctx context.Context, req TextRequest) (string, error) {
	return f(ctx, req)
}

// fixedText replies to plausibility prompts with assessment and to
// specialty prompts with specialty.
func fixedText(assessment, specialty string) textFunc {
	return func(_ context.Context, req TextRequest) (string, error) {
		if req.Purpose == PurposeSpecialty {
			return specialty, nil
		}
		return assessment, nil
	}
}

func failingText(msg string) textFunc {
	return func(_ context.Context, req TextRequest) (string, error) {
		return "", &ServiceError{Service: ServiceText, Op: req.Purpose, Err: eris.New(msg)}
	}
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	records map[string]model.FinalRecord
	runs    []model.BatchRun
	failFor map[string]bool
	upserts int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]model.FinalRecord{}, failFor: map[string]bool{}}
}

func (s *memStore) UpsertProvider(_ context.Context, rec model.FinalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failFor[rec.NPI] {
		return eris.New("store: disk full")
	}
	s.records[rec.NPI] = rec
	return nil
}

func (s *memStore) SaveBatchRun(_ context.Context, run model.BatchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func sampleProvider() model.Provider {
	return model.Provider{
		Name:    "Dr. Sarah Johnson",
		NPI:     "1234567893",
		Phone:   "(617) 555-0100",
		Address: "1 Main St",
		City:    "Boston",
		State:   "MA",
		Zip:     "02101",
	}
}

func sampleFixtures() *Fixtures {
	return &Fixtures{
		Registry: map[string]FixtureProvider{
			"1234567893": {
				FirstName:  "SARAH",
				LastName:   "JOHNSON",
				Credential: "MD",
				Status:     "A",
			},
		},
		Specialties: map[string]string{"Dr. Sarah Johnson": "Cardiology"},
		Assessment:  "This appears to be a valid provider record.",
	}
}
