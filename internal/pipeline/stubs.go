package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/pkg/nppes"
)

// Compile-time interface checks.
var (
	_ nppes.Client  = (*StubRegistry)(nil)
	_ TextGenerator = (*StubTextGenerator)(nil)
)

// DefaultStubAssessment is the plausibility reply used offline when the
// fixtures do not set one.
const DefaultStubAssessment = "Offline check: record format appears valid."

// Fixtures hold canned registry records and text replies for offline runs.
type Fixtures struct {
	Registry    map[string]FixtureProvider `yaml:"registry"`
	Specialties map[string]string          `yaml:"specialties"`
	Assessment  string                     `yaml:"assessment"`
}

// FixtureProvider is one canned registry record, keyed by NPI.
type FixtureProvider struct {
	FirstName  string           `yaml:"first_name" json:"first_name"`
	LastName   string           `yaml:"last_name" json:"last_name"`
	Credential string           `yaml:"credential" json:"credential"`
	Status     string           `yaml:"status" json:"status"`
	Taxonomies []nppes.Taxonomy `yaml:"taxonomies" json:"taxonomies"`
}

// LoadFixtures reads a fixtures YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read fixtures %s", path)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse fixtures %s", path)
	}
	return &f, nil
}

// --- Registry Stub ---

// StubRegistry implements nppes.Client from fixtures. Unknown numbers are
// reported as not found.
type StubRegistry struct {
	records map[string]FixtureProvider
}

// NewStubRegistry creates a StubRegistry. f may be nil.
func NewStubRegistry(f *Fixtures) *StubRegistry {
	s := &StubRegistry{records: map[string]FixtureProvider{}}
	if f != nil && f.Registry != nil {
		s.records = f.Registry
	}
	return s
}

// Lookup implements nppes.Client.
func (s *StubRegistry) Lookup(_ context.Context, number string) (*nppes.Provider, error) {
	rec, ok := s.records[number]
	if !ok {
		return nil, nil
	}

	raw, err := json.Marshal(struct {
		Number string          `json:"number"`
		Basic  FixtureProvider `json:"basic"`
	}{Number: number, Basic: rec})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal stub registry record")
	}

	return &nppes.Provider{
		Number:          number,
		EnumerationType: "NPI-1",
		FirstName:       rec.FirstName,
		LastName:        rec.LastName,
		Credential:      rec.Credential,
		Status:          rec.Status,
		Taxonomies:      rec.Taxonomies,
		Raw:             raw,
	}, nil
}

// --- Text Stub ---

// StubTextGenerator implements TextGenerator with fixed replies.
type StubTextGenerator struct {
	assessment  string
	specialties map[string]string
}

// NewStubTextGenerator creates a StubTextGenerator. f may be nil.
func NewStubTextGenerator(f *Fixtures) *StubTextGenerator {
	s := &StubTextGenerator{assessment: DefaultStubAssessment, specialties: map[string]string{}}
	if f != nil {
		if f.Assessment != "" {
			s.assessment = f.Assessment
		}
		for name, spec := range f.Specialties {
			s.specialties[strings.ToLower(name)] = spec
		}
	}
	return s
}

// Generate implements TextGenerator.
func (s *StubTextGenerator) Generate(_ context.Context, req TextRequest) (string, error) {
	switch req.Purpose {
	case PurposeSpecialty:
		if spec, ok := s.specialties[strings.ToLower(req.Subject)]; ok {
			return spec, nil
		}
		return model.DefaultSpecialty, nil
	default:
		return s.assessment, nil
	}
}
