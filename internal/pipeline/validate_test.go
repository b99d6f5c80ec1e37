package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/internal/resilience"
	"github.com/sells-group/provider-cli/pkg/nppes"
	nppesmocks "github.com/sells-group/provider-cli/pkg/nppes/mocks"
)

func TestCheckNPI_FormatErrorNeverCallsRegistry(t *testing.T) {
	tests := []string{"", "123", "12345678901", "abc-def", "123-456-789", "1234 5678 901"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			reg := nppesmocks.NewMockClient(t)
			v := NewValidator(reg, nil, fixedText("", ""), DefaultPromptSettings())

			got := v.CheckNPI(context.Background(), raw)
			assert.False(t, got.Valid)
			assert.Equal(t, "NPI must be 10 digits", got.Error)
			assert.Equal(t, model.CheckErrorFormat, got.ErrorKind)
			assert.Equal(t, raw, got.NPI)
			reg.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckNPI_NormalizesDigits(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)
	reg.On("Lookup", mock.Anything, "1234567893").Return(&nppes.Provider{
		Number:     "1234567893",
		FirstName:  "SARAH",
		LastName:   "JOHNSON",
		Credential: "MD",
		Status:     "A",
		Taxonomies: []nppes.Taxonomy{{Code: "207RC0000X", Desc: "Cardiovascular Disease", Primary: true}},
		Raw:        []byte(`{"number":"1234567893"}`),
	}, nil)

	v := NewValidator(reg, nil, fixedText("", ""), DefaultPromptSettings())
	got := v.CheckNPI(context.Background(), "123-456-7893")

	require.True(t, got.Valid)
	assert.Equal(t, "1234567893", got.NPI)
	assert.Equal(t, "SARAH JOHNSON", got.Name)
	assert.Equal(t, "MD", got.Credential)
	assert.Equal(t, "A", got.Status)
	require.Len(t, got.Taxonomies, 1)
	assert.Equal(t, "Cardiovascular Disease", got.Taxonomies[0].Desc)
	assert.JSONEq(t, `{"number":"1234567893"}`, string(got.Raw))
	assert.Empty(t, got.Error)
}

func TestCheckNPI_NotFound(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)
	reg.On("Lookup", mock.Anything, "1234567893").Return(nil, nil)

	got := NewValidator(reg, nil, fixedText("", ""), DefaultPromptSettings()).CheckNPI(context.Background(), "1234567893")
	assert.False(t, got.Valid)
	assert.Equal(t, "NPI not found in registry", got.Error)
	assert.Equal(t, model.CheckErrorNotFound, got.ErrorKind)
}

func TestCheckNPI_ServiceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", &nppes.StatusError{StatusCode: http.StatusBadRequest}, "API error: 400"},
		{"transient status", resilience.NewTransientError(&nppes.StatusError{StatusCode: 503}, 503), "API error: 503"},
		{"network", errors.New("dial tcp: no route to host"), "Validation error: dial tcp: no route to host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := nppesmocks.NewMockClient(t)
			reg.On("Lookup", mock.Anything, "1234567893").Return(nil, tt.err)

			got := NewValidator(reg, nil, fixedText("", ""), DefaultPromptSettings()).CheckNPI(context.Background(), "1234567893")
			assert.False(t, got.Valid)
			assert.Equal(t, tt.want, got.Error)
			assert.Equal(t, model.CheckErrorService, got.ErrorKind)
		})
	}
}

func TestCheckNPI_RetriesTransientRegistryFailures(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)
	reg.On("Lookup", mock.Anything, "1234567893").
		Return(nil, resilience.NewTransientError(&nppes.StatusError{StatusCode: 429}, 429)).Once()
	reg.On("Lookup", mock.Anything, "1234567893").
		Return(&nppes.Provider{Number: "1234567893", FirstName: "A", LastName: "B"}, nil).Once()

	guard := resilience.NewGuard(ServiceRegistry,
		resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1, MaxBackoff: 1},
		resilience.DefaultCircuitBreakerConfig())

	got := NewValidator(reg, guard, fixedText("", ""), DefaultPromptSettings()).CheckNPI(context.Background(), "1234567893")
	assert.True(t, got.Valid)
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"555-123-4567", true},
		{"(617) 555-0100", true},
		{"6175550100", true},
		{"+1 617 555 0100", false},
		{"555-0100", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPhone(tt.phone), tt.phone)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("sarah.johnson@clinic.org"))
	assert.True(t, ValidEmail("a+b@x.io"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a@b.c"))
}

func TestScoreValidation_Weights(t *testing.T) {
	assert.InDelta(t, 1.0, ScoreValidation(true, true, "Looks VALID."), 1e-9)
	assert.InDelta(t, 0.8, ScoreValidation(true, true, "suspicious"), 1e-9)
	assert.InDelta(t, 0.7, ScoreValidation(true, false, "valid"), 1e-9)
	assert.InDelta(t, 0.6, ScoreValidation(false, true, "valid"), 1e-9)
	assert.InDelta(t, 0.3, ScoreValidation(false, false, "valid"), 1e-9)
	assert.InDelta(t, 0.1, ScoreValidation(false, false, ""), 1e-9)
	// "invalid" contains "valid".
	assert.InDelta(t, 0.3, ScoreValidation(false, false, "This record is invalid"), 1e-9)
}

func TestScoreValidation_MonotonicAndBounded(t *testing.T) {
	assessments := []string{"", "valid"}
	for _, a := range assessments {
		none := ScoreValidation(false, false, a)
		one := ScoreValidation(true, false, a)
		other := ScoreValidation(false, true, a)
		both := ScoreValidation(true, true, a)
		assert.LessOrEqual(t, none, one)
		assert.LessOrEqual(t, none, other)
		assert.LessOrEqual(t, one, both)
		assert.LessOrEqual(t, other, both)
		for _, s := range []float64{none, one, other, both} {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestClassifyValidation_Boundaries(t *testing.T) {
	tests := []struct {
		conf float64
		want model.ValidationStatus
	}{
		{1.0, model.ValidationStatusValidated},
		{0.7, model.ValidationStatusValidated},
		{0.699999, model.ValidationStatusReview},
		{0.4, model.ValidationStatusReview},
		{0.399999, model.ValidationStatusRejected},
		{0.0, model.ValidationStatusRejected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyValidation(tt.conf), "confidence %v", tt.conf)
	}
}

func TestValidate_FullRecord(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)
	reg.On("Lookup", mock.Anything, "1234567893").Return(&nppes.Provider{Number: "1234567893", FirstName: "SARAH", LastName: "JOHNSON"}, nil)

	var prompt TextRequest
	text := textFunc(func(_ context.Context, req TextRequest) (string, error) {
		prompt = req
		return "This appears to be a valid provider.", nil
	})

	p := sampleProvider()
	p.Email = "sarah@clinic.org"
	got := NewValidator(reg, nil, text, DefaultPromptSettings()).Validate(context.Background(), p)

	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	assert.Equal(t, model.ValidationStatusValidated, got.Status)
	require.NotNil(t, got.EmailValid)
	assert.True(t, *got.EmailValid)
	assert.False(t, got.Assessment.Degraded)
	assert.Equal(t, []string{
		"NPI validated against CMS registry",
		"Phone format validated",
		"Email format validated",
		"AUTONOMOUS DECISION: High confidence - Auto-approved",
	}, got.Decisions)

	assert.Equal(t, PurposePlausibility, prompt.Purpose)
	assert.Equal(t, "Dr. Sarah Johnson", prompt.Subject)
	assert.InDelta(t, 0.3, prompt.Temperature, 1e-9)
	assert.Equal(t, int64(150), prompt.MaxTokens)
	assert.Contains(t, prompt.Prompt, "Provider: Dr. Sarah Johnson")
	assert.Contains(t, prompt.Prompt, "NPI: 1234567893 - Valid")
	assert.Contains(t, prompt.Prompt, "Phone: (617) 555-0100 - Valid format")
	assert.Contains(t, prompt.Prompt, "Address: 1 Main St, Boston, MA")
	assert.True(t, strings.HasSuffix(prompt.Prompt, "Answer in 1-2 sentences."))
}

func TestValidate_TextServiceDegrades(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)

	p := sampleProvider()
	p.NPI = "12"
	p.Phone = "555"
	got := NewValidator(reg, nil, failingText("overloaded"), DefaultPromptSettings()).Validate(context.Background(), p)

	assert.True(t, got.Assessment.Degraded)
	assert.True(t, strings.HasPrefix(got.Assessment.Text, "LLM analysis unavailable: "))
	assert.Contains(t, got.Assessment.Error, "overloaded")
	assert.InDelta(t, 0.1, got.Confidence, 1e-9)
	assert.Equal(t, model.ValidationStatusRejected, got.Status)
	assert.Nil(t, got.EmailValid)
	assert.Equal(t, []string{
		"NPI validation failed: NPI must be 10 digits",
		"Phone format invalid - flagging for review",
		"AUTONOMOUS DECISION: Low confidence - Rejected",
	}, got.Decisions)
}

func TestValidate_InvalidEmailDoesNotChangeConfidence(t *testing.T) {
	reg := nppesmocks.NewMockClient(t)
	reg.On("Lookup", mock.Anything, "1234567893").Return(nil, nil).Twice()
	v := NewValidator(reg, nil, fixedText("ok", ""), DefaultPromptSettings())

	p := sampleProvider()
	without := v.Validate(context.Background(), p)
	p.Email = "broken@"
	with := v.Validate(context.Background(), p)

	require.NotNil(t, with.EmailValid)
	assert.False(t, *with.EmailValid)
	assert.Equal(t, without.Confidence, with.Confidence)
	assert.Contains(t, with.Decisions, "Email format invalid - recorded for review")
}
