package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-cli/internal/model"
)

func TestNamesConsistent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Dr. Sarah Johnson", "SARAH JOHNSON", true},
		{"Dr. Sarah Johnson", "Michael Chen", false},
		{"Johnson, Sarah", "SARAH JOHNSON", true},
		{"Sarah Johnson", "Sarah Smith", false},
		{"Dr. Sarah J. Johnson", "SARAH J JOHNSON", true},
		{"Sarah", "SARAH", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NamesConsistent(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestGradeSpecialty(t *testing.T) {
	assert.Equal(t, model.SpecialtyConfidenceHigh, GradeSpecialty("Cardiology"))
	assert.Equal(t, model.SpecialtyConfidenceLow, GradeSpecialty("General Practice"))
	assert.Equal(t, model.SpecialtyConfidenceLow, GradeSpecialty(""))
}

func TestScoreQuality(t *testing.T) {
	got := ScoreQuality(1.0, model.SpecialtyConfidenceHigh, true)
	assert.InDelta(t, 0.97, got, 1e-9)
	assert.Equal(t, model.FinalStatusApproved, ClassifyQuality(got))

	assert.InDelta(t, 0.82, ScoreQuality(0.7, model.SpecialtyConfidenceHigh, true), 1e-9)
	assert.InDelta(t, 0.48, ScoreQuality(0.4, model.SpecialtyConfidenceLow, false), 1e-9)
	assert.InDelta(t, 0.28, ScoreQuality(0.0, model.SpecialtyConfidenceLow, false), 1e-9)
}

func TestClassifyQuality_Boundaries(t *testing.T) {
	tests := []struct {
		conf float64
		want model.FinalStatus
	}{
		{0.97, model.FinalStatusApproved},
		{0.85, model.FinalStatusApproved},
		{0.849999, model.FinalStatusNeedsReview},
		{0.6, model.FinalStatusNeedsReview},
		{0.599999, model.FinalStatusRejected},
		{0.0, model.FinalStatusRejected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyQuality(tt.conf), "confidence %v", tt.conf)
	}
}

func TestCheck_ConsistentName(t *testing.T) {
	v := model.ValidationResult{Confidence: 1.0, NPI: model.NPICheck{Valid: true, Name: "SARAH JOHNSON"}}
	e := model.EnrichmentResult{Specialty: "Cardiology"}

	got := NewQualityChecker().Check(sampleProvider(), v, e)

	require.NotNil(t, got.Checks.NameConsistency)
	assert.True(t, *got.Checks.NameConsistency)
	assert.Equal(t, model.SpecialtyConfidenceHigh, got.Checks.SpecialtyConfidence)
	assert.Empty(t, got.Corrections)
	assert.InDelta(t, 0.97, got.FinalConfidence, 1e-9)
	assert.Equal(t, model.FinalStatusApproved, got.FinalStatus)
	assert.Equal(t, []string{
		"Name consistency verified",
		"Specialty 'Cardiology' appears valid",
		"AUTONOMOUS DECISION: High quality - Approved",
	}, got.Decisions)
}

func TestCheck_NameMismatch(t *testing.T) {
	v := model.ValidationResult{Confidence: 0.7, NPI: model.NPICheck{Valid: true, Name: "MICHAEL CHEN"}}
	e := model.EnrichmentResult{Specialty: "General Practice"}

	got := NewQualityChecker().Check(sampleProvider(), v, e)

	require.NotNil(t, got.Checks.NameConsistency)
	assert.False(t, *got.Checks.NameConsistency)
	assert.Equal(t, []string{"Name mismatch detected: 'Dr. Sarah Johnson' vs 'MICHAEL CHEN'"}, got.Corrections)
	assert.Contains(t, got.Decisions, "SELF-CORRECTION: Flagging name inconsistency")
	assert.Contains(t, got.Decisions, "Specialty confidence low - may need verification")
	// 0.35 + 0.18 + 0.1
	assert.InDelta(t, 0.63, got.FinalConfidence, 1e-9)
	assert.Equal(t, model.FinalStatusNeedsReview, got.FinalStatus)
}

func TestCheck_UnsetNameScoresAsConsistent(t *testing.T) {
	e := model.EnrichmentResult{Specialty: "Cardiology"}

	// No registry name: the check is skipped, not failed.
	got := NewQualityChecker().Check(sampleProvider(), model.ValidationResult{Confidence: 0.3}, e)
	assert.Nil(t, got.Checks.NameConsistency)
	assert.Empty(t, got.Corrections)
	assert.InDelta(t, ScoreQuality(0.3, model.SpecialtyConfidenceHigh, true), got.FinalConfidence, 1e-9)

	// No submitted name.
	got = NewQualityChecker().Check(model.Provider{}, model.ValidationResult{NPI: model.NPICheck{Name: "SARAH JOHNSON"}}, e)
	assert.Nil(t, got.Checks.NameConsistency)
	assert.Equal(t, "AUTONOMOUS DECISION: Quality too low - Rejected", got.Decisions[len(got.Decisions)-1])
}
