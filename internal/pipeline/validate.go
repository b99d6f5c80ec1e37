package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/internal/resilience"
	"github.com/sells-group/provider-cli/pkg/nppes"
)

// Validation weights and thresholds.
const (
	weightIdentifier      = 0.4
	weightPhone           = 0.3
	weightAssessmentValid = 0.3
	weightAssessmentOther = 0.1

	thresholdValidated = 0.7
	thresholdReview    = 0.4
)

// Identifier failure reasons.
const (
	reasonNPIFormat   = "NPI must be 10 digits"
	reasonNPINotFound = "NPI not found in registry"
)

var (
	nonDigit     = regexp.MustCompile(`\D`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validator checks a record's identifier against the registry, its phone
// number against a format rule, and asks a text service whether the record
// looks plausible.
type Validator struct {
	registry nppes.Client
	guard    *resilience.Guard
	text     TextGenerator
	prompts  PromptSettings
}

// NewValidator creates a Validator. guard may be nil.
func NewValidator(registry nppes.Client, guard *resilience.Guard, text TextGenerator, prompts PromptSettings) *Validator {
	return &Validator{
		registry: registry,
		guard:    guard,
		text:     text,
		prompts:  prompts,
	}
}

// Validate runs the three checks and scores the record. It never fails:
// service outages degrade to invalid or fallback values.
func (v *Validator) Validate(ctx context.Context, p model.Provider) model.ValidationResult {
	log := zap.L().With(zap.String("stage", "validation"), zap.String("npi", p.NPI))
	var res model.ValidationResult

	res.NPI = v.CheckNPI(ctx, p.NPI)
	if res.NPI.Valid {
		res.Decisions = append(res.Decisions, "NPI validated against CMS registry")
	} else {
		res.Decisions = append(res.Decisions, "NPI validation failed: "+res.NPI.Error)
	}

	res.PhoneValid = ValidPhone(p.Phone)
	if res.PhoneValid {
		res.Decisions = append(res.Decisions, "Phone format validated")
	} else {
		res.Decisions = append(res.Decisions, "Phone format invalid - flagging for review")
	}

	if p.Email != "" {
		ok := ValidEmail(p.Email)
		res.EmailValid = &ok
		if ok {
			res.Decisions = append(res.Decisions, "Email format validated")
		} else {
			res.Decisions = append(res.Decisions, "Email format invalid - recorded for review")
		}
	}

	res.Assessment = v.assess(ctx, p, res.NPI.Valid, res.PhoneValid)

	res.Confidence = ScoreValidation(res.NPI.Valid, res.PhoneValid, res.Assessment.Text)
	res.Status = ClassifyValidation(res.Confidence)
	switch res.Status {
	case model.ValidationStatusValidated:
		res.Decisions = append(res.Decisions, "AUTONOMOUS DECISION: High confidence - Auto-approved")
	case model.ValidationStatusReview:
		res.Decisions = append(res.Decisions, "AUTONOMOUS DECISION: Medium confidence - Flagged for human review")
	default:
		res.Decisions = append(res.Decisions, "AUTONOMOUS DECISION: Low confidence - Rejected")
	}

	log.Debug("pipeline: validated",
		zap.String("status", string(res.Status)),
		zap.Float64("confidence", res.Confidence),
	)
	return res
}

// CheckNPI normalizes raw to digits and looks it up in the registry.
func (v *Validator) CheckNPI(ctx context.Context, raw string) model.NPICheck {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) != 10 {
		ferr := &FormatError{Field: "npi", Value: raw, Reason: reasonNPIFormat}
		return model.NPICheck{NPI: raw, Error: ferr.Error(), ErrorKind: model.CheckErrorFormat}
	}

	found, err := resilience.Call(ctx, v.guard, "lookup", func(ctx context.Context) (*nppes.Provider, error) {
		return v.registry.Lookup(ctx, digits)
	})
	if err != nil {
		serr := &ServiceError{Service: ServiceRegistry, Op: "lookup", Err: err}
		zap.L().Warn("pipeline: registry degraded", zap.String("npi", digits), zap.Error(serr))
		return model.NPICheck{NPI: digits, Error: registryReason(err), ErrorKind: model.CheckErrorService}
	}
	if found == nil {
		return model.NPICheck{NPI: digits, Error: reasonNPINotFound, ErrorKind: model.CheckErrorNotFound}
	}

	taxonomies := make([]model.Taxonomy, 0, len(found.Taxonomies))
	for _, t := range found.Taxonomies {
		taxonomies = append(taxonomies, model.Taxonomy{
			Code:    t.Code,
			Desc:    t.Desc,
			Primary: t.Primary,
			State:   t.State,
			License: t.License,
		})
	}

	return model.NPICheck{
		Valid:      true,
		NPI:        digits,
		Name:       found.Name(),
		Credential: found.Credential,
		Status:     found.Status,
		Taxonomies: taxonomies,
		Raw:        json.RawMessage(found.Raw),
	}
}

func registryReason(err error) string {
	if code := nppes.StatusCode(err); code != 0 {
		return fmt.Sprintf("API error: %d", code)
	}
	return "Validation error: " + err.Error()
}

func (v *Validator) assess(ctx context.Context, p model.Provider, npiValid, phoneValid bool) model.Assessment {
	text, err := v.text.Generate(ctx, TextRequest{
		Purpose:     PurposePlausibility,
		Subject:     p.Name,
		Prompt:      plausibilityPrompt(p, npiValid, phoneValid),
		Temperature: v.prompts.ValidationTemp,
		MaxTokens:   v.prompts.ValidationMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: plausibility check degraded", zap.String("npi", p.NPI), zap.Error(err))
		return model.Assessment{
			Text:     "LLM analysis unavailable: " + err.Error(),
			Degraded: true,
			Error:    err.Error(),
		}
	}
	return model.Assessment{Text: text}
}

func plausibilityPrompt(p model.Provider, npiValid, phoneValid bool) string {
	npiLabel := "Invalid"
	if npiValid {
		npiLabel = "Valid"
	}
	phoneLabel := "Invalid format"
	if phoneValid {
		phoneLabel = "Valid format"
	}

	var b strings.Builder
	b.WriteString("You are a healthcare data validation expert. Analyze this provider record:\n\n")
	fmt.Fprintf(&b, "Provider: %s\n", p.Name)
	fmt.Fprintf(&b, "NPI: %s - %s\n", p.NPI, npiLabel)
	fmt.Fprintf(&b, "Phone: %s - %s\n", p.Phone, phoneLabel)
	fmt.Fprintf(&b, "Address: %s, %s, %s\n\n", p.Address, p.City, p.State)
	b.WriteString("Does this look like a legitimate healthcare provider record? Answer in 1-2 sentences.")
	return b.String()
}

// ValidPhone reports whether phone has exactly 10 digits once non-digits
// are stripped. Country codes are not removed.
func ValidPhone(phone string) bool {
	return len(nonDigit.ReplaceAllString(phone, "")) == 10
}

// ValidEmail reports whether email matches a basic address pattern.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ScoreValidation adds up the validation weights. The assessment counts in
// full when it mentions "valid" in any case.
func ScoreValidation(npiValid, phoneValid bool, assessment string) float64 {
	score := 0.0
	if npiValid {
		score += weightIdentifier
	}
	if phoneValid {
		score += weightPhone
	}
	if strings.Contains(strings.ToLower(assessment), "valid") {
		score += weightAssessmentValid
	} else {
		score += weightAssessmentOther
	}
	return score
}

// ClassifyValidation maps a validation confidence to a status.
func ClassifyValidation(confidence float64) model.ValidationStatus {
	switch {
	case confidence >= thresholdValidated:
		return model.ValidationStatusValidated
	case confidence >= thresholdReview:
		return model.ValidationStatusReview
	default:
		return model.ValidationStatusRejected
	}
}
