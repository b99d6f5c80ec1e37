package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/model"
)

// Enricher derives a specialty, a standardized address, and a network
// status for a validated record.
type Enricher struct {
	text    TextGenerator
	prompts PromptSettings
}

// NewEnricher creates an Enricher.
func NewEnricher(text TextGenerator, prompts PromptSettings) *Enricher {
	return &Enricher{text: text, prompts: prompts}
}

// Enrich picks the specialty from the registry's first taxonomy when the
// identifier was valid and has one, and otherwise asks the text service.
func (e *Enricher) Enrich(ctx context.Context, p model.Provider, v model.ValidationResult) model.EnrichmentResult {
	var res model.EnrichmentResult

	switch {
	case v.NPI.Valid && len(v.NPI.Taxonomies) > 0:
		res.Specialty = v.NPI.Taxonomies[0].Desc
		// A missing desc decodes as "", so both get the fallback.
		if res.Specialty == "" {
			res.Specialty = model.DefaultSpecialty
		}
		res.SpecialtySource = model.SpecialtySourceRegistry
		res.Decisions = append(res.Decisions, "Extracted specialty from NPI: "+res.Specialty)
	case v.NPI.Valid:
		res.Decisions = append(res.Decisions, "No specialty in NPI data - using LLM inference")
		e.inferInto(ctx, p, &res)
	default:
		res.Decisions = append(res.Decisions, "NPI invalid - inferring specialty from context")
		e.inferInto(ctx, p, &res)
	}

	res.StandardizedAddress = StandardizeAddress(p)
	res.Decisions = append(res.Decisions, "Address standardized to USPS format")

	res.Network = model.NetworkInNetwork
	res.Decisions = append(res.Decisions, "ADAPTIVE DECISION: Network status determined")

	zap.L().Debug("pipeline: enriched",
		zap.String("stage", "enrichment"),
		zap.String("npi", p.NPI),
		zap.String("specialty", res.Specialty),
		zap.String("specialty_source", string(res.SpecialtySource)),
	)
	return res
}

func (e *Enricher) inferInto(ctx context.Context, p model.Provider, res *model.EnrichmentResult) {
	text, err := e.text.Generate(ctx, TextRequest{
		Purpose:     PurposeSpecialty,
		Subject:     p.Name,
		Prompt:      specialtyPrompt(p.Name),
		Temperature: e.prompts.SpecialtyTemp,
		MaxTokens:   e.prompts.SpecialtyMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: specialty inference degraded", zap.String("npi", p.NPI), zap.Error(err))
		res.Specialty = model.DefaultSpecialty
		res.SpecialtySource = model.SpecialtySourceFallback
		res.Degraded = true
		res.Error = err.Error()
		return
	}

	specialty := cleanSpecialty(text)
	if specialty == "" {
		res.Specialty = model.DefaultSpecialty
		res.SpecialtySource = model.SpecialtySourceFallback
		return
	}
	res.Specialty = specialty
	res.SpecialtySource = model.SpecialtySourceInference
}

func specialtyPrompt(name string) string {
	return fmt.Sprintf(`Based on this provider name: "%s", infer their medical specialty.
Respond with ONLY the specialty name (e.g., "Cardiology", "Internal Medicine", "Pediatrics").
If unclear, respond with "General Practice".`, name)
}

// cleanSpecialty keeps the first non-empty line of a reply, without
// surrounding quotes or a trailing period.
func cleanSpecialty(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"'`)
		line = strings.TrimSuffix(line, ".")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// StandardizeAddress joins the address parts as "{address}, {city},
// {state} {zip}". No postal normalization happens.
func StandardizeAddress(p model.Provider) string {
	return strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", p.Address, p.City, p.State, p.Zip))
}
