package model

import (
	"encoding/json"
	"time"
)

// CheckErrorKind classifies why an identifier check failed.
type CheckErrorKind string

const (
	CheckErrorFormat   CheckErrorKind = "format"
	CheckErrorNotFound CheckErrorKind = "not_found"
	CheckErrorService  CheckErrorKind = "service"
)

// Taxonomy is one registry taxonomy entry.
type Taxonomy struct {
	Code    string `json:"code,omitempty"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary,omitempty"`
	State   string `json:"state,omitempty"`
	License string `json:"license,omitempty"`
}

// NPICheck is the outcome of checking an identifier against the registry.
type NPICheck struct {
	Valid      bool            `json:"valid"`
	NPI        string          `json:"npi"`
	Name       string          `json:"name,omitempty"`
	Credential string          `json:"credential,omitempty"`
	Status     string          `json:"status,omitempty"`
	Taxonomies []Taxonomy      `json:"taxonomies,omitempty"`
	Raw        json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  CheckErrorKind  `json:"error_kind,omitempty"`
}

// Assessment is the free-text plausibility narrative. Degraded is set when
// the text service failed and Text holds the fallback message.
type Assessment struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ValidationResult is produced once per record by the validator.
type ValidationResult struct {
	NPI        NPICheck         `json:"npi"`
	PhoneValid bool             `json:"phone"`
	EmailValid *bool            `json:"email,omitempty"`
	Assessment Assessment       `json:"llm_analysis"`
	Confidence float64          `json:"confidence"`
	Status     ValidationStatus `json:"status"`
	Decisions  []string         `json:"decisions"`
}

// SpecialtySource records where the enriched specialty came from.
type SpecialtySource string

const (
	SpecialtySourceRegistry  SpecialtySource = "registry"
	SpecialtySourceInference SpecialtySource = "inference"
	SpecialtySourceFallback  SpecialtySource = "fallback"
)

// EnrichmentResult is produced once per record by the enricher.
type EnrichmentResult struct {
	Specialty           string          `json:"specialty"`
	SpecialtySource     SpecialtySource `json:"specialty_source"`
	StandardizedAddress string          `json:"standardized_address"`
	Network             string          `json:"network"`
	Degraded            bool            `json:"degraded,omitempty"`
	Error               string          `json:"error,omitempty"`
	Decisions           []string        `json:"decisions"`
}

// AppliedKeys lists the enrichment keys set on the result, in application order.
func (e EnrichmentResult) AppliedKeys() []string {
	return []string{EnrichmentKeySpecialty, EnrichmentKeyStandardizedAddress, EnrichmentKeyNetwork}
}

// QAChecks holds the individual quality checks. NameConsistency is nil when
// either name was missing and the check was skipped.
type QAChecks struct {
	NameConsistency     *bool               `json:"name_consistency,omitempty"`
	SpecialtyConfidence SpecialtyConfidence `json:"specialty_confidence"`
}

// QAResult is produced once per record by the quality checker.
type QAResult struct {
	Checks          QAChecks    `json:"checks"`
	Corrections     []string    `json:"corrections"`
	FinalConfidence float64     `json:"final_confidence"`
	FinalStatus     FinalStatus `json:"final_status"`
	Decisions       []string    `json:"decisions"`
}

// AuditEntry is a snapshot of one record's outcome for compliance review.
type AuditEntry struct {
	Timestamp            time.Time        `json:"timestamp"`
	ProviderNPI          string           `json:"provider_npi"`
	ValidationStatus     ValidationStatus `json:"validation_status"`
	ValidationConfidence float64          `json:"validation_confidence"`
	EnrichmentsApplied   []string         `json:"enrichments_applied"`
	QAStatus             FinalStatus      `json:"qa_status"`
	FinalConfidence      float64          `json:"final_confidence"`
}

// ManagementResult is the terminal stage output.
type ManagementResult struct {
	WorkflowStatus string       `json:"workflow_status"`
	AuditTrail     []AuditEntry `json:"audit_trail"`
	FinalRecord    FinalRecord  `json:"final_record"`
	NextActions    []string     `json:"next_actions"`
	Decisions      []string     `json:"decisions"`
}

// ProviderResult bundles every stage output for one record.
type ProviderResult struct {
	Input          Provider         `json:"provider_input"`
	Validation     ValidationResult `json:"validation"`
	Enrichment     EnrichmentResult `json:"enrichment"`
	QA             QAResult         `json:"qa"`
	Management     ManagementResult `json:"management"`
	FinalRecord    FinalRecord      `json:"final_record"`
	ProcessingTime float64          `json:"processing_time"`
	AgentsUsed     []string         `json:"agents_used"`
	PersistError   string           `json:"persist_error,omitempty"`
}
