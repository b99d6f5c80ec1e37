package model

// ValidationStatus is the Validator's classification of a record.
type ValidationStatus string

const (
	ValidationStatusValidated ValidationStatus = "VALIDATED"
	ValidationStatusReview    ValidationStatus = "REVIEW"
	ValidationStatusRejected  ValidationStatus = "REJECTED"
)

// FinalStatus is the terminal classification assigned by quality checking.
type FinalStatus string

const (
	FinalStatusApproved    FinalStatus = "APPROVED"
	FinalStatusNeedsReview FinalStatus = "NEEDS_REVIEW"
	FinalStatusRejected    FinalStatus = "REJECTED"
)

// Valid reports whether s is one of the three known final statuses.
func (s FinalStatus) Valid() bool {
	switch s {
	case FinalStatusApproved, FinalStatusNeedsReview, FinalStatusRejected:
		return true
	default:
		return false
	}
}

// SpecialtyConfidence grades the enriched specialty.
type SpecialtyConfidence string

const (
	SpecialtyConfidenceHigh SpecialtyConfidence = "high"
	SpecialtyConfidenceLow  SpecialtyConfidence = "low"
)

// Literal values shared by the enrichment and QA stages.
const (
	DefaultSpecialty = "General Practice"
	NetworkInNetwork = "In-Network"
)

// Enrichment keys, in the order the enricher applies them.
const (
	EnrichmentKeySpecialty           = "specialty"
	EnrichmentKeyStandardizedAddress = "standardized_address"
	EnrichmentKeyNetwork             = "network"
)

// WorkflowStatusCompleted marks a management result whose workflow ran to the end.
const WorkflowStatusCompleted = "completed"
