package model

import (
	"math"
	"time"
)

// FinalRecord is the merged, persisted view of a processed provider.
type FinalRecord struct {
	Name                string       `json:"name"`
	NPI                 string       `json:"npi"`
	Phone               string       `json:"phone"`
	Email               string       `json:"email,omitempty"`
	Address             string       `json:"address"`
	City                string       `json:"city"`
	State               string       `json:"state"`
	Zip                 string       `json:"zip"`
	Specialty           string       `json:"specialty"`
	StandardizedAddress string       `json:"standardized_address"`
	NetworkStatus       string       `json:"network_status"`
	ValidationStatus    FinalStatus  `json:"validation_status"`
	ConfidenceScore     float64      `json:"confidence_score"`
	ProcessedAt         time.Time    `json:"processed_at"`
	AuditLog            []AuditEntry `json:"audit_log"`
}

// StoredProvider is a FinalRecord as read back from the store.
type StoredProvider struct {
	FinalRecord
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FinalRecordBuilder assembles a FinalRecord in a fixed override order:
//
//  1. original provider fields (name, npi, phone, email, address, city, state, zip, specialty)
//  2. enrichment: specialty (when non-empty), standardized_address, network_status
//  3. QA: validation_status = final status, confidence_score = final confidence rounded to 2 places
//  4. audit_log and processed_at
type FinalRecordBuilder struct {
	rec FinalRecord
}

// NewFinalRecordBuilder starts a record from the original provider fields.
func NewFinalRecordBuilder(p Provider) *FinalRecordBuilder {
	return &FinalRecordBuilder{rec: FinalRecord{
		Name:      p.Name,
		NPI:       p.NPI,
		Phone:     p.Phone,
		Email:     p.Email,
		Address:   p.Address,
		City:      p.City,
		State:     p.State,
		Zip:       p.Zip,
		Specialty: p.Specialty,
	}}
}

// WithEnrichment overlays the enrichment outputs.
func (b *FinalRecordBuilder) WithEnrichment(e EnrichmentResult) *FinalRecordBuilder {
	if e.Specialty != "" {
		b.rec.Specialty = e.Specialty
	}
	b.rec.StandardizedAddress = e.StandardizedAddress
	b.rec.NetworkStatus = e.Network
	return b
}

// WithQA sets the final status and rounded confidence.
func (b *FinalRecordBuilder) WithQA(q QAResult) *FinalRecordBuilder {
	b.rec.ValidationStatus = q.FinalStatus
	b.rec.ConfidenceScore = Round2(q.FinalConfidence)
	return b
}

// WithAuditTrail attaches a copy of the audit trail.
func (b *FinalRecordBuilder) WithAuditTrail(trail []AuditEntry) *FinalRecordBuilder {
	b.rec.AuditLog = append([]AuditEntry(nil), trail...)
	return b
}

// Build stamps processedAt and returns the record.
func (b *FinalRecordBuilder) Build(processedAt time.Time) FinalRecord {
	rec := b.rec
	rec.ProcessedAt = processedAt
	return rec
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
