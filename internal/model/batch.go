package model

import "time"

// BatchSummary aggregates QA outcomes across a batch.
type BatchSummary struct {
	Total          int     `json:"total"`
	Approved       int     `json:"approved"`
	NeedsReview    int     `json:"needs_review"`
	Rejected       int     `json:"rejected"`
	ApprovedPct    float64 `json:"approved_pct"`
	NeedsReviewPct float64 `json:"needs_review_pct"`
	RejectedPct    float64 `json:"rejected_pct"`
	AvgConfidence  float64 `json:"avg_confidence"`
	TotalSeconds   float64 `json:"total_seconds"`
	Throughput     float64 `json:"throughput"` // providers per second
	PersistFailed  int     `json:"persist_failed"`
}

// BatchResult is the outcome of processing a batch of providers.
type BatchResult struct {
	RunID   string           `json:"run_id"`
	Results []ProviderResult `json:"results"`
	Summary BatchSummary     `json:"summary"`
}

// BatchRun is a stored record of a completed batch.
type BatchRun struct {
	ID        string       `json:"id"`
	Source    string       `json:"source,omitempty"`
	Summary   BatchSummary `json:"summary"`
	CreatedAt time.Time    `json:"created_at"`
}
