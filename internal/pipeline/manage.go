package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/model"
)

// CaseManager writes the audit entry, assembles the final record, and picks
// the next actions. It holds no per-record state.
type CaseManager struct {
	now func() time.Time
}

// NewCaseManager creates a CaseManager. A nil clock uses time.Now.
func NewCaseManager(now func() time.Time) *CaseManager {
	if now == nil {
		now = time.Now
	}
	return &CaseManager{now: now}
}

// Manage builds a fresh audit trail for this record and the merged final
// record.
func (m *CaseManager) Manage(p model.Provider, v model.ValidationResult, e model.EnrichmentResult, q model.QAResult) model.ManagementResult {
	res := model.ManagementResult{WorkflowStatus: model.WorkflowStatusCompleted}

	res.AuditTrail = []model.AuditEntry{{
		Timestamp:            m.now(),
		ProviderNPI:          p.NPI,
		ValidationStatus:     v.Status,
		ValidationConfidence: v.Confidence,
		EnrichmentsApplied:   e.AppliedKeys(),
		QAStatus:             q.FinalStatus,
		FinalConfidence:      q.FinalConfidence,
	}}
	res.Decisions = append(res.Decisions, "Audit trail created for compliance")

	res.FinalRecord = model.NewFinalRecordBuilder(p).
		WithEnrichment(e).
		WithQA(q).
		WithAuditTrail(res.AuditTrail).
		Build(m.now())

	res.NextActions = NextActions(q.FinalStatus)
	switch q.FinalStatus {
	case model.FinalStatusApproved:
		res.Decisions = append(res.Decisions, "GOAL-DRIVEN: Record approved for publication")
	case model.FinalStatusNeedsReview:
		res.Decisions = append(res.Decisions, "GOAL-DRIVEN: Routing to manual review queue")
	default:
		res.Decisions = append(res.Decisions, "GOAL-DRIVEN: Record rejected, requesting resubmission")
	}

	zap.L().Debug("pipeline: managed",
		zap.String("stage", "management"),
		zap.String("npi", p.NPI),
		zap.Strings("next_actions", res.NextActions),
	)
	return res
}

// NextActions maps a final status to its follow-up actions. Anything that
// is not approved or under review is handled as rejected.
func NextActions(status model.FinalStatus) []string {
	switch status {
	case model.FinalStatusApproved:
		return []string{"Publish to directory", "Notify member services"}
	case model.FinalStatusNeedsReview:
		return []string{"Queue for human review", "Escalate to provider relations"}
	default:
		return []string{"Archive", "Request provider to resubmit data"}
	}
}
