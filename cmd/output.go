package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-cli/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	statusStyles = map[model.FinalStatus]lipgloss.Style{
		model.FinalStatusApproved:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		model.FinalStatusNeedsReview: lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		model.FinalStatusRejected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// renderSummary formats batch statistics as a bordered box.
func renderSummary(runID string, s model.BatchSummary) string {
	line := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + value
	}
	counted := func(status model.FinalStatus, label string, n int, pct float64) string {
		return statusStyles[status].Render(fmt.Sprintf("%-16s", label)) + fmt.Sprintf("%d (%.1f%%)", n, pct)
	}

	lines := []string{
		titleStyle.Render("Batch complete"),
		line("Run", runID),
		line("Total Processed", fmt.Sprintf("%d", s.Total)),
		counted(model.FinalStatusApproved, "Approved", s.Approved, s.ApprovedPct),
		counted(model.FinalStatusNeedsReview, "Needs Review", s.NeedsReview, s.NeedsReviewPct),
		counted(model.FinalStatusRejected, "Rejected", s.Rejected, s.RejectedPct),
		line("Avg Confidence", fmt.Sprintf("%.1f%%", s.AvgConfidence*100)),
		line("Total Time", fmt.Sprintf("%.2fs", s.TotalSeconds)),
		line("Throughput", fmt.Sprintf("%.2f providers/s", s.Throughput)),
	}
	if s.PersistFailed > 0 {
		lines = append(lines, statusStyles[model.FinalStatusRejected].Render(fmt.Sprintf("%-16s", "Not Saved"))+fmt.Sprintf("%d", s.PersistFailed))
	}
	return summaryStyle.Render(strings.Join(lines, "\n"))
}

func formatProvidersList(out io.Writer, providers []model.StoredProvider) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NPI\tNAME\tSPECIALTY\tSTATUS\tCONFIDENCE\tUPDATED")
	for _, p := range providers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\t%s\n",
			p.NPI,
			truncate(p.Name, 32),
			truncate(p.Specialty, 28),
			p.ValidationStatus,
			p.ConfidenceScore*100,
			p.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func formatRunsList(out io.Writer, runs []model.BatchRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tTOTAL\tAPPROVED\tREVIEW\tREJECTED\tAVG_CONF\tCREATED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t%s\n",
			r.ID,
			truncate(r.Source, 32),
			r.Summary.Total,
			r.Summary.Approved,
			r.Summary.NeedsReview,
			r.Summary.Rejected,
			r.Summary.AvgConfidence*100,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func writeJSONFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "close %s", path)
		}
	}()
	return writeJSON(f, v)
}

// parseStatus validates an optional --status flag value.
func parseStatus(s string) (model.FinalStatus, error) {
	if s == "" {
		return "", nil
	}
	status := model.FinalStatus(strings.ToUpper(s))
	if !status.Valid() {
		return "", eris.Errorf("unknown status %q (want APPROVED, NEEDS_REVIEW, or REJECTED)", s)
	}
	return status, nil
}
