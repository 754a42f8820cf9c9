package api

import (
	"slices"
	"time"

	"subconform/internal/qc"
	"subconform/internal/stage"
	"subconform/internal/subtitles"
	"subconform/internal/workflow"
)

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	counts := make(map[string]int, len(summary.JobCounts))
	for state, count := range summary.JobCounts {
		counts[string(state)] = count
	}
	return WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		Queued:      summary.Queued,
		Active:      summary.Active,
		JobCounts:   counts,
		LastError:   summary.LastError,
		LastJobID:   summary.LastJobID,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// BuildQCReport evaluates doc and groups the issues per cue.
func BuildQCReport(jobID string, doc *subtitles.Document) QCReport {
	report := qc.EvaluateDocument(doc)
	out := QCReport{
		JobID:       jobID,
		Constraints: doc.Constraints,
		Summary:     report.Summary,
		Issues:      report.Issues,
		Cues:        make([]CueReport, 0, len(doc.Cues)),
	}
	if out.Issues == nil {
		out.Issues = []qc.Issue{}
	}
	for _, cue := range doc.Cues {
		metrics, _ := qc.CueMetrics(cue)
		issues := qc.ForCue(report.Issues, cue.Index)
		if issues == nil {
			issues = []qc.Issue{}
		}
		out.Cues = append(out.Cues, CueReport{
			CueIndex: cue.Index,
			Text:     cue.Text(),
			Metrics:  metrics,
			Issues:   issues,
			Flags:    append([]string{}, cue.Flags...),
		})
	}
	return out
}
