package qc

import (
	"fmt"
	"strings"

	"subconform/internal/subtitles"
)

// EvaluateCue runs the single-cue checks in order. Overlap needs sequence
// context and is only reported by Evaluate.
func EvaluateCue(cue subtitles.Cue, c subtitles.Constraints) []Issue {
	text := cue.Text()
	m, rangeErr := Compute(text, cue.StartMS, cue.EndMS)
	var issues []Issue

	if strings.TrimSpace(text) == "" {
		issues = append(issues, Issue{
			CueIndex: cue.Index,
			Type:     IssueEmptyCue,
			Severity: IssueEmptyCue.Severity(),
			Message:  "Cue has empty or whitespace-only text",
		})
	}
	if m.LineCount > c.MaxLines {
		issues = append(issues, Issue{
			CueIndex:  cue.Index,
			Type:      IssueTooManyLines,
			Severity:  IssueTooManyLines.Severity(),
			Message:   fmt.Sprintf("Cue has %d lines, exceeds maximum %d", m.LineCount, c.MaxLines),
			Value:     float(float64(m.LineCount)),
			Threshold: float(float64(c.MaxLines)),
		})
	}
	if m.MaxLineLength > c.MaxCharsPerLine {
		issues = append(issues, Issue{
			CueIndex:  cue.Index,
			Type:      IssueLineTooLong,
			Severity:  IssueLineTooLong.Severity(),
			Message:   fmt.Sprintf("Line has %d chars, exceeds maximum %d", m.MaxLineLength, c.MaxCharsPerLine),
			Value:     float(float64(m.MaxLineLength)),
			Threshold: float(float64(c.MaxCharsPerLine)),
		})
	}
	if m.CPS > c.MaxCPS {
		issue := Issue{
			CueIndex:  cue.Index,
			Type:      IssueCPSExceeded,
			Severity:  IssueCPSExceeded.Severity(),
			Threshold: float(c.MaxCPS),
		}
		if rangeErr != nil {
			issue.Message = "Cue has zero or negative duration"
		} else {
			issue.Message = fmt.Sprintf("CPS %.1f exceeds maximum %g", m.CPS, c.MaxCPS)
			issue.Value = float(round2(m.CPS))
		}
		issues = append(issues, issue)
	}
	if m.DurationMS < c.MinDurationMS {
		issues = append(issues, Issue{
			CueIndex:  cue.Index,
			Type:      IssueShortDuration,
			Severity:  IssueShortDuration.Severity(),
			Message:   fmt.Sprintf("Cue duration %dms is less than minimum %dms", m.DurationMS, c.MinDurationMS),
			Value:     float(float64(m.DurationMS)),
			Threshold: float(float64(c.MinDurationMS)),
		})
	}
	return issues
}

// overlapIssue reports cue running past the start of next.
func overlapIssue(cue, next subtitles.Cue) (Issue, bool) {
	if cue.EndMS <= next.StartMS {
		return Issue{}, false
	}
	overlap := cue.EndMS - next.StartMS
	return Issue{
		CueIndex: cue.Index,
		Type:     IssueOverlap,
		Severity: IssueOverlap.Severity(),
		Message:  fmt.Sprintf("Cue %d overlaps with cue %d by %dms", cue.Index, next.Index, overlap),
		Value:    float(float64(overlap)),
	}, true
}

// Evaluate runs a file-level pass over cues in sequence order.
func Evaluate(cues []subtitles.Cue, c subtitles.Constraints) Report {
	var issues []Issue
	for i := range cues {
		issues = append(issues, EvaluateCue(cues[i], c)...)
		if i+1 < len(cues) {
			if issue, ok := overlapIssue(cues[i], cues[i+1]); ok {
				issues = append(issues, issue)
			}
		}
	}
	if issues == nil {
		issues = []Issue{}
	}
	return Report{Issues: issues, Summary: Summarize(len(cues), issues)}
}

// EvaluateDocument runs a file-level pass over a document.
func EvaluateDocument(doc *subtitles.Document) Report {
	if doc == nil {
		return Evaluate(nil, subtitles.DefaultConstraints())
	}
	return Evaluate(doc.Cues, doc.Constraints)
}

// CueIssues returns the issues of the cue at pos including overlap with its successor.
func CueIssues(doc *subtitles.Document, pos int) []Issue {
	if doc == nil || pos < 0 || pos >= len(doc.Cues) {
		return nil
	}
	issues := EvaluateCue(doc.Cues[pos], doc.Constraints)
	if _, next := doc.Neighbours(pos); next != nil {
		if issue, ok := overlapIssue(doc.Cues[pos], *next); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// SyncFlags rewrites every cue's raw issue labels from a fresh pass and
// returns the report used.
func SyncFlags(doc *subtitles.Document) Report {
	report := EvaluateDocument(doc)
	if doc == nil {
		return report
	}
	byCue := make(map[int][]string, len(doc.Cues))
	for _, issue := range report.Issues {
		byCue[issue.CueIndex] = append(byCue[issue.CueIndex], string(issue.Type))
	}
	for i := range doc.Cues {
		doc.Cues[i].SetIssueLabels(byCue[doc.Cues[i].Index])
	}
	return report
}
