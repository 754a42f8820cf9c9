package qc

import (
	"fmt"
	"strings"
)

// IssueType classifies a constraint violation. The string value doubles as
// the raw issue label stored in a cue's flags.
type IssueType string

const (
	IssueEmptyCue      IssueType = "empty_cue"
	IssueTooManyLines  IssueType = "too_many_lines"
	IssueLineTooLong   IssueType = "line_too_long"
	IssueCPSExceeded   IssueType = "cps_exceeded"
	IssueShortDuration IssueType = "short_duration"
	IssueOverlap       IssueType = "overlap"
)

// CheckOrder is the order checks run in and issues are reported in.
var CheckOrder = []IssueType{
	IssueEmptyCue,
	IssueTooManyLines,
	IssueLineTooLong,
	IssueCPSExceeded,
	IssueShortDuration,
	IssueOverlap,
}

// Code returns the upper-case name used in reports.
func (t IssueType) Code() string { return strings.ToUpper(string(t)) }

// Severity returns the fixed severity for the issue type.
func (t IssueType) Severity() Severity {
	switch t {
	case IssueTooManyLines, IssueLineTooLong, IssueCPSExceeded:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// ParseIssueType accepts either the label ("cps_exceeded") or the code ("CPS_EXCEEDED").
func ParseIssueType(value string) (IssueType, error) {
	normalized := IssueType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range CheckOrder {
		if t == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown issue type %q", value)
}

// Severity distinguishes QC failures from advisories.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one violation observed on one cue.
type Issue struct {
	CueIndex  int       `json:"cue_index"`
	Type      IssueType `json:"issue_type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Value     *float64  `json:"value,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// Summary aggregates a file-level pass.
type Summary struct {
	TotalCues     int               `json:"total_cues"`
	IssuesCount   int               `json:"issues_count"`
	ErrorsCount   int               `json:"errors_count"`
	WarningsCount int               `json:"warnings_count"`
	Passed        bool              `json:"passed"`
	ByType        map[IssueType]int `json:"by_type"`
}

// Report pairs the issue list with its summary.
type Report struct {
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
}

// Summarize counts issues; QC passes when there are no errors.
func Summarize(totalCues int, issues []Issue) Summary {
	s := Summary{
		TotalCues:   totalCues,
		IssuesCount: len(issues),
		ByType:      make(map[IssueType]int),
	}
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			s.ErrorsCount++
		} else {
			s.WarningsCount++
		}
		s.ByType[issue.Type]++
	}
	s.Passed = s.ErrorsCount == 0
	return s
}

// Types returns the distinct issue types present, in check order.
func Types(issues []Issue) []IssueType {
	seen := make(map[IssueType]bool, len(issues))
	for _, issue := range issues {
		seen[issue.Type] = true
	}
	out := make([]IssueType, 0, len(seen))
	for _, t := range CheckOrder {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// Has reports whether any issue has the given type.
func Has(issues []Issue, t IssueType) bool {
	for _, issue := range issues {
		if issue.Type == t {
			return true
		}
	}
	return false
}

// Filter keeps issues of the given type; an empty type keeps everything.
func Filter(issues []Issue, t IssueType) []Issue {
	if t == "" {
		return issues
	}
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.Type == t {
			out = append(out, issue)
		}
	}
	return out
}

// ForCue returns the issues attached to one cue index.
func ForCue(issues []Issue, index int) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.CueIndex == index {
			out = append(out, issue)
		}
	}
	return out
}

func float(v float64) *float64 { return &v }
