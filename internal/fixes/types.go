package fixes

import (
	"fmt"
	"strings"

	"subconform/internal/qc"
	"subconform/internal/subtitles"
)

// FixType discriminates the variants of Option.
type FixType string

const (
	FixCompress     FixType = "compress"
	FixExtendTiming FixType = "extend_timing"
	FixSplitCue     FixType = "split_cue"
	FixReflow       FixType = "reflow"
	FixManual       FixType = "manual"
)

// GeneratedTypes lists the automatic fix types in tie-break order.
var GeneratedTypes = []FixType{FixCompress, FixExtendTiming, FixSplitCue, FixReflow}

// ParseFixType validates a user supplied fix type.
func ParseFixType(value string) (FixType, error) {
	t := FixType(strings.ToLower(strings.TrimSpace(value)))
	if t == FixManual {
		return t, nil
	}
	for _, known := range GeneratedTypes {
		if known == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown fix type %q", value)
}

// Targets returns the issue types the fix type can clear.
func (t FixType) Targets() []qc.IssueType {
	switch t {
	case FixCompress:
		return []qc.IssueType{qc.IssueTooManyLines, qc.IssueLineTooLong, qc.IssueCPSExceeded}
	case FixExtendTiming:
		return []qc.IssueType{qc.IssueCPSExceeded, qc.IssueShortDuration}
	case FixSplitCue:
		return []qc.IssueType{qc.IssueTooManyLines, qc.IssueLineTooLong, qc.IssueCPSExceeded}
	case FixReflow:
		return []qc.IssueType{qc.IssueTooManyLines, qc.IssueLineTooLong}
	default:
		return nil
	}
}

// Addresses reports whether any of issues is one the fix type targets.
// Manual fixes address everything.
func (t FixType) Addresses(issues []qc.Issue) bool {
	if t == FixManual {
		return true
	}
	for _, target := range t.Targets() {
		if qc.Has(issues, target) {
			return true
		}
	}
	return false
}

func (t FixType) rank() int {
	for i, known := range GeneratedTypes {
		if known == t {
			return i
		}
	}
	return len(GeneratedTypes)
}

// Timing is a replacement start/end pair.
type Timing struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// SplitPart is one of the two cues a split produces.
type SplitPart struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// SplitPreview carries the split_cue variant's payload.
type SplitPreview struct {
	First  SplitPart `json:"first"`
	Second SplitPart `json:"second"`
}

// Option is one candidate repair. Type selects which variant fields are set:
// extend_timing fills NewTiming, split_cue fills Split, compress and reflow
// only change PreviewText.
type Option struct {
	Type            FixType        `json:"fix_type"`
	Description     string         `json:"description"`
	PreviewText     string         `json:"preview_text"`
	NewTiming       *Timing        `json:"new_timing,omitempty"`
	Split           *SplitPreview  `json:"split,omitempty"`
	Confidence      float64        `json:"confidence"`
	Applicable      bool           `json:"is_applicable"`
	Reason          string         `json:"reason,omitempty"`
	ResultingCPS    *float64       `json:"resulting_cps,omitempty"`
	ResultingIssues []qc.IssueType `json:"resulting_issues,omitempty"`
	Resolves        []qc.IssueType `json:"resolves,omitempty"`
}

func notApplicable(t FixType, description, reason string) Option {
	return Option{Type: t, Description: description, Reason: reason}
}

// Suggestions is the interactive repair view of one cue.
type Suggestions struct {
	CueIndex     int                   `json:"cue_index"`
	OriginalText string                `json:"original_text"`
	Metrics      qc.Metrics            `json:"current_metrics"`
	Issues       []qc.Issue            `json:"issues"`
	Options      []Option              `json:"options"`
	Constraints  subtitles.Constraints `json:"constraints"`
}

// Best returns the highest ranked applicable generated option.
func (s Suggestions) Best() (Option, bool) {
	for _, opt := range s.Options {
		if opt.Applicable && opt.Type != FixManual {
			return opt, true
		}
	}
	return Option{}, false
}
