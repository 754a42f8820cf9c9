package repair

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"subconform/internal/fixes"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/subtitles"
)

// FixedCue records one successful batch fix.
type FixedCue struct {
	CueIndex      int           `json:"cue_index"`
	FixType       fixes.FixType `json:"fix_type"`
	Confidence    float64       `json:"confidence"`
	InsertedIndex int           `json:"inserted_index,omitempty"`
}

// FailedCue records a cue the batch could not fix.
type FailedCue struct {
	CueIndex int    `json:"cue_index"`
	Reason   string `json:"reason"`
}

// AutoFixResult summarizes a batch run. FixedCount + FailedCount +
// SkippedCount equals the number of cues that matched at the start.
type AutoFixResult struct {
	FixedCount      int         `json:"fixed_count"`
	FailedCount     int         `json:"failed_count"`
	SkippedCount    int         `json:"skipped_count"`
	FixedCues       []FixedCue  `json:"fixed_cues"`
	FailedCues      []FailedCue `json:"failed_cues"`
	RemainingIssues int         `json:"remaining_issues"`
	Summary         qc.Summary  `json:"qc_summary"`
}

// AutoFix walks cues with a matching issue in ascending index order and
// applies the best applicable generated option to each until maxFixes cues
// are fixed. An empty issueType matches every issue some generated fix
// targets; maxFixes <= 0 means no budget. Per-cue failures are counted and
// flagged UNFIXABLE, never returned. Remaining issues come from a full QC
// pass restricted to issueType.
func (o *Orchestrator) AutoFix(ctx context.Context, doc *subtitles.Document, issueType qc.IssueType, maxFixes int) AutoFixResult {
	logger := logging.WithContext(ctx, o.logger)
	if issueType != "" {
		logger = logger.With(logging.String(logging.FieldIssueType, string(issueType)))
	}
	result := AutoFixResult{FixedCues: []FixedCue{}, FailedCues: []FailedCue{}}

	for _, index := range matchingCues(doc, issueType) {
		if maxFixes > 0 && result.FixedCount >= maxFixes {
			result.SkippedCount++
			continue
		}
		pos := doc.Position(index)
		if pos < 0 || !matches(qc.CueIssues(doc, pos), issueType) {
			// resolved by an earlier fix in this run
			result.SkippedCount++
			continue
		}
		opt, reason := o.pick(doc, pos, issueType)
		if opt == nil {
			result.fail(doc, pos, reason)
			continue
		}
		inserted, err := o.applyGenerated(doc, pos, opt.Type, OriginAuto)
		if err != nil {
			var fe *FixError
			if errors.As(err, &fe) && fe.Reason != "" {
				reason = fe.Reason
			} else {
				reason = err.Error()
			}
			result.fail(doc, pos, reason)
			continue
		}
		result.FixedCount++
		result.FixedCues = append(result.FixedCues, FixedCue{
			CueIndex:      index,
			FixType:       opt.Type,
			Confidence:    opt.Confidence,
			InsertedIndex: inserted,
		})
		logger.Debug("batch fix applied",
			logging.Int(logging.FieldCueIndex, index),
			logging.String(logging.FieldFixType, string(opt.Type)),
			logging.Float64("confidence", opt.Confidence),
		)
	}

	report := qc.SyncFlags(doc)
	result.RemainingIssues = len(qc.Filter(report.Issues, issueType))
	result.Summary = report.Summary
	logger.Info("auto-fix complete",
		logging.Int("fixed_count", result.FixedCount),
		logging.Int("failed_count", result.FailedCount),
		logging.Int("skipped_count", result.SkippedCount),
		logging.Int("remaining_issues", result.RemainingIssues),
		logging.Int("max_fixes", maxFixes),
	)
	if result.FailedCount > 0 {
		logging.WarnWithContext(logger, "auto-fix left cues unfixed", "autofix_partial",
			logging.Int("failed_count", result.FailedCount),
			logging.String(logging.FieldErrorHint, "review the UNFIXABLE cues and edit them manually"),
			logging.String(logging.FieldImpact, "cues keep their QC issues"),
		)
	}
	return result
}

func (r *AutoFixResult) fail(doc *subtitles.Document, pos int, reason string) {
	cue := &doc.Cues[pos]
	cue.AddFlag(subtitles.FlagUnfixable)
	r.FailedCount++
	r.FailedCues = append(r.FailedCues, FailedCue{CueIndex: cue.Index, Reason: reason})
}

// pick returns the highest ranked applicable generated option that clears
// issueType, or the reasons nothing qualifies.
func (o *Orchestrator) pick(doc *subtitles.Document, pos int, issueType qc.IssueType) (*fixes.Option, string) {
	suggestions := o.generator.Suggest(doc, pos)
	var reasons []string
	for i := range suggestions.Options {
		opt := suggestions.Options[i]
		if opt.Type == fixes.FixManual {
			continue
		}
		if opt.Applicable && (issueType == "" || resolves(opt, issueType)) {
			return &opt, ""
		}
		reason := opt.Reason
		if opt.Applicable {
			reason = fmt.Sprintf("does not resolve %s", issueType.Code())
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", opt.Type, reason))
	}
	return nil, "no applicable fix (" + strings.Join(reasons, "; ") + ")"
}

func resolves(opt fixes.Option, t qc.IssueType) bool {
	for _, r := range opt.Resolves {
		if r == t {
			return true
		}
	}
	return false
}

// matchingCues returns the indexes of cues with a matching issue, ascending.
func matchingCues(doc *subtitles.Document, issueType qc.IssueType) []int {
	var out []int
	for pos := range doc.Cues {
		if matches(qc.CueIssues(doc, pos), issueType) {
			out = append(out, doc.Cues[pos].Index)
		}
	}
	sort.Ints(out)
	return out
}

func matches(issues []qc.Issue, issueType qc.IssueType) bool {
	for _, issue := range issues {
		if issueType != "" {
			if issue.Type == issueType {
				return true
			}
			continue
		}
		if fixable(issue.Type) {
			return true
		}
	}
	return false
}

// fixable reports whether any generated fix targets t.
func fixable(t qc.IssueType) bool {
	for _, ft := range fixes.GeneratedTypes {
		for _, target := range ft.Targets() {
			if target == t {
				return true
			}
		}
	}
	return false
}
