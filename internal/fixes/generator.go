package fixes

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"subconform/internal/qc"
	"subconform/internal/subtitles"
	"subconform/internal/textfit"
)

// pendingIndex stands in for the index a split's second half will receive.
const pendingIndex = -1

// Generator builds fix options under a Policy.
type Generator struct {
	policy Policy
}

// NewGenerator returns a generator using policy.
func NewGenerator(policy Policy) *Generator {
	return &Generator{policy: policy}
}

// Policy returns the generation policy.
func (g *Generator) Policy() Policy {
	return g.policy
}

// subject is the read-only view of a cue every builder works from.
type subject struct {
	cue         subtitles.Cue
	next        *subtitles.Cue
	constraints subtitles.Constraints
	issues      []qc.Issue
	lang        string
}

func newSubject(doc *subtitles.Document, pos int) (subject, bool) {
	if doc == nil || pos < 0 || pos >= len(doc.Cues) {
		return subject{}, false
	}
	s := subject{
		cue:         doc.Cues[pos].Clone(),
		constraints: doc.Constraints,
		issues:      qc.CueIssues(doc, pos),
		lang:        doc.TargetLanguage,
	}
	if s.cue.TranslatedText == nil {
		s.lang = doc.SourceLanguage
	}
	if _, next := doc.Neighbours(pos); next != nil {
		n := next.Clone()
		s.next = &n
	}
	return s, true
}

func (s subject) flatText() string {
	return strings.Join(strings.Fields(s.cue.Text()), " ")
}

func (s subject) has(t qc.IssueType) bool {
	return qc.Has(s.issues, t)
}

func (s subject) hasLineIssue() bool {
	return s.has(qc.IssueLineTooLong) || s.has(qc.IssueTooManyLines)
}

// Suggest returns the ranked options for the cue at pos. Generated options are
// sorted by confidence, ties in GeneratedTypes order; manual comes last.
func (g *Generator) Suggest(doc *subtitles.Document, pos int) Suggestions {
	s, ok := newSubject(doc, pos)
	if !ok {
		return Suggestions{}
	}
	metrics, _ := qc.CueMetrics(s.cue)
	options := make([]Option, 0, len(GeneratedTypes)+1)
	for _, t := range GeneratedTypes {
		options = append(options, g.build(s, t))
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Confidence != options[j].Confidence {
			return options[i].Confidence > options[j].Confidence
		}
		return options[i].Type.rank() < options[j].Type.rank()
	})
	options = append(options, manualOption(s))
	issues := s.issues
	if issues == nil {
		issues = []qc.Issue{}
	}
	return Suggestions{
		CueIndex:     s.cue.Index,
		OriginalText: s.cue.Text(),
		Metrics:      metrics,
		Issues:       issues,
		Options:      options,
		Constraints:  s.constraints,
	}
}

// Build computes a single option of type t against the cue's current state.
func (g *Generator) Build(doc *subtitles.Document, pos int, t FixType) Option {
	s, ok := newSubject(doc, pos)
	if !ok {
		return notApplicable(t, "", "cue not found")
	}
	return g.build(s, t)
}

func (g *Generator) build(s subject, t FixType) Option {
	switch t {
	case FixCompress:
		return g.compress(s)
	case FixExtendTiming:
		return g.extendTiming(s)
	case FixSplitCue:
		return g.splitCue(s)
	case FixReflow:
		return g.reflow(s)
	case FixManual:
		return manualOption(s)
	default:
		return notApplicable(t, "", fmt.Sprintf("unknown fix type %q", t))
	}
}

func (g *Generator) compress(s subject) Option {
	const desc = "Condense the text"
	if !FixCompress.Addresses(s.issues) {
		return notApplicable(FixCompress, desc, "no line length or reading speed issue to compress")
	}
	flat := s.flatText()
	width := qc.CharCount(flat)
	if width == 0 {
		return notApplicable(FixCompress, desc, "no text to condense")
	}
	c := s.constraints
	target := width
	if s.has(qc.IssueCPSExceeded) {
		dur := s.cue.DurationMS()
		if dur <= 0 {
			return notApplicable(FixCompress, desc, "cue has no duration to read text in")
		}
		target = min(target, int(math.Floor(c.MaxCPS*float64(dur)/1000)))
	}
	if s.hasLineIssue() {
		target = min(target, c.MaxLines*c.MaxCharsPerLine+c.MaxLines-1)
	}

	for {
		if float64(width-target)/float64(width) > g.policy.MaxCompressionRatio {
			return notApplicable(FixCompress, desc, "compression would alter meaning too much")
		}
		condensed, ok := textfit.Condense(flat, target, s.cue.ProtectedTerms, s.lang)
		if !ok {
			return notApplicable(FixCompress, desc, fmt.Sprintf("no safe condensation removes %d characters", width-target))
		}
		wrapped, fits := textfit.WrapLanguage(condensed, c.MaxCharsPerLine, c.MaxLines, s.cue.ProtectedTerms, s.lang)
		if !fits {
			target = qc.CharCount(condensed) - 1
			continue
		}
		if condensed == flat {
			return notApplicable(FixCompress, desc, "text already fits; nothing to remove")
		}
		kept := qc.CharCount(condensed)
		removed := float64(width-kept) / float64(width)
		if removed > g.policy.MaxCompressionRatio {
			return notApplicable(FixCompress, desc, "compression would alter meaning too much")
		}
		confidence := clamp(0.9-0.6*(removed/g.policy.MaxCompressionRatio), 0.3, 0.9)
		candidate := s.cue.Clone()
		candidate.SetText(wrapped)
		return g.validate(s, Option{
			Type:        FixCompress,
			Description: fmt.Sprintf("Condense text from %d to %d characters", width, kept),
			PreviewText: wrapped,
			Confidence:  round2(confidence),
		}, candidate)
	}
}

func (g *Generator) extendTiming(s subject) Option {
	const desc = "Extend the display time"
	cps, short := s.has(qc.IssueCPSExceeded), s.has(qc.IssueShortDuration)
	if !cps && !short {
		if s.hasLineIssue() {
			return notApplicable(FixExtendTiming, desc, "timing cannot fix line length or line count")
		}
		return notApplicable(FixExtendTiming, desc, "no reading speed or duration issue to fix")
	}
	c := s.constraints
	var needed int64
	if short {
		needed = c.MinDurationMS
	}
	if cps {
		chars := qc.CharCount(s.cue.Text())
		needed = max(needed, int64(math.Ceil(float64(chars)*1000/c.MaxCPS)))
	}
	end := s.cue.EndMS
	newEnd := s.cue.StartMS + needed
	if newEnd <= end {
		return notApplicable(FixExtendTiming, desc, "timing already satisfies the limits")
	}
	limit := end + g.policy.TailExtensionMS
	if s.next != nil {
		limit = s.next.StartMS - g.policy.MinGapMS
	}
	if limit <= end {
		return notApplicable(FixExtendTiming, desc, "next cue leaves no room to extend")
	}
	if newEnd > limit {
		return notApplicable(FixExtendTiming, desc, fmt.Sprintf("needs %dms more but only %dms is available", newEnd-end, limit-end))
	}
	candidate := s.cue.Clone()
	candidate.EndMS = newEnd
	return g.validate(s, Option{
		Type:        FixExtendTiming,
		Description: fmt.Sprintf("Extend end time by %dms to %s", newEnd-end, subtitles.FormatTimestamp(newEnd, ",")),
		PreviewText: s.cue.Text(),
		NewTiming:   &Timing{StartMS: s.cue.StartMS, EndMS: newEnd},
		Confidence:  0.9,
	}, candidate)
}

func (g *Generator) splitCue(s subject) Option {
	const desc = "Split into two cues"
	if !FixSplitCue.Addresses(s.issues) {
		return notApplicable(FixSplitCue, desc, "no line length or reading speed issue to split")
	}
	flat := s.flatText()
	protected := s.cue.ProtectedTerms
	if n := textfit.WordCount(flat, protected); n < g.policy.MinSplitWords {
		return notApplicable(FixSplitCue, desc, fmt.Sprintf("only %d words; at least %d needed to split", n, g.policy.MinSplitWords))
	}
	dur := s.cue.DurationMS()
	if dur <= 0 {
		return notApplicable(FixSplitCue, desc, "cue has no duration to share")
	}
	first, second, ok := textfit.SplitPoint(flat, protected, s.lang)
	if !ok {
		return notApplicable(FixSplitCue, desc, "no split point found")
	}
	w1, w2 := int64(qc.CharCount(first)), int64(qc.CharCount(second))
	firstDur := dur * w1 / (w1 + w2)
	c := s.constraints
	if firstDur < c.MinDurationMS || dur-firstDur < c.MinDurationMS {
		return notApplicable(FixSplitCue, desc, fmt.Sprintf("halves would last %dms and %dms, below the %dms minimum", firstDur, dur-firstDur, c.MinDurationMS))
	}
	firstText, ok1 := textfit.WrapLanguage(first, c.MaxCharsPerLine, c.MaxLines, protected, s.lang)
	secondText, ok2 := textfit.WrapLanguage(second, c.MaxCharsPerLine, c.MaxLines, protected, s.lang)
	if !ok1 || !ok2 {
		return notApplicable(FixSplitCue, desc, "a half still exceeds the line limits")
	}
	mid := s.cue.StartMS + firstDur
	a := s.cue.Clone()
	a.SetText(firstText)
	a.EndMS = mid
	b := s.cue.Clone()
	b.Index = pendingIndex
	b.SetText(secondText)
	b.StartMS = mid
	return g.validate(s, Option{
		Type:        FixSplitCue,
		Description: fmt.Sprintf("Split into cues of %dms and %dms", firstDur, dur-firstDur),
		PreviewText: firstText + "\n\n" + secondText,
		Split: &SplitPreview{
			First:  SplitPart{Text: firstText, StartMS: a.StartMS, EndMS: a.EndMS},
			Second: SplitPart{Text: secondText, StartMS: b.StartMS, EndMS: b.EndMS},
		},
		Confidence: 0.6,
	}, a, b)
}

func (g *Generator) reflow(s subject) Option {
	const desc = "Re-wrap the lines"
	if !FixReflow.Addresses(s.issues) {
		return notApplicable(FixReflow, desc, "no line layout issue to fix")
	}
	c := s.constraints
	wrapped, ok := textfit.WrapLanguage(s.flatText(), c.MaxCharsPerLine, c.MaxLines, s.cue.ProtectedTerms, s.lang)
	if !ok {
		return notApplicable(FixReflow, desc, fmt.Sprintf("text cannot fit %d lines of %d characters without shortening", c.MaxLines, c.MaxCharsPerLine))
	}
	if wrapped == s.cue.Text() {
		return notApplicable(FixReflow, desc, "line breaks are already optimal")
	}
	candidate := s.cue.Clone()
	candidate.SetText(wrapped)
	return g.validate(s, Option{
		Type:        FixReflow,
		Description: fmt.Sprintf("Re-wrap onto %d line(s)", len(subtitles.Lines(wrapped))),
		PreviewText: wrapped,
		Confidence:  0.8,
	}, candidate)
}

func manualOption(s subject) Option {
	return Option{
		Type:        FixManual,
		Description: "Edit the text or timing by hand",
		PreviewText: s.cue.Text(),
		Applicable:  true,
	}
}

// validate re-runs QC on the candidate cues, next to the following cue, and
// decides applicability from the result.
func (g *Generator) validate(s subject, opt Option, candidates ...subtitles.Cue) Option {
	window := make([]subtitles.Cue, 0, len(candidates)+1)
	window = append(window, candidates...)
	if s.next != nil {
		window = append(window, *s.next)
	}
	report := qc.Evaluate(window, s.constraints)

	var after []qc.Issue
	texts := make([]string, 0, len(candidates))
	worst := 0.0
	for _, cand := range candidates {
		after = append(after, qc.ForCue(report.Issues, cand.Index)...)
		texts = append(texts, cand.Text())
		m, _ := qc.CueMetrics(cand)
		worst = math.Max(worst, m.CPS)
	}
	opt.ResultingCPS = qc.FiniteOrNil(round2(worst))
	opt.ResultingIssues = qc.Types(after)
	for _, target := range opt.Type.Targets() {
		if s.has(target) && !qc.Has(after, target) {
			opt.Resolves = append(opt.Resolves, target)
		}
	}

	if !textfit.PreservesTerms(s.cue.Text(), strings.Join(texts, " "), s.cue.ProtectedTerms) {
		return reject(opt, "would remove a protected term")
	}
	for _, t := range opt.ResultingIssues {
		if !s.has(t) {
			return reject(opt, fmt.Sprintf("would introduce %s", t.Code()))
		}
	}
	if len(opt.Resolves) == 0 {
		return reject(opt, "does not resolve any targeted issue")
	}
	opt.Applicable = true
	return opt
}

func reject(opt Option, reason string) Option {
	opt.Applicable = false
	opt.Confidence = 0
	opt.Reason = reason
	return opt
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
