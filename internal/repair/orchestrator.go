package repair

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subconform/internal/fixes"
	"subconform/internal/gender"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/subtitles"
	"subconform/internal/textfit"
)

// Params carries the edit of a manual fix. Nil fields keep the current value.
type Params struct {
	Text    *string `json:"text,omitempty"`
	StartMS *int64  `json:"start_ms,omitempty"`
	EndMS   *int64  `json:"end_ms,omitempty"`
	// Origin decides the recorded flag of a generated fix.
	Origin Origin `json:"-"`
}

// Origin tells who chose a generated fix.
type Origin int

const (
	// OriginAuto is a fix chosen by the engine; it records CONFORMED:<type>.
	OriginAuto Origin = iota
	// OriginUser is a fix a person picked from the suggestions; it records FIXED:<type>.
	OriginUser
)

func (o Origin) flag(fixType fixes.FixType) string {
	if o == OriginUser {
		return subtitles.FixedFlag(string(fixType))
	}
	return subtitles.ConformedFlag(string(fixType))
}

// Result is the committed state after a single-cue mutation.
type Result struct {
	Cue      subtitles.Cue  `json:"cue"`
	Inserted *subtitles.Cue `json:"inserted_cue,omitempty"`
	FixType  fixes.FixType  `json:"fix_type,omitempty"`
	Metrics  qc.Metrics     `json:"new_metrics"`
	Issues   []qc.Issue     `json:"issues"`
	Summary  qc.Summary     `json:"qc_summary"`
}

// Orchestrator validates and applies repairs.
type Orchestrator struct {
	generator *fixes.Generator
	detector  *gender.Detector
	logger    *slog.Logger
}

// New constructs an orchestrator. Nil collaborators fall back to defaults.
func New(generator *fixes.Generator, detector *gender.Detector, logger *slog.Logger) *Orchestrator {
	if generator == nil {
		generator = fixes.NewGenerator(fixes.DefaultPolicy())
	}
	if detector == nil {
		detector = gender.NewDetector(gender.DefaultOptions())
	}
	return &Orchestrator{
		generator: generator,
		detector:  detector,
		logger:    logging.NewComponentLogger(logger, "repair"),
	}
}

// Detector exposes the gender detector used for refreshing alternatives.
func (o *Orchestrator) Detector() *gender.Detector {
	return o.detector
}

// Suggest returns the ranked fix options for the cue with the given index.
func (o *Orchestrator) Suggest(doc *subtitles.Document, index int) (fixes.Suggestions, error) {
	pos := doc.Position(index)
	if pos < 0 {
		return fixes.Suggestions{}, &FixError{CueIndex: index, Err: ErrCueNotFound}
	}
	return o.generator.Suggest(doc, pos), nil
}

// ApplyFix re-validates fixType against the cue's current state and applies
// it. Generated fixes record CONFORMED:<type>, or FIXED:<type> when
// params.Origin is OriginUser; manual edits record FIXED:manual. Raw issue
// labels of every cue are resynced afterwards.
func (o *Orchestrator) ApplyFix(ctx context.Context, doc *subtitles.Document, index int, fixType fixes.FixType, params Params) (Result, error) {
	logger := logging.WithContext(ctx, o.logger).With(
		logging.Int(logging.FieldCueIndex, index),
		logging.String(logging.FieldFixType, string(fixType)),
	)
	pos := doc.Position(index)
	if pos < 0 {
		return Result{}, &FixError{CueIndex: index, FixType: fixType, Err: ErrCueNotFound}
	}

	var (
		inserted int
		err      error
	)
	if fixType == fixes.FixManual {
		err = o.applyManual(doc, pos, params)
	} else {
		inserted, err = o.applyGenerated(doc, pos, fixType, params.Origin)
	}
	if err != nil {
		logger.Info("fix rejected", logging.Args(logging.DecisionAttrs("fix_apply", "rejected", err.Error())...)...)
		return Result{}, err
	}

	report := qc.SyncFlags(doc)
	result := cueResult(doc, index, report)
	result.FixType = fixType
	if inserted != 0 {
		if c, ok := doc.Cue(inserted); ok {
			clone := c.Clone()
			result.Inserted = &clone
		}
	}
	logger.Info("fix applied", logging.Args(append(
		logging.DecisionAttrs("fix_apply", "applied", "re-validated against current cue"),
		logging.Int("issues_remaining", len(result.Issues)),
		logging.Bool("qc_passed", report.Summary.Passed),
	)...)...)
	return result, nil
}

// applyGenerated mutates the cue at pos with a freshly built option. It
// returns the index of a cue inserted by a split, or 0.
func (o *Orchestrator) applyGenerated(doc *subtitles.Document, pos int, fixType fixes.FixType, origin Origin) (int, error) {
	cue := &doc.Cues[pos]
	issues := qc.CueIssues(doc, pos)
	if !fixType.Addresses(issues) {
		return 0, &FixError{
			CueIndex: cue.Index,
			FixType:  fixType,
			Reason:   "cue no longer has an issue this fix targets",
			Err:      ErrStaleFix,
		}
	}
	opt := o.generator.Build(doc, pos, fixType)
	if !opt.Applicable {
		fe := &FixError{CueIndex: cue.Index, FixType: fixType, Reason: opt.Reason, Err: ErrInapplicable}
		if issue, ok := targetedIssue(issues, fixType); ok {
			fe.Constraint = string(issue.Type)
			fe.Value = issue.Value
			fe.Threshold = issue.Threshold
		}
		return 0, fe
	}

	lang := doc.TargetLanguage
	inserted := 0
	switch fixType {
	case fixes.FixCompress, fixes.FixReflow:
		cue.SetText(opt.PreviewText)
		o.refreshGender(cue, lang)
	case fixes.FixExtendTiming:
		if err := checkTiming(doc, pos, fixType, opt.NewTiming.StartMS, opt.NewTiming.EndMS); err != nil {
			return 0, err
		}
		cue.StartMS, cue.EndMS = opt.NewTiming.StartMS, opt.NewTiming.EndMS
	case fixes.FixSplitCue:
		second := splitHalves(doc, cue, opt.Split)
		o.refreshGender(cue, lang)
		o.refreshGender(&second, lang)
		second.AddFlag(origin.flag(fixType))
		inserted = second.Index
		doc.InsertAfter(pos, second)
		cue = &doc.Cues[pos]
	}
	cue.AddFlag(origin.flag(fixType))
	cue.RemoveFlag(subtitles.FlagUnfixable)
	return inserted, nil
}

// splitHalves rewrites cue as the first half and returns the second half
// under a fresh index. The source text is divided too when it splits cleanly.
func splitHalves(doc *subtitles.Document, cue *subtitles.Cue, split *fixes.SplitPreview) subtitles.Cue {
	second := cue.Clone()
	second.Index = doc.AllocateIndex()
	second.Flags = nil
	second.StartMS, second.EndMS = split.Second.StartMS, split.Second.EndMS

	if cue.TranslatedText == nil {
		cue.SourceText, second.SourceText = split.First.Text, split.Second.Text
	} else {
		flat := strings.Join(strings.Fields(cue.SourceText), " ")
		if a, b, ok := textfit.SplitPoint(flat, nil, doc.SourceLanguage); ok {
			cue.SourceText, second.SourceText = a, b
		} else {
			second.SourceText = ""
		}
	}
	cue.StartMS, cue.EndMS = split.First.StartMS, split.First.EndMS
	cue.SetText(split.First.Text)
	second.SetText(split.Second.Text)
	cue.ProtectedTerms = keepPresent(cue.ProtectedTerms, cue.Text())
	second.ProtectedTerms = keepPresent(second.ProtectedTerms, second.Text())
	return second
}

func (o *Orchestrator) applyManual(doc *subtitles.Document, pos int, p Params) error {
	cue := &doc.Cues[pos]
	if p.Text == nil && p.StartMS == nil && p.EndMS == nil {
		return &FixError{
			CueIndex: cue.Index,
			FixType:  fixes.FixManual,
			Reason:   "manual fix needs new text or timing",
			Err:      ErrInapplicable,
		}
	}
	start, end := cue.StartMS, cue.EndMS
	if p.StartMS != nil {
		start = *p.StartMS
	}
	if p.EndMS != nil {
		end = *p.EndMS
	}
	if start != cue.StartMS || end != cue.EndMS {
		if err := checkTiming(doc, pos, fixes.FixManual, start, end); err != nil {
			return err
		}
		cue.StartMS, cue.EndMS = start, end
	}
	if p.Text != nil {
		if text := subtitles.NormalizeText(*p.Text); text != cue.Text() {
			cue.SetText(text)
			cue.ProtectedTerms = keepPresent(cue.ProtectedTerms, text)
			o.refreshGender(cue, doc.TargetLanguage)
		}
	}
	cue.AddFlag(subtitles.FixedFlag(string(fixes.FixManual)))
	cue.RemoveFlag(subtitles.FlagUnfixable)
	return nil
}

// checkTiming rejects a new range that is inverted or that moves a bound
// past a neighbour. Bounds left unchanged are not checked, so existing
// overlaps in the input do not block unrelated edits.
func checkTiming(doc *subtitles.Document, pos int, fixType fixes.FixType, start, end int64) error {
	cue := doc.Cues[pos]
	if start < 0 || end <= start {
		return &FixError{
			CueIndex: cue.Index,
			FixType:  fixType,
			Reason:   fmt.Sprintf("end %dms must follow start %dms", end, start),
			Err:      subtitles.ErrInvalidRange,
		}
	}
	prev, next := doc.Neighbours(pos)
	if prev != nil && start != cue.StartMS && start < prev.EndMS {
		return &FixError{
			CueIndex: cue.Index,
			FixType:  fixType,
			Reason:   fmt.Sprintf("start %dms is before cue %d ends at %dms", start, prev.Index, prev.EndMS),
			Err:      ErrOutOfRange,
		}
	}
	if next != nil && end != cue.EndMS && end > next.StartMS {
		return &FixError{
			CueIndex: cue.Index,
			FixType:  fixType,
			Reason:   fmt.Sprintf("end %dms is after cue %d starts at %dms", end, next.Index, next.StartMS),
			Err:      ErrOutOfRange,
		}
	}
	return nil
}

// refreshGender regenerates the alternatives of a cue whose text changed.
// The active form is the alternative matching the new text, preferring the
// previously active gender.
func (o *Orchestrator) refreshGender(cue *subtitles.Cue, lang string) {
	if cue.TranslatedText == nil || !gender.Supported(lang) {
		return
	}
	current := *cue.TranslatedText
	previous, previousConfidence := cue.ActiveGender, cue.GenderConfidence
	res := o.detector.Detect(cue.SourceText, current, lang)
	if len(res.Alternatives) < 2 {
		cue.GenderAlternatives = nil
		cue.ActiveGender = subtitles.GenderUnknown
		cue.GenderConfidence = 1
		return
	}
	cue.GenderAlternatives = res.Alternatives
	cue.ActiveGender, cue.GenderConfidence = subtitles.GenderUnknown, 0
	for _, alt := range res.Alternatives {
		if alt.Text != current {
			continue
		}
		if cue.ActiveGender == subtitles.GenderUnknown || alt.Gender == previous {
			cue.ActiveGender, cue.GenderConfidence = alt.Gender, alt.Confidence
		}
	}
	if cue.ActiveGender == previous && previous != subtitles.GenderUnknown {
		cue.GenderConfidence = previousConfidence
	}
}

func targetedIssue(issues []qc.Issue, fixType fixes.FixType) (qc.Issue, bool) {
	for _, t := range fixType.Targets() {
		for _, issue := range issues {
			if issue.Type == t {
				return issue, true
			}
		}
	}
	return qc.Issue{}, false
}

func keepPresent(terms []string, text string) []string {
	if len(terms) == 0 {
		return terms
	}
	out := terms[:0:0]
	for _, term := range terms {
		if textfit.ContainsTerm(text, term) {
			out = append(out, term)
		}
	}
	return out
}

func cueResult(doc *subtitles.Document, index int, report qc.Report) Result {
	pos := doc.Position(index)
	cue := doc.Cues[pos].Clone()
	metrics, _ := qc.CueMetrics(cue)
	issues := qc.CueIssues(doc, pos)
	if issues == nil {
		issues = []qc.Issue{}
	}
	return Result{Cue: cue, Metrics: metrics, Issues: issues, Summary: report.Summary}
}
