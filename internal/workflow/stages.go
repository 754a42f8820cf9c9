package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subconform/internal/gender"
	"subconform/internal/language"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/services"
	"subconform/internal/services/llm"
	"subconform/internal/stage"
	"subconform/internal/subtitles"
	"subconform/internal/textfit"
	"subconform/internal/translate"
)

// loggerHolder carries the base logger of a stage. Handlers are shared by
// all workers, so job fields come from the context on every call.
type loggerHolder struct {
	logger *slog.Logger
}

func (h loggerHolder) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, h.logger)
}

// parseStage decodes the upload into a document.
type parseStage struct {
	loggerHolder
}

func (s *parseStage) Execute(ctx context.Context, run *stage.Run) error {
	req := run.Request
	if err := req.Constraints.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, StageParse, "check constraints", "", err)
	}
	if len(req.Content) == 0 {
		return services.Wrap(services.ErrValidation, StageParse, "read upload", "file is empty", nil)
	}
	format := req.Format
	if format == "" {
		format = subtitles.DetectFormat(req.Filename, req.Content)
	}
	parsed, err := subtitles.Parse(req.Content, format)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageParse, "decode subtitles", fmt.Sprintf("%s file could not be parsed", format), err)
	}
	doc := subtitles.NewDocument(parsed.Cues, req.Constraints)
	doc.SourceLanguage = language.Normalize(req.SourceLanguage)
	doc.TargetLanguage = language.Normalize(req.TargetLanguage)
	run.Document = doc
	run.Skipped = parsed.Skipped

	logger := s.log(ctx)
	logger.Info("subtitles parsed",
		logging.String("format", string(format)),
		logging.Int("cues", len(doc.Cues)),
		logging.Int("skipped_blocks", parsed.Skipped),
	)
	if parsed.Skipped > 0 {
		logging.WarnWithContext(logger, "malformed cue blocks dropped", "parse_skipped",
			logging.Int("skipped_blocks", parsed.Skipped),
			logging.String(logging.FieldImpact, "dropped blocks are missing from the output"),
			logging.String(logging.FieldErrorHint, "check the timing lines of the input file"),
		)
	}
	return nil
}

func (s *parseStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StageParse)
}

// translateStage fills in translations, or copies the source on a dry run.
type translateStage struct {
	loggerHolder
	translator  *translate.Translator
	glossary    translate.Glossary
	batchSize   int
	contextSize int
}

func (s *translateStage) Execute(ctx context.Context, run *stage.Run) error {
	doc := run.Document
	req := run.Request
	logger := s.log(ctx)

	if req.DryRun {
		for i := range doc.Cues {
			doc.Cues[i].SetText(doc.Cues[i].SourceText)
		}
		logger.Info("dry run; source copied to translation", logging.Int("cues", len(doc.Cues)))
		run.ReportProgress(1)
		return nil
	}
	if doc.TargetLanguage == "" {
		logger.Info("no target language; checking source text")
		run.ReportProgress(1)
		return nil
	}

	opts := translate.Options{
		JobID:          run.JobID,
		SourceLanguage: doc.SourceLanguage,
		TargetLanguage: doc.TargetLanguage,
		Glossary:       s.glossary.Merge(translate.NewGlossary(req.Glossary)),
		Constraints:    doc.Constraints,
		BatchSize:      s.batchSize,
		ContextSize:    s.contextSize,
	}
	stats, err := s.translator.Translate(ctx, doc.Cues, opts, func(done, total int) {
		if total > 0 {
			run.ReportProgress(float64(done) / float64(total))
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, StageTranslate, "translate cues",
			fmt.Sprintf("provider %s failed", s.translator.Provider().Name()), err)
	}
	run.Translation = &stats
	if metered, ok := s.translator.Provider().(interface{ Usage() llm.Usage }); ok {
		usage := metered.Usage()
		logger.Debug("provider usage",
			logging.Int64("requests", usage.Requests),
			logging.Int64("prompt_tokens", usage.PromptTokens),
			logging.Int64("completion_tokens", usage.CompletionTokens),
		)
	}
	return nil
}

func (s *translateStage) HealthCheck(ctx context.Context) stage.Health {
	if s.translator == nil {
		return stage.Unhealthy(StageTranslate, "translator not configured")
	}
	checker, ok := s.translator.Provider().(interface{ HealthCheck(context.Context) error })
	if !ok {
		return stage.Healthy(StageTranslate)
	}
	return stage.HealthFromError(StageTranslate, checker.HealthCheck(ctx))
}

// postprocessStage re-lays out translations that break line limits when a
// balanced wrap fits. It is part of translation, so no fix flag is added.
type postprocessStage struct {
	loggerHolder
	wrap bool
}

func (s *postprocessStage) Execute(ctx context.Context, run *stage.Run) error {
	doc := run.Document
	if !s.wrap || doc.TargetLanguage == "" {
		return nil
	}
	limits := doc.Constraints
	wrapped := 0
	for i := range doc.Cues {
		cue := &doc.Cues[i]
		if cue.TranslatedText == nil {
			continue
		}
		text := *cue.TranslatedText
		if !textfit.NeedsWrap(text, limits.MaxCharsPerLine, limits.MaxLines) {
			continue
		}
		flat := strings.Join(strings.Fields(text), " ")
		if out, ok := textfit.WrapLanguage(flat, limits.MaxCharsPerLine, limits.MaxLines, cue.ProtectedTerms, doc.TargetLanguage); ok && out != text {
			cue.SetText(out)
			wrapped++
		}
	}
	if wrapped > 0 {
		s.log(ctx).Info("translations rewrapped", logging.Int("cues", wrapped))
	}
	return nil
}

func (s *postprocessStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StagePostprocess)
}

// genderStage offers gender alternatives for targets with grammatical gender.
type genderStage struct {
	loggerHolder
	detector *gender.Detector
}

func (s *genderStage) Execute(ctx context.Context, run *stage.Run) error {
	doc := run.Document
	lang := doc.TargetLanguage
	if lang == "" || !gender.Supported(lang) {
		return nil
	}
	choices, ambiguous := 0, 0
	for i := range doc.Cues {
		cue := &doc.Cues[i]
		if !s.detector.Annotate(cue, lang) {
			continue
		}
		choices++
		if s.detector.Ambiguous(cue.GenderConfidence) {
			ambiguous++
		}
	}
	s.log(ctx).Info("gender alternatives generated",
		logging.Int("cues_with_choice", choices),
		logging.Int("ambiguous", ambiguous),
		logging.String("target_language", lang),
	)
	return nil
}

func (s *genderStage) HealthCheck(context.Context) stage.Health {
	if s.detector == nil {
		return stage.Unhealthy(StageGender, "detector not configured")
	}
	return stage.Healthy(StageGender)
}

// qcStage runs the final QC pass and the optional batch auto-fix.
type qcStage struct {
	loggerHolder
	repair *repair.Orchestrator
}

func (s *qcStage) Execute(ctx context.Context, run *stage.Run) error {
	doc := run.Document
	req := run.Request
	logger := s.log(ctx)

	run.Report = qc.SyncFlags(doc)
	logger.Info("qc pass",
		logging.Int("issues", run.Report.Summary.IssuesCount),
		logging.Int("errors", run.Report.Summary.ErrorsCount),
		logging.Bool("qc_passed", run.Report.Summary.Passed),
	)
	if !req.AutoFix || run.Report.Summary.Passed {
		return nil
	}
	run.ReportProgress(0.5)
	result := s.repair.AutoFix(ctx, doc, "", req.AutoFixBudget)
	run.AutoFix = &result
	run.Report = qc.SyncFlags(doc)
	logger.Info("auto-fix applied",
		logging.String(logging.FieldEventType, "autofix_complete"),
		logging.Int("fixed", result.FixedCount),
		logging.Int("failed", result.FailedCount),
		logging.Int("skipped", result.SkippedCount),
		logging.Bool("qc_passed", run.Report.Summary.Passed),
	)
	return nil
}

func (s *qcStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StageQC)
}
