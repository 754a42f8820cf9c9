package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"subconform/internal/config"
	"subconform/internal/jobs"
	"subconform/internal/logging"
	"subconform/internal/services"
	"subconform/internal/stage"
)

// Stage names, also reported as the job's progress stage.
const (
	StageParse       = "parse"
	StageTranslate   = "translate"
	StagePostprocess = "postprocess"
	StageGender      = "gender"
	StageQC          = "qc"
)

const progressLogStep = 10

type pipelineStage struct {
	name    string
	handler stage.Handler
	// start and end bound the job progress this stage reports into.
	start, end float64
}

func buildStages(cfg *config.Config, deps Dependencies, logger *slog.Logger) []pipelineStage {
	base := loggerHolder{logger: logger}
	return []pipelineStage{
		{name: StageParse, handler: &parseStage{loggerHolder: base}, start: 0, end: 10},
		{name: StageTranslate, handler: &translateStage{
			loggerHolder: base,
			translator:   deps.Translator,
			glossary:     deps.Glossary,
			batchSize:    cfg.Translation.BatchSize,
			contextSize:  cfg.Translation.ContextSize,
		}, start: 10, end: 80},
		{name: StagePostprocess, handler: &postprocessStage{loggerHolder: base, wrap: cfg.Workflow.WrapTranslations}, start: 80, end: 90},
		{name: StageGender, handler: &genderStage{loggerHolder: base, detector: deps.Repair.Detector()}, start: 90, end: 95},
		{name: StageQC, handler: &qcStage{loggerHolder: base, repair: deps.Repair}, start: 95, end: 100},
	}
}

// Process runs job through every stage and completes or fails it. It is
// safe to call directly for one-shot processing without starting workers.
func (m *Manager) Process(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithJobID(ctx, job.ID())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	if err := job.Start(m.stages[0].name); err != nil {
		logger.Warn("job not started", logging.Error(err))
		m.setLastError(err)
		return err
	}
	m.active.Add(1)
	defer m.active.Add(-1)

	jobStart := time.Now()
	req := job.Request()
	run := stage.NewRun(job.ID(), req)
	sampler := logging.NewProgressSampler(progressLogStep)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("filename", req.Filename),
		logging.String("source_language", req.SourceLanguage),
		logging.String("target_language", req.TargetLanguage),
		logging.Bool("dry_run", req.DryRun),
		logging.Bool("auto_fix", req.AutoFix),
	)

	for _, stg := range m.stages {
		stageCtx := services.WithStage(ctx, stg.name)
		stageLogger := logging.WithContext(stageCtx, m.logger)
		run.SetProgressFunc(func(fraction float64) {
			m.reportProgress(stageLogger, job, stg, fraction, sampler)
		})
		if err := m.executeStage(stageCtx, stageLogger, stg, run, job); err != nil {
			return m.handleStageFailure(stageCtx, stg.name, job, err)
		}
		if stg.name == StageParse {
			job.ReleaseContent()
		}
	}

	if err := job.Complete(run.Document, run.Report); err != nil {
		logger.Error("failed to complete job", logging.Error(err))
		m.setLastError(err)
		return err
	}
	m.setLastJob(job.ID())
	summary := run.Report.Summary
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("cues", summary.TotalCues),
		logging.Int("errors", summary.ErrorsCount),
		logging.Bool("qc_passed", summary.Passed),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	m.notifyCompleted(ctx, job, summary, time.Since(jobStart))
	return nil
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, run *stage.Run, job *jobs.Job) error {
	if stg.handler == nil {
		return fmt.Errorf("stage %s missing handler", stg.name)
	}
	if err := job.SetProgress(stg.start, stg.name); err != nil {
		return err
	}

	stageStart := time.Now()
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := stg.handler.Execute(ctx, run); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.SetProgress(stg.end, stg.name); err != nil {
		return err
	}
	stageLogger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

func (m *Manager) reportProgress(logger *slog.Logger, job *jobs.Job, stg pipelineStage, fraction float64, sampler *logging.ProgressSampler) {
	percent := stg.start + (stg.end-stg.start)*fraction
	if err := job.SetProgress(percent, stg.name); err != nil {
		if !errors.Is(err, jobs.ErrInvalidTransition) {
			logger.Debug("progress update dropped", logging.Error(err))
		}
		return
	}
	if sampler.ShouldLog(stg.name, percent) {
		logger.Info("job progress",
			logging.String(logging.FieldEventType, "job_progress"),
			logging.Float64("progress", percent),
		)
	}
}
