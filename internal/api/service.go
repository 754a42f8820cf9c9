package api

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"subconform/internal/config"
	"subconform/internal/fixes"
	"subconform/internal/jobs"
	"subconform/internal/jobstore"
	"subconform/internal/language"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
	"subconform/internal/textutil"
)

// Submitter hands created jobs to the pipeline.
type Submitter interface {
	Submit(job *jobs.Job) error
}

// MemoryReviewer applies review decisions to the translation memory.
type MemoryReviewer interface {
	ApproveJob(ctx context.Context, jobID string) (int, error)
	RejectJob(ctx context.Context, jobID string) (int, error)
	MemoryStats(ctx context.Context) (jobstore.MemoryStats, error)
}

// JobService exposes job operations returning API DTOs.
type JobService struct {
	cfg       *config.Config
	registry  *jobs.Registry
	submitter Submitter
	repair    *repair.Orchestrator
	memory    MemoryReviewer
	logger    *slog.Logger
}

// NewJobService wires the service. memory may be nil when the translation
// memory is disabled.
func NewJobService(cfg *config.Config, registry *jobs.Registry, submitter Submitter, orchestrator *repair.Orchestrator, memory MemoryReviewer, logger *slog.Logger) *JobService {
	return &JobService{
		cfg:       cfg,
		registry:  registry,
		submitter: submitter,
		repair:    orchestrator,
		memory:    memory,
		logger:    logging.NewComponentLogger(logger, "job-service"),
	}
}

// Create validates req, registers a pending job and queues it.
func (s *JobService) Create(ctx context.Context, req CreateJobRequest) (CreateJobResponse, error) {
	jobReq, err := s.buildRequest(req)
	if err != nil {
		return CreateJobResponse{}, err
	}
	job, err := s.enqueue(ctx, jobReq)
	if err != nil {
		return CreateJobResponse{}, err
	}
	return CreateJobResponse{JobID: job.ID(), Status: job.Status().State}, nil
}

// CreateMulti queues one job per target language and groups them under a
// parent identifier. Every request is validated before any job is queued.
// When the queue fills part way, the languages already queued keep running
// under the parent named in the error.
func (s *JobService) CreateMulti(ctx context.Context, req CreateMultiJobRequest) (CreateMultiJobResponse, error) {
	source := language.Normalize(req.SourceLanguage)
	if source == "" {
		source = "en"
	}
	targets, err := targetLanguages(source, req.TargetLanguages)
	if err != nil {
		return CreateMultiJobResponse{}, err
	}
	glossaries := make(map[string]map[string]string, len(req.Glossaries))
	for lang, terms := range req.Glossaries {
		glossaries[language.Normalize(lang)] = terms
	}

	requests := make([]jobs.Request, 0, len(targets))
	for _, lang := range targets {
		jobReq, err := s.buildRequest(CreateJobRequest{
			Filename:       req.Filename,
			Content:        req.Content,
			Format:         req.Format,
			SourceLanguage: source,
			TargetLanguage: lang,
			Constraints:    req.Constraints,
			DryRun:         req.DryRun,
			AutoFix:        req.AutoFix,
			AutoFixBudget:  req.AutoFixBudget,
			Glossary:       mergeGlossary(req.Glossary, glossaries[lang]),
		})
		if err != nil {
			return CreateMultiJobResponse{}, err
		}
		requests = append(requests, jobReq)
	}

	members := make([]jobs.GroupMember, 0, len(requests))
	var queueErr error
	for _, jobReq := range requests {
		job, err := s.enqueue(ctx, jobReq)
		if err != nil {
			queueErr = err
			break
		}
		members = append(members, jobs.GroupMember{Language: jobReq.TargetLanguage, JobID: job.ID()})
	}
	if len(members) == 0 {
		return CreateMultiJobResponse{}, queueErr
	}
	group := s.registry.CreateGroup(requests[0].Filename, source, members)
	if queueErr != nil {
		return CreateMultiJobResponse{}, fmt.Errorf("queued %d of %d languages under %s: %w", len(members), len(requests), group.ID, queueErr)
	}

	out := CreateMultiJobResponse{
		ParentJobID:     group.ID,
		ChildJobs:       make(map[string]string, len(members)),
		TargetLanguages: targets,
	}
	for _, m := range members {
		out.ChildJobs[m.Language] = m.JobID
	}
	return out, nil
}

// MultiStatus aggregates the children of a multi-language job.
func (s *JobService) MultiStatus(parentID string) (jobs.GroupStatus, error) {
	return s.registry.GroupStatus(parentID)
}

// enqueue registers jobReq and hands it to the pipeline. A job the pipeline
// refuses is removed again.
func (s *JobService) enqueue(ctx context.Context, jobReq jobs.Request) (*jobs.Job, error) {
	job := s.registry.Create(jobReq)
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldJobID, job.ID()))
	if err := s.submitter.Submit(job); err != nil {
		logging.WarnWithContext(logger, "job rejected", "job_rejected",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the upload was not processed"),
			logging.String(logging.FieldErrorHint, "retry once running jobs finish"),
		)
		_ = job.Fail(err)
		_ = s.registry.Delete(ctx, job.ID())
		return nil, err
	}
	logger.Info("job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("filename", jobReq.Filename),
		logging.Int("bytes", len(jobReq.Content)),
		logging.String("target_language", jobReq.TargetLanguage),
	)
	return job, nil
}

// targetLanguages normalizes and de-duplicates the requested targets. The
// source language is not a valid target.
func targetLanguages(source string, values []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			lang := language.Normalize(raw)
			switch {
			case lang == "":
				return nil, fmt.Errorf("%w: unknown target language %q", ErrInvalidRequest, strings.TrimSpace(raw))
			case lang == source:
				return nil, fmt.Errorf("%w: target language %q equals the source language", ErrInvalidRequest, lang)
			case seen[lang]:
				continue
			}
			seen[lang] = true
			out = append(out, lang)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one target language is required", ErrInvalidRequest)
	}
	return out, nil
}

func mergeGlossary(shared, specific map[string]string) map[string]string {
	if len(specific) == 0 {
		return shared
	}
	out := make(map[string]string, len(shared)+len(specific))
	for k, v := range shared {
		out[k] = v
	}
	for k, v := range specific {
		out[k] = v
	}
	return out
}

func (s *JobService) buildRequest(req CreateJobRequest) (jobs.Request, error) {
	if strings.TrimSpace(req.Content) == "" {
		return jobs.Request{}, fmt.Errorf("%w: subtitle content is required", ErrInvalidRequest)
	}
	var format subtitles.Format
	if strings.TrimSpace(req.Format) != "" {
		f, err := subtitles.ParseFormat(req.Format)
		if err != nil {
			return jobs.Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		format = f
	}
	constraints := s.cfg.Constraints
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	if err := constraints.Validate(); err != nil {
		return jobs.Request{}, err
	}
	if req.AutoFixBudget < 0 {
		return jobs.Request{}, fmt.Errorf("%w: auto_fix_budget must not be negative", ErrInvalidRequest)
	}
	source := language.Normalize(req.SourceLanguage)
	if source == "" {
		source = "en"
	}
	target := language.Normalize(req.TargetLanguage)
	if target == source {
		target = ""
	}
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}
	if filename == "" {
		filename = "upload.srt"
	}
	return jobs.Request{
		Filename:       filename,
		Format:         format,
		SourceLanguage: source,
		TargetLanguage: target,
		Constraints:    constraints,
		DryRun:         req.DryRun,
		AutoFix:        req.AutoFix,
		AutoFixBudget:  req.AutoFixBudget,
		Glossary:       req.Glossary,
		Content:        []byte(req.Content),
	}, nil
}

// List returns every known job, newest first.
func (s *JobService) List() JobListResponse {
	return JobListResponse{Jobs: s.registry.List()}
}

// ListByReview returns the jobs with the given review status, newest first.
func (s *JobService) ListByReview(review string) (JobListResponse, error) {
	status, err := jobs.ParseReviewStatus(review)
	if err != nil {
		return JobListResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return JobListResponse{Jobs: s.registry.ListByReview(status)}, nil
}

// PendingReviews lists completed jobs whose QC did not pass and that still
// wait for an approve or reject decision.
func (s *JobService) PendingReviews() PendingReviewsResponse {
	pending := s.registry.ListByReview(jobs.ReviewPending)
	return PendingReviewsResponse{Jobs: pending, Count: len(pending)}
}

// Status returns the pollable status of one job.
func (s *JobService) Status(id string) (jobs.Status, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return jobs.Status{}, err
	}
	return job.Status(), nil
}

// Delete removes a finished job. Jobs still queued or processing are kept.
func (s *JobService) Delete(ctx context.Context, id string) error {
	job, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if state := job.Status().State; !state.Terminal() {
		return fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidTransition, id, state)
	}
	return s.registry.Delete(ctx, id)
}

// Result returns the processed document of a completed job.
func (s *JobService) Result(id string) (JobResult, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return JobResult{}, err
	}
	var out JobResult
	err = job.Read(func(doc *subtitles.Document) error {
		cues := make([]subtitles.Cue, len(doc.Cues))
		for i, c := range doc.Cues {
			cues[i] = c.Clone()
		}
		out = JobResult{
			JobID:          job.ID(),
			SourceLanguage: doc.SourceLanguage,
			TargetLanguage: doc.TargetLanguage,
			Constraints:    doc.Constraints,
			Cues:           cues,
			Summary:        qc.EvaluateDocument(doc).Summary,
		}
		return nil
	})
	if err != nil {
		return JobResult{}, err
	}
	status := job.Status()
	out.Filename = status.Filename
	out.Review = status.Review
	return out, nil
}

// QCReport runs a fresh QC pass over a completed job.
func (s *JobService) QCReport(id string) (QCReport, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return QCReport{}, err
	}
	var out QCReport
	err = job.Read(func(doc *subtitles.Document) error {
		out = BuildQCReport(job.ID(), doc)
		return nil
	})
	return out, err
}

// Download renders a completed job in the requested format and returns the
// suggested file name.
func (s *JobService) Download(id, formatName string) ([]byte, string, error) {
	format, err := subtitles.ParseFormat(formatName)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return nil, "", err
	}
	var (
		data []byte
		lang string
	)
	err = job.Read(func(doc *subtitles.Document) error {
		lang = doc.TargetLanguage
		var renderErr error
		data, renderErr = subtitles.Render(doc.Cues, format)
		return renderErr
	})
	if err != nil {
		return nil, "", err
	}
	return data, DownloadName(job.Status().Filename, lang, format), nil
}

// DownloadName derives an output file name such as "episode.es.vtt".
func DownloadName(filename, lang string, format subtitles.Format) string {
	base := textutil.SanitizeFileName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" || base == "." {
		base = "subtitles"
	}
	if lang = textutil.SanitizeLanguageTag(lang); lang != "" {
		base += "." + lang
	}
	return base + "." + string(format)
}

// Suggestions returns the ranked fix options for one cue.
func (s *JobService) Suggestions(id string, index int) (SuggestionsResponse, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return SuggestionsResponse{}, err
	}
	var out SuggestionsResponse
	err = job.Read(func(doc *subtitles.Document) error {
		suggestions, err := s.repair.Suggest(doc, index)
		if err != nil {
			return err
		}
		out = SuggestionsResponse{JobID: job.ID(), Suggestions: suggestions}
		return nil
	})
	return out, err
}

// ApplyFix re-validates and applies one fix to one cue.
func (s *JobService) ApplyFix(ctx context.Context, id string, index int, req FixRequest) (FixResponse, error) {
	fixType, err := fixes.ParseFixType(req.FixType)
	if err != nil {
		return FixResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return FixResponse{}, err
	}
	var result repair.Result
	err = job.Mutate(func(doc *subtitles.Document) error {
		var applyErr error
		result, applyErr = s.repair.ApplyFix(ctx, doc, index, fixType, repair.Params{
			Text:    req.Text,
			StartMS: req.StartMS,
			EndMS:   req.EndMS,
			Origin:  repair.OriginUser,
		})
		return applyErr
	})
	if err != nil {
		return FixResponse{}, err
	}
	return FixResponse{Success: true, Result: result}, nil
}

// AutoFix runs the batch auto-fixer over a completed job.
func (s *JobService) AutoFix(ctx context.Context, id string, req AutoFixRequest) (repair.AutoFixResult, error) {
	var issueType qc.IssueType
	if strings.TrimSpace(req.IssueType) != "" {
		t, err := qc.ParseIssueType(req.IssueType)
		if err != nil {
			return repair.AutoFixResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		issueType = t
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return repair.AutoFixResult{}, err
	}
	var result repair.AutoFixResult
	err = job.Mutate(func(doc *subtitles.Document) error {
		result = s.repair.AutoFix(ctx, doc, issueType, req.MaxFixes)
		return nil
	})
	return result, err
}

// Gender returns the gender alternatives of one cue.
func (s *JobService) Gender(id string, index int) (repair.GenderState, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return repair.GenderState{}, err
	}
	var state repair.GenderState
	err = job.Read(func(doc *subtitles.Document) error {
		var genderErr error
		state, genderErr = s.repair.Gender(doc, index)
		return genderErr
	})
	return state, err
}

// SetGender switches one cue to the requested gender form.
func (s *JobService) SetGender(ctx context.Context, id string, index int, req GenderRequest) (repair.Result, error) {
	g, err := subtitles.ParseGender(req.Gender)
	if err != nil {
		return repair.Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return repair.Result{}, err
	}
	var result repair.Result
	err = job.Mutate(func(doc *subtitles.Document) error {
		var setErr error
		result, setErr = s.repair.SetGender(ctx, doc, index, g)
		return setErr
	})
	return result, err
}

// SetGenderAll switches every cue offering the requested form.
func (s *JobService) SetGenderAll(ctx context.Context, id string, req GenderRequest) (repair.BatchGenderResult, error) {
	g, err := subtitles.ParseGender(req.Gender)
	if err != nil {
		return repair.BatchGenderResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	override := s.cfg.Gender.BatchOverrideConfident
	if req.OverrideConfident != nil {
		override = *req.OverrideConfident
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return repair.BatchGenderResult{}, err
	}
	var result repair.BatchGenderResult
	err = job.Mutate(func(doc *subtitles.Document) error {
		var setErr error
		result, setErr = s.repair.SetGenderAll(ctx, doc, g, override)
		return setErr
	})
	return result, err
}

// Review records an approve or reject decision. Approving marks the job's
// translation memory entries approved; rejecting removes them. Memory
// failures are logged and do not undo the decision.
func (s *JobService) Review(ctx context.Context, id string, req ReviewRequest) (ReviewResponse, error) {
	review, err := jobs.ParseDecision(req.Decision)
	if err != nil {
		return ReviewResponse{}, err
	}
	job, err := s.registry.Get(id)
	if err != nil {
		return ReviewResponse{}, err
	}
	if err := job.SetReview(review, strings.TrimSpace(req.Notes)); err != nil {
		return ReviewResponse{}, err
	}
	out := ReviewResponse{JobID: job.ID(), Review: review}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldJobID, job.ID()))
	if s.memory != nil {
		var n int
		var memErr error
		if review == jobs.ReviewApproved {
			n, memErr = s.memory.ApproveJob(ctx, job.ID())
		} else {
			n, memErr = s.memory.RejectJob(ctx, job.ID())
		}
		if memErr != nil {
			logging.WarnWithContext(logger, "translation memory not updated", "memory_review_failed",
				logging.Error(memErr),
				logging.String(logging.FieldImpact, "memory entries keep their previous approval"),
				logging.String(logging.FieldErrorHint, "check database access"),
			)
		}
		out.MemoryEntries = n
	}
	logger.Info("job reviewed", logging.Args(append(
		logging.DecisionAttrs("job_review", string(review), req.Notes),
		logging.Int("memory_entries", out.MemoryEntries),
	)...)...)
	return out, nil
}

// MemoryStats reports translation memory usage. It is empty when the memory
// is disabled.
func (s *JobService) MemoryStats(ctx context.Context) (jobstore.MemoryStats, error) {
	if s.memory == nil {
		return jobstore.MemoryStats{LanguagePairs: map[string]int{}}, nil
	}
	return s.memory.MemoryStats(ctx)
}
