package api

import (
	"context"
	"errors"
	"fmt"

	"subconform/internal/fixes"
	"subconform/internal/jobs"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
)

// Processor runs a job through the pipeline synchronously.
type Processor interface {
	Process(ctx context.Context, job *jobs.Job) error
}

// LoadDocument parses a subtitle file for the one-shot commands. The format
// comes from the file name, then the content.
func LoadDocument(data []byte, filename string, constraints subtitles.Constraints) (*subtitles.Document, subtitles.Format, error) {
	if err := constraints.Validate(); err != nil {
		return nil, "", err
	}
	format := subtitles.DetectFormat(filename, data)
	parsed, err := subtitles.Parse(data, format)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", filename, err)
	}
	doc := subtitles.NewDocument(parsed.Cues, constraints)
	qc.SyncFlags(doc)
	return doc, format, nil
}

// CheckFile runs QC over a subtitle file.
func CheckFile(data []byte, filename string, constraints subtitles.Constraints) (QCReport, error) {
	doc, _, err := LoadDocument(data, filename, constraints)
	if err != nil {
		return QCReport{}, err
	}
	return BuildQCReport(filename, doc), nil
}

// SuggestFile returns the fix options for one cue of a subtitle file.
func SuggestFile(orchestrator *repair.Orchestrator, data []byte, filename string, constraints subtitles.Constraints, index int) (fixes.Suggestions, error) {
	doc, _, err := LoadDocument(data, filename, constraints)
	if err != nil {
		return fixes.Suggestions{}, err
	}
	return orchestrator.Suggest(doc, index)
}

// FixFileResult is the outcome of an offline batch fix.
type FixFileResult struct {
	Output  []byte               `json:"-"`
	Format  subtitles.Format     `json:"format"`
	AutoFix repair.AutoFixResult `json:"auto_fix"`
	Report  QCReport             `json:"qc_report"`
}

// FixFile auto-fixes a subtitle file and renders it in its own format.
func FixFile(ctx context.Context, orchestrator *repair.Orchestrator, data []byte, filename string, constraints subtitles.Constraints, req AutoFixRequest) (FixFileResult, error) {
	var issueType qc.IssueType
	if req.IssueType != "" {
		t, err := qc.ParseIssueType(req.IssueType)
		if err != nil {
			return FixFileResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		issueType = t
	}
	doc, format, err := LoadDocument(data, filename, constraints)
	if err != nil {
		return FixFileResult{}, err
	}
	result := orchestrator.AutoFix(ctx, doc, issueType, req.MaxFixes)
	output, err := subtitles.Render(doc.Cues, format)
	if err != nil {
		return FixFileResult{}, err
	}
	return FixFileResult{
		Output:  output,
		Format:  format,
		AutoFix: result,
		Report:  BuildQCReport(filename, doc),
	}, nil
}

// Run creates a job and processes it in the calling goroutine. A failed
// job is returned as an error carrying the recorded message.
func (s *JobService) Run(ctx context.Context, processor Processor, req CreateJobRequest) (JobResult, error) {
	jobReq, err := s.buildRequest(req)
	if err != nil {
		return JobResult{}, err
	}
	job := s.registry.Create(jobReq)
	if err := processor.Process(ctx, job); err != nil {
		return JobResult{JobID: job.ID()}, err
	}
	status := job.Status()
	if status.State != jobs.StateCompleted {
		return JobResult{JobID: job.ID()}, errors.New(status.Error)
	}
	return s.Result(job.ID())
}
