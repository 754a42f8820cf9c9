package api

import (
	"subconform/internal/fixes"
	"subconform/internal/jobs"
	"subconform/internal/jobstore"
	"subconform/internal/logging"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CreateJobRequest submits a subtitle file. Content is the raw file text
// for JSON requests; multipart uploads fill it from the file part.
type CreateJobRequest struct {
	Filename       string                 `json:"filename"`
	Content        string                 `json:"content"`
	Format         string                 `json:"format,omitempty"`
	SourceLanguage string                 `json:"source_language"`
	TargetLanguage string                 `json:"target_language,omitempty"`
	Constraints    *subtitles.Constraints `json:"constraints,omitempty"`
	DryRun         bool                   `json:"dry_run,omitempty"`
	AutoFix        bool                   `json:"auto_fix,omitempty"`
	AutoFixBudget  int                    `json:"auto_fix_budget,omitempty"`
	Glossary       map[string]string      `json:"glossary,omitempty"`
}

// CreateMultiJobRequest submits one subtitle file for several target
// languages. Each entry of TargetLanguages may itself be a comma-separated
// list. Glossaries holds per-language terms layered over Glossary.
type CreateMultiJobRequest struct {
	Filename        string                       `json:"filename"`
	Content         string                       `json:"content"`
	Format          string                       `json:"format,omitempty"`
	SourceLanguage  string                       `json:"source_language"`
	TargetLanguages []string                     `json:"target_languages"`
	Constraints     *subtitles.Constraints       `json:"constraints,omitempty"`
	DryRun          bool                         `json:"dry_run,omitempty"`
	AutoFix         bool                         `json:"auto_fix,omitempty"`
	AutoFixBudget   int                          `json:"auto_fix_budget,omitempty"`
	Glossary        map[string]string            `json:"glossary,omitempty"`
	Glossaries      map[string]map[string]string `json:"glossaries,omitempty"`
}

// CreateMultiJobResponse maps each target language to its child job.
type CreateMultiJobResponse struct {
	ParentJobID     string            `json:"parent_job_id"`
	ChildJobs       map[string]string `json:"child_jobs"`
	TargetLanguages []string          `json:"target_languages"`
}

// PendingReviewsResponse lists completed jobs waiting for a human decision.
type PendingReviewsResponse struct {
	Jobs  []jobs.Status `json:"pending_jobs"`
	Count int           `json:"count"`
}

// CreateJobResponse acknowledges a queued job.
type CreateJobResponse struct {
	JobID  string     `json:"job_id"`
	Status jobs.State `json:"status"`
}

// JobListResponse wraps a collection of job statuses.
type JobListResponse struct {
	Jobs []jobs.Status `json:"jobs"`
}

// JobResult is the full processed document of a completed job.
type JobResult struct {
	JobID          string                `json:"job_id"`
	Filename       string                `json:"filename"`
	SourceLanguage string                `json:"source_language"`
	TargetLanguage string                `json:"target_language,omitempty"`
	Constraints    subtitles.Constraints `json:"constraints"`
	Cues           []subtitles.Cue       `json:"cues"`
	Summary        qc.Summary            `json:"qc_summary"`
	Review         jobs.ReviewStatus     `json:"review_status"`
}

// CueReport is the QC view of one cue.
type CueReport struct {
	CueIndex int        `json:"cue_index"`
	Text     string     `json:"text"`
	Metrics  qc.Metrics `json:"metrics"`
	Issues   []qc.Issue `json:"issues"`
	Flags    []string   `json:"qc_flags"`
}

// QCReport is a fresh QC pass over a job's document.
type QCReport struct {
	JobID       string                `json:"job_id"`
	Constraints subtitles.Constraints `json:"constraints"`
	Summary     qc.Summary            `json:"summary"`
	Issues      []qc.Issue            `json:"issues"`
	Cues        []CueReport           `json:"cues"`
}

// SuggestionsResponse lists the ranked fix options for one cue.
type SuggestionsResponse struct {
	JobID string `json:"job_id"`
	fixes.Suggestions
}

// FixRequest applies one fix to one cue. Text and timing are only read for
// manual fixes.
type FixRequest struct {
	FixType string  `json:"fix_type"`
	Text    *string `json:"text,omitempty"`
	StartMS *int64  `json:"start_ms,omitempty"`
	EndMS   *int64  `json:"end_ms,omitempty"`
}

// FixResponse reports the committed cue after a fix.
type FixResponse struct {
	Success bool `json:"success"`
	repair.Result
}

// AutoFixRequest runs the batch auto-fixer. An empty issue type matches every
// fixable issue; MaxFixes <= 0 means no budget.
type AutoFixRequest struct {
	IssueType string `json:"issue_type,omitempty"`
	MaxFixes  int    `json:"max_fixes"`
}

// GenderRequest selects a gender form.
type GenderRequest struct {
	Gender string `json:"gender"`
	// OverrideConfident applies to document-wide switches only; nil uses
	// the configured default.
	OverrideConfident *bool `json:"override_confident,omitempty"`
}

// ReviewRequest records a human decision on a completed job.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

// ReviewResponse reports the new review status and how many translation
// memory entries the decision touched.
type ReviewResponse struct {
	JobID         string            `json:"job_id"`
	Review        jobs.ReviewStatus `json:"review_status"`
	MemoryEntries int               `json:"memory_entries"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	Queued      int            `json:"queued"`
	Active      int            `json:"active"`
	JobCounts   map[string]int `json:"job_counts"`
	LastError   string         `json:"last_error,omitempty"`
	LastJobID   string         `json:"last_job_id,omitempty"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon runtime information.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version,omitempty"`
	PID       int                      `json:"pid,omitempty"`
	StartedAt string                   `json:"started_at,omitempty"`
	Provider  string                   `json:"provider"`
	Workflow  WorkflowStatus           `json:"workflow"`
	Database  *jobstore.DatabaseHealth `json:"database,omitempty"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	CueIndex   int      `json:"cue_index,omitempty"`
	FixType    string   `json:"fix_type,omitempty"`
	Constraint string   `json:"constraint,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// LogStreamResponse is one page of streamed log events. Next is the cursor
// to pass as since on the following request.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}
