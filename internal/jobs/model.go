package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"subconform/internal/qc"
	"subconform/internal/subtitles"
)

// State is the lifecycle position of a job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ReviewStatus tracks human sign-off of a completed job.
type ReviewStatus string

const (
	ReviewAuto     ReviewStatus = "auto"
	ReviewPending  ReviewStatus = "pending_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ParseReviewStatus validates a review status filter.
func ParseReviewStatus(value string) (ReviewStatus, error) {
	switch r := ReviewStatus(strings.ToLower(strings.TrimSpace(value))); r {
	case ReviewAuto, ReviewPending, ReviewApproved, ReviewRejected:
		return r, nil
	default:
		return "", fmt.Errorf("unknown review status %q", value)
	}
}

// ParseDecision maps a review decision ("approve" or "reject") to its status.
func ParseDecision(decision string) (ReviewStatus, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		return ReviewApproved, nil
	case "reject", "rejected":
		return ReviewRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
}

// StoppedReason is recorded on jobs restored in a non-terminal state.
const StoppedReason = "service stopped before completion"

var (
	// ErrJobNotFound reports an unknown job identifier.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCompleted reports a cue operation on a job that has not finished processing.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrInvalidTransition reports a lifecycle change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrInvalidDecision reports a review decision other than approve or reject.
	ErrInvalidDecision = errors.New("invalid review decision")
)

// Request describes what a job should do with its input.
type Request struct {
	Filename       string                `json:"filename"`
	Format         subtitles.Format      `json:"format"`
	SourceLanguage string                `json:"source_language"`
	TargetLanguage string                `json:"target_language,omitempty"`
	Constraints    subtitles.Constraints `json:"constraints"`
	DryRun         bool                  `json:"dry_run"`
	AutoFix        bool                  `json:"auto_fix"`
	AutoFixBudget  int                   `json:"auto_fix_budget,omitempty"`
	Glossary       map[string]string     `json:"glossary,omitempty"`
	// Content is the uploaded subtitle file. It is only needed until parsing.
	Content []byte `json:"-"`
}

// Status is the pollable view of a job.
type Status struct {
	JobID          string       `json:"job_id"`
	Filename       string       `json:"filename"`
	SourceLanguage string       `json:"source_language"`
	TargetLanguage string       `json:"target_language,omitempty"`
	State          State        `json:"status"`
	Progress       float64      `json:"progress"`
	Stage          string       `json:"stage,omitempty"`
	Error          string       `json:"error,omitempty"`
	CueCount       int          `json:"cue_count"`
	Summary        *qc.Summary  `json:"qc_summary,omitempty"`
	Review         ReviewStatus `json:"review_status,omitempty"`
	ReviewNotes    string       `json:"review_notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Snapshot is the persisted form of a job.
type Snapshot struct {
	ID       string              `json:"id"`
	Request  Request             `json:"request"`
	Status   Status              `json:"status"`
	Document *subtitles.Document `json:"document,omitempty"`
}
