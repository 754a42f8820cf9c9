package jobs

import (
	"fmt"
	"sync"
	"time"

	"subconform/internal/qc"
	"subconform/internal/subtitles"
)

// Job is one submitted subtitle file and everything derived from it.
type Job struct {
	id       string
	request  Request
	registry *Registry

	stateMu sync.RWMutex
	status  Status

	docMu sync.RWMutex
	doc   *subtitles.Document

	// saveMu orders snapshots so a later save never carries older state.
	saveMu sync.Mutex
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Request returns the submitted request.
func (j *Job) Request() Request {
	j.stateMu.RLock()
	defer j.stateMu.RUnlock()
	return j.request
}

// Status returns the last committed status. It never waits on document mutations.
func (j *Job) Status() Status {
	j.stateMu.RLock()
	defer j.stateMu.RUnlock()
	out := j.status
	if j.status.Summary != nil {
		summary := *j.status.Summary
		out.Summary = &summary
	}
	return out
}

// ReleaseContent drops the raw upload once it has been parsed.
func (j *Job) ReleaseContent() {
	j.stateMu.Lock()
	j.request.Content = nil
	j.stateMu.Unlock()
}

// Start moves a pending job to processing.
func (j *Job) Start(stage string) error {
	if err := j.transition(func(s *Status) error {
		if s.State != StatePending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateProcessing)
		}
		s.State = StateProcessing
		s.Stage = stage
		return nil
	}); err != nil {
		return err
	}
	j.persist()
	return nil
}

// SetProgress records pipeline progress. Progress never decreases and is
// capped below 100 until the job completes.
func (j *Job) SetProgress(percent float64, stage string) error {
	return j.transition(func(s *Status) error {
		if s.State != StateProcessing {
			return fmt.Errorf("%w: progress outside processing (%s)", ErrInvalidTransition, s.State)
		}
		if percent > 99 {
			percent = 99
		}
		if percent > s.Progress {
			s.Progress = percent
		}
		if stage != "" {
			s.Stage = stage
		}
		return nil
	})
}

// Complete stores the processed document and QC report and ends processing.
func (j *Job) Complete(doc *subtitles.Document, report qc.Report) error {
	j.docMu.Lock()
	err := j.transition(func(s *Status) error {
		if s.State != StateProcessing {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateCompleted)
		}
		s.State = StateCompleted
		s.Progress = 100
		s.Stage = ""
		s.CueCount = len(doc.Cues)
		summary := report.Summary
		s.Summary = &summary
		s.Review = ReviewPending
		if summary.Passed {
			s.Review = ReviewAuto
		}
		return nil
	})
	if err == nil {
		j.doc = doc
	}
	j.docMu.Unlock()
	if err != nil {
		return err
	}
	j.persist()
	return nil
}

// Fail ends a pending or processing job with a human-readable error.
func (j *Job) Fail(cause error) error {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	if err := j.transition(func(s *Status) error {
		if s.State.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateFailed)
		}
		s.State = StateFailed
		s.Error = message
		return nil
	}); err != nil {
		return err
	}
	j.persist()
	return nil
}

// Read runs fn with shared access to the completed document. fn must not
// retain or modify the document.
func (j *Job) Read(fn func(doc *subtitles.Document) error) error {
	j.docMu.RLock()
	defer j.docMu.RUnlock()
	if err := j.requireCompleted(); err != nil {
		return err
	}
	return fn(j.doc)
}

// Mutate runs fn with exclusive access to the completed document, then
// refreshes the QC summary from a fresh pass and persists the job. Both
// happen even when fn fails, since fn may have committed part of its work.
func (j *Job) Mutate(fn func(doc *subtitles.Document) error) error {
	j.docMu.Lock()
	if err := j.requireCompleted(); err != nil {
		j.docMu.Unlock()
		return err
	}
	fnErr := fn(j.doc)
	report := qc.EvaluateDocument(j.doc)
	count := len(j.doc.Cues)
	j.docMu.Unlock()

	_ = j.transition(func(s *Status) error {
		summary := report.Summary
		s.Summary = &summary
		s.CueCount = count
		return nil
	})
	j.persist()
	return fnErr
}

// SetReview records a review decision on a completed job.
func (j *Job) SetReview(review ReviewStatus, notes string) error {
	if err := j.transition(func(s *Status) error {
		if s.State != StateCompleted {
			return fmt.Errorf("%w: review requires a completed job (%s)", ErrJobNotCompleted, s.State)
		}
		s.Review = review
		s.ReviewNotes = notes
		return nil
	}); err != nil {
		return err
	}
	j.persist()
	return nil
}

// Snapshot captures the job for persistence. The document is deep-copied.
func (j *Job) Snapshot() Snapshot {
	j.docMu.RLock()
	doc := j.doc.Clone()
	j.docMu.RUnlock()
	j.stateMu.RLock()
	request := j.request
	j.stateMu.RUnlock()
	return Snapshot{ID: j.id, Request: request, Status: j.Status(), Document: doc}
}

func (j *Job) requireCompleted() error {
	j.stateMu.RLock()
	state := j.status.State
	j.stateMu.RUnlock()
	if state != StateCompleted {
		return fmt.Errorf("%w: job %s is %s", ErrJobNotCompleted, j.id, state)
	}
	return nil
}

func (j *Job) transition(apply func(s *Status) error) error {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	next := j.status
	if err := apply(&next); err != nil {
		return err
	}
	next.UpdatedAt = j.registry.now()
	j.status = next
	return nil
}

// persist saves a snapshot taken under saveMu.
func (j *Job) persist() {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()
	j.registry.persist(j)
}

func (j *Job) updatedAt() time.Time {
	j.stateMu.RLock()
	defer j.stateMu.RUnlock()
	return j.status.UpdatedAt
}
