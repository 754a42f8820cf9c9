package stage

import (
	"context"

	"subconform/internal/jobs"
	"subconform/internal/qc"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
	"subconform/internal/translate"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Execute(context.Context, *Run) error
	HealthCheck(context.Context) Health
}

// Run is the working state of one job as it moves through the stages.
// Stages mutate Document in place; it is handed to the job on completion.
type Run struct {
	JobID    string
	Request  jobs.Request
	Document *subtitles.Document
	Report   qc.Report

	// Skipped counts malformed input blocks dropped while parsing.
	Skipped     int
	Translation *translate.Stats
	AutoFix     *repair.AutoFixResult

	progress func(fraction float64)
}

// NewRun prepares the working state for a job request.
func NewRun(jobID string, req jobs.Request) *Run {
	return &Run{JobID: jobID, Request: req}
}

// SetProgressFunc installs the callback ReportProgress forwards to.
func (r *Run) SetProgressFunc(fn func(fraction float64)) {
	r.progress = fn
}

// ReportProgress records how much of the current stage is done, from 0 to 1.
func (r *Run) ReportProgress(fraction float64) {
	if r.progress == nil {
		return
	}
	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	r.progress(fraction)
}

// Health summarizes whether a stage can accept work.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot run, with the reason in detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// HealthFromError is Healthy when err is nil and Unhealthy otherwise.
func HealthFromError(name string, err error) Health {
	if err != nil {
		return Unhealthy(name, err.Error())
	}
	return Healthy(name)
}
