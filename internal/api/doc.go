// Package api defines wire-format types and the job service behind the HTTP
// API and the one-shot CLI commands. It translates registry jobs, repair
// results and workflow status into transport-friendly DTOs so the daemon
// handlers stay thin.
//
// # Key Types
//
// JobService: create, inspect, repair and review jobs. All cue operations
// go through jobs.Job.Read or jobs.Job.Mutate, so concurrent requests on one
// job are serialized while status polling never waits.
//
// QCReport: per-cue metrics and issues plus the file summary.
//
// WorkflowStatus/HealthResponse: worker pool state, stage health, database
// and translation memory health.
//
// # Design Notes
//
// DTOs use snake_case JSON tags, matching the subtitle document fields
// clients already consume. Invalid input is reported as ErrInvalidRequest so
// transports can map it without string matching.
package api
