// Package workflow runs submitted jobs through the subtitle pipeline.
//
// The Manager owns a pool of workers that drain a job channel. Each job
// moves through a fixed sequence of stages (parse, translate, postprocess,
// gender, qc), every stage owning a slice of the progress range so pollers
// see monotonic progress. Stage failures are classified with the services
// error markers, logged once, and recorded verbatim on the job.
//
// The same Process entry point is used by the daemon workers and by the
// one-shot CLI commands, so both produce identical documents.
package workflow
