// Package daemon coordinates the long-running subconform process.
//
// It wires configuration, the job store, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances sharing a data directory. On start the daemon restores persisted
// jobs, starts the pipeline workers, sweeps expired jobs on an interval, and
// serves the JSON API.
//
// Keep orchestration logic here: job semantics live in internal/api and the
// pipeline lives in internal/workflow, while the daemon focuses on startup,
// shutdown, and request routing.
package daemon
