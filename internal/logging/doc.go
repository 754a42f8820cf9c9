// Package logging assembles the structured slog loggers used across
// subconform.
//
// It owns the console and JSON handlers, level and output plumbing, the
// in-memory stream hub that backs the daemon's log endpoint, and
// context-aware helpers that tag log lines with job IDs, pipeline stages and
// request correlation IDs. A no-op logger is provided for tests and wiring
// code that cannot fail.
package logging
