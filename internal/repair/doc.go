// Package repair applies fix options and gender choices to a job's cues.
//
// The Orchestrator re-validates every request against the cue's current
// state before mutating it, records the fix in the cue's flags and resyncs
// the raw issue labels from a fresh QC pass. Callers serialize mutations of
// one document; the orchestrator itself holds no per-document state.
package repair
