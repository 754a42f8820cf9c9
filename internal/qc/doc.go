// Package qc measures cues and evaluates them against a job's constraint set.
//
// Compute is the single source of truth for cue metrics; the evaluator,
// fix generator and repair code all re-derive numbers through it so current
// and proposed states are measured identically. Issues are a view over cue
// state: they are recomputed on demand and never cached across a mutation.
package qc
