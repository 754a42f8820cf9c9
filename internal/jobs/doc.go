// Package jobs owns subtitle jobs and their documents.
//
// Each Job carries two locks: a state lock guarding status, progress and
// the QC summary, and a document lock serializing cue mutations while
// allowing concurrent reads. Status polling only takes the state lock, so it
// never waits on an in-flight repair. The Registry is the in-memory store
// jobs are looked up in; an optional Persister receives a snapshot after
// every committed change.
package jobs
