// Package jobstore persists job snapshots and the translation memory in
// SQLite.
//
// Jobs are stored as JSON snapshots keyed by job id so the service can
// restore completed work after a restart; in-flight jobs cannot resume and
// are failed by the registry on restore. The translation memory maps a
// normalized source line and language pair to its last accepted translation.
// Entries carry the job that produced them so a review decision can approve
// or discard them together.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package jobstore
