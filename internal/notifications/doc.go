// Package notifications announces job outcomes over ntfy.
//
// The workflow manager reports failed jobs and jobs whose QC pass needs a
// human reviewer. Passing jobs are announced only when configured. With no
// topic configured NewService returns a no-op implementation, so callers
// never check whether notifications are enabled.
package notifications
