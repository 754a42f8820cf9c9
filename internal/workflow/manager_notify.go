package workflow

import (
	"context"
	"time"

	"subconform/internal/jobs"
	"subconform/internal/logging"
	"subconform/internal/notifications"
	"subconform/internal/qc"
)

func jobOutcome(job *jobs.Job) notifications.JobOutcome {
	status := job.Status()
	return notifications.JobOutcome{
		JobID:          job.ID(),
		Filename:       status.Filename,
		SourceLanguage: status.SourceLanguage,
		TargetLanguage: status.TargetLanguage,
	}
}

// notifyCompleted runs after the job is committed; delivery failures are
// logged and never change the job state.
func (m *Manager) notifyCompleted(ctx context.Context, job *jobs.Job, summary qc.Summary, elapsed time.Duration) {
	outcome := jobOutcome(job)
	outcome.Cues = summary.TotalCues
	outcome.Errors = summary.ErrorsCount
	outcome.Warnings = summary.WarningsCount
	outcome.Passed = summary.Passed
	outcome.Duration = elapsed
	if err := m.notifier.NotifyJobCompleted(context.WithoutCancel(ctx), outcome); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "job notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (m *Manager) notifyFailed(ctx context.Context, job *jobs.Job, jobErr error) {
	if err := m.notifier.NotifyJobFailed(context.WithoutCancel(ctx), jobOutcome(job), jobErr); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "job notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
