package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subconform/internal/jobs"
	"subconform/internal/logging"
	"subconform/internal/services"
)

// handleStageFailure records the failure on the job and returns stageErr.
// Cancellation marks the job as stopped instead of failed by the stage.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *jobs.Job, stageErr error) error {
	logger := logging.WithContext(ctx, m.logger)

	if errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded) {
		logger.Debug("stage interrupted by shutdown")
		if err := job.Fail(errors.New(jobs.StoppedReason)); err != nil {
			logger.Debug("could not mark interrupted job", logging.Error(err))
		}
		return stageErr
	}

	message := classifyStageFailure(stageName, stageErr)
	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.String("failure_kind", services.FailureKind(stageErr)),
		logging.Bool("user_facing", services.UserFacing(stageErr)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Error(stageErr),
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)

	if err := job.Fail(errors.New(message)); err != nil {
		logger.Error("failed to record stage failure", logging.Error(err))
	} else {
		m.notifyFailed(ctx, job, errors.New(message))
	}
	m.setLastError(stageErr)
	m.setLastJob(job.ID())
	return stageErr
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return getStageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = getStageFailureMessage(stageName, "failed")
	}
	return message
}

func getStageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "fix the uploaded file or job options and resubmit"
	case errors.Is(err, services.ErrConfiguration):
		return "check the configuration file"
	case errors.Is(err, services.ErrExternalTool):
		return "check translation provider settings and reachability"
	default:
		return "retry the job"
	}
}
