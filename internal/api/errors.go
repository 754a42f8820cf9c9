package api

import (
	"errors"
	"net/http"

	"subconform/internal/jobs"
	"subconform/internal/repair"
	"subconform/internal/subtitles"
	"subconform/internal/workflow"
)

// ErrInvalidRequest marks malformed or out-of-range client input.
var ErrInvalidRequest = errors.New("invalid request")

// StatusCode maps a service error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, jobs.ErrGroupNotFound), errors.Is(err, repair.ErrCueNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrJobNotCompleted), errors.Is(err, jobs.ErrInvalidTransition), errors.Is(err, repair.ErrStaleFix):
		return http.StatusConflict
	case errors.Is(err, repair.ErrInapplicable), errors.Is(err, repair.ErrOutOfRange),
		errors.Is(err, repair.ErrNoSuchAlternative), errors.Is(err, subtitles.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, jobs.ErrInvalidDecision), errors.Is(err, subtitles.ErrInvalidConstraints):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the JSON error payload, copying fix detail when present.
func ErrorBody(err error) ErrorResponse {
	body := ErrorResponse{Error: err.Error(), Code: errorCode(err)}
	var fe *repair.FixError
	if errors.As(err, &fe) {
		body.CueIndex = fe.CueIndex
		body.FixType = string(fe.FixType)
		body.Constraint = fe.Constraint
		body.Value = fe.Value
		body.Threshold = fe.Threshold
		body.Reason = fe.Reason
	}
	return body
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return "job_not_found"
	case errors.Is(err, jobs.ErrGroupNotFound):
		return "job_group_not_found"
	case errors.Is(err, repair.ErrCueNotFound):
		return "cue_not_found"
	case errors.Is(err, jobs.ErrJobNotCompleted):
		return "job_not_completed"
	case errors.Is(err, jobs.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, repair.ErrStaleFix):
		return "stale_fix"
	case errors.Is(err, repair.ErrInapplicable):
		return "fix_inapplicable"
	case errors.Is(err, repair.ErrOutOfRange):
		return "timing_out_of_range"
	case errors.Is(err, subtitles.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, repair.ErrNoSuchAlternative):
		return "no_such_alternative"
	case errors.Is(err, jobs.ErrInvalidDecision):
		return "invalid_decision"
	case errors.Is(err, subtitles.ErrInvalidConstraints):
		return "invalid_constraints"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, workflow.ErrQueueFull):
		return "busy"
	default:
		return "internal"
	}
}
