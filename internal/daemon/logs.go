package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"subconform/internal/api"
	"subconform/internal/logging"
)

const defaultLogLimit = 200

// handleLogs pages through the in-memory log stream. With follow set the
// request blocks until new events arrive or the client goes away; with tail
// set and no cursor it returns the most recent events.
func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.hub
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []logging.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	follow := queryBool(query.Get("follow"))
	tail := queryBool(query.Get("tail"))
	jobID := strings.TrimSpace(query.Get("job"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if tail && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		var err error
		events, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, r, err)
			return
		}
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func queryBool(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
