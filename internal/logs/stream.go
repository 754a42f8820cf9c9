package logs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subconform/internal/logging"
)

// ErrFiltersRequireAPI is returned when filters were requested but only the
// log file is available.
var ErrFiltersRequireAPI = errors.New("log filters require a running daemon")

const fileFollowWait = time.Second

// Options controls Stream.
type Options struct {
	Lines     int
	Follow    bool
	JobID     string
	Component string
	// FilePath is tailed when the API is unreachable.
	FilePath string
}

func (o Options) filtered() bool {
	return strings.TrimSpace(o.JobID) != "" || strings.TrimSpace(o.Component) != ""
}

// Stream emits daemon log events through onEvent, or raw log file lines
// through onLine when no daemon answers. It returns whether anything was
// emitted. Follow mode runs until ctx is cancelled.
func Stream(ctx context.Context, client *StreamClient, opts Options, onEvent func(logging.LogEvent), onLine func(string)) (bool, error) {
	printed, err := streamAPI(ctx, client, opts, onEvent)
	if err == nil || printed || !IsAPIUnavailable(err) {
		return printed, ignoreCancel(err)
	}
	if opts.filtered() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireAPI, ErrAPIUnavailable)
	}
	if strings.TrimSpace(opts.FilePath) == "" {
		return false, ErrAPIUnavailable
	}
	printed, err = streamFile(ctx, opts, onLine)
	return printed, ignoreCancel(err)
}

func streamAPI(ctx context.Context, client *StreamClient, opts Options, onEvent func(logging.LogEvent)) (bool, error) {
	query := StreamQuery{
		Limit:     opts.Lines,
		Tail:      true,
		JobID:     opts.JobID,
		Component: opts.Component,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func streamFile(ctx context.Context, opts Options, onLine func(string)) (bool, error) {
	tail := TailOptions{Offset: -1, Limit: opts.Lines, Follow: opts.Follow, Wait: fileFollowWait}
	if tail.Limit <= 0 {
		tail.Offset = 0
	}
	printed := false
	for {
		result, err := Tail(ctx, opts.FilePath, tail)
		if err != nil {
			return printed, err
		}
		for _, line := range result.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		if err := ctx.Err(); err != nil {
			return printed, err
		}
		tail.Offset = result.Offset
		tail.Limit = 0
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
