package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy bounds how often and how patiently a request is repeated.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy allows five attempts with backoff from 1s to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// NoRetry makes a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{Attempts: 1}
}

func (p RetryPolicy) merge(o RetryPolicy) RetryPolicy {
	if o.Attempts > 0 {
		p.Attempts = o.Attempts
	}
	if o.BaseDelay > 0 {
		p.BaseDelay = o.BaseDelay
	}
	if o.MaxDelay > 0 {
		p.MaxDelay = o.MaxDelay
	}
	return p
}

// retryDelay decides whether err after attempt deserves another try and how
// long to wait first.
func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.retry.Attempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var empty *emptyContentError
	if errors.As(err, &empty) {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !retryableStatus(statusErr.StatusCode) {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return min(statusErr.RetryAfter, c.retry.MaxDelay), true
		}
		return c.backoffDelay(attempt), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// backoffDelay doubles from the base delay per attempt and stops at MaxDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retry.BaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt && delay < c.retry.MaxDelay; i++ {
		delay *= 2
	}
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, seconds >= 0
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
