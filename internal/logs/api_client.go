package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"subconform/internal/api"
)

// ErrAPIUnavailable reports that no daemon answered on the configured bind.
var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamClient reads GET /api/logs from a running daemon.
type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// StreamQuery mirrors the /api/logs query parameters.
type StreamQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	JobID     string
	Component string
}

// NewStreamClient returns nil when bind is empty, meaning the API is disabled.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api bind: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		// Follow requests block until events arrive, so there is no client timeout.
		http: &http.Client{},
	}, nil
}

// Fetch performs one request.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if job := strings.TrimSpace(q.JobID); job != "" {
		values.Set("job", job)
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d: %s", resp.StatusCode, body.Error)
		}
		return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, fmt.Errorf("decode log events: %w", err)
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err means no daemon is listening.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
