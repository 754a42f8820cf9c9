package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subconform/internal/config"
)

const userAgent = "subconform"

// JobOutcome summarizes a finished job for notification text.
type JobOutcome struct {
	JobID          string
	Filename       string
	SourceLanguage string
	TargetLanguage string
	Cues           int
	Errors         int
	Warnings       int
	Passed         bool
	Duration       time.Duration
}

// Service defines the notification surface used by the workflow manager.
type Service interface {
	NotifyJobCompleted(ctx context.Context, outcome JobOutcome) error
	NotifyJobFailed(ctx context.Context, outcome JobOutcome, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		onSuccess: cfg.Notifications.OnSuccess,
		client:    &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	onSuccess bool
	client    *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, outcome JobOutcome) error {
	name := displayName(outcome)
	if outcome.Passed {
		if !n.onSuccess {
			return nil
		}
		return n.send(ctx, payload{
			title:   "subconform - Job Complete",
			message: fmt.Sprintf("%s: %d cues passed QC in %s", name, outcome.Cues, formatDuration(outcome.Duration)),
			tags:    []string{"subconform", "job", "completed"},
		})
	}
	return n.send(ctx, payload{
		title: "subconform - Review Needed",
		message: fmt.Sprintf("%s: %d errors, %d warnings across %d cues\nJob %s",
			name, outcome.Errors, outcome.Warnings, outcome.Cues, outcome.JobID),
		tags:     []string{"subconform", "qc", "review"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, outcome JobOutcome, err error) error {
	var builder strings.Builder
	builder.WriteString(displayName(outcome))
	builder.WriteString(" failed: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}
	if outcome.JobID != "" {
		builder.WriteString("\nJob ")
		builder.WriteString(outcome.JobID)
	}
	return n.send(ctx, payload{
		title:    "subconform - Job Failed",
		message:  builder.String(),
		tags:     []string{"subconform", "job", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "subconform - Test",
		message:  "Notification system test",
		tags:     []string{"subconform", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayName(outcome JobOutcome) string {
	name := strings.TrimSpace(outcome.Filename)
	if name == "" {
		name = "subtitles"
	}
	if outcome.TargetLanguage != "" {
		name = fmt.Sprintf("%s (%s -> %s)", name, outcome.SourceLanguage, outcome.TargetLanguage)
	}
	return name
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, JobOutcome) error     { return nil }
func (noopService) NotifyJobFailed(context.Context, JobOutcome, error) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
