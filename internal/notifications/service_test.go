package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subconform/internal/config"
	"subconform/internal/notifications"
)

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	var c captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		c.body = string(body)
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("topic not found"))
		}
	}))
	t.Cleanup(server.Close)
	return server, &c
}

func serviceFor(topic string, onSuccess bool) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.RequestTimeoutSeconds = 5
	cfg.Notifications.OnSuccess = onSuccess
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := serviceFor("", true)
	if err := svc.NotifyJobFailed(context.Background(), notifications.JobOutcome{}, errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should produce a noop notifier, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	outcome := notifications.JobOutcome{
		JobID:          "job-1",
		Filename:       "episode.srt",
		SourceLanguage: "en",
		TargetLanguage: "es",
		Cues:           12,
		Errors:         2,
		Warnings:       1,
		Duration:       3400 * time.Millisecond,
	}
	passed := outcome
	passed.Passed = true
	passed.Errors = 0
	passed.Warnings = 0

	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:           "review needed",
			send:           func(s notifications.Service) error { return s.NotifyJobCompleted(context.Background(), outcome) },
			expectTitle:    "subconform - Review Needed",
			expectMessage:  "episode.srt (en -> es): 2 errors, 1 warnings across 12 cues\nJob job-1",
			expectTags:     "subconform,qc,review",
			expectPriority: "high",
		},
		{
			name:          "passed",
			send:          func(s notifications.Service) error { return s.NotifyJobCompleted(context.Background(), passed) },
			expectTitle:   "subconform - Job Complete",
			expectMessage: "episode.srt (en -> es): 12 cues passed QC in 3s",
			expectTags:    "subconform,job,completed",
		},
		{
			name: "failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), outcome, errors.New("translation provider unreachable"))
			},
			expectTitle:    "subconform - Job Failed",
			expectMessage:  "episode.srt (en -> es) failed: translation provider unreachable\nJob job-1",
			expectTags:     "subconform,job,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "subconform - Test",
			expectMessage:  "Notification system test",
			expectTags:     "subconform,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newNtfyServer(t, http.StatusOK)
			if err := tc.send(serviceFor(server.URL, true)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceSkipsPassingJobsByDefault(t *testing.T) {
	server, got := newNtfyServer(t, http.StatusOK)
	svc := serviceFor(server.URL, false)
	if err := svc.NotifyJobCompleted(context.Background(), notifications.JobOutcome{Filename: "a.srt", Passed: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected no request for a passing job, got %d", got.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusNotFound)
	err := serviceFor(server.URL, true).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 404: topic not found") {
		t.Fatalf("expected status error, got %v", err)
	}
}
