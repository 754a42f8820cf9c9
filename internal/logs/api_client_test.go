package logs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"subconform/internal/api"
	"subconform/internal/logging"
	"subconform/internal/logs"
)

func TestNewStreamClientEmptyBind(t *testing.T) {
	client, err := logs.NewStreamClient("", "")
	if err != nil {
		t.Fatalf("NewStreamClient error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.Fetch(context.Background(), logs.StreamQuery{}); !errors.Is(err, logs.ErrAPIUnavailable) {
		t.Fatalf("nil client should be unavailable, got %v", err)
	}
}

func TestStreamClientFetchBuildsQueryAndDecodes(t *testing.T) {
	var (
		gotQuery url.Values
		gotAuth  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []logging.LogEvent{{Timestamp: time.Now().UTC(), Level: "INFO", Message: "hello"}},
			Next:   42,
		})
	}))
	defer srv.Close()

	client, err := logs.NewStreamClient(strings.TrimPrefix(srv.URL, "http://"), "tok")
	if err != nil {
		t.Fatalf("NewStreamClient error: %v", err)
	}
	resp, err := client.Fetch(context.Background(), logs.StreamQuery{
		Since:     3,
		Limit:     50,
		Follow:    true,
		Tail:      true,
		JobID:     "job-1",
		Component: "workflow",
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(resp.Events) != 1 || resp.Next != 42 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	for key, want := range map[string]string{
		"since":     "3",
		"limit":     "50",
		"follow":    "1",
		"tail":      "1",
		"job":       "job-1",
		"component": "workflow",
	} {
		if got := gotQuery.Get(key); got != want {
			t.Fatalf("query[%s]: expected %q, got %q", key, want, got)
		}
	}
}

func TestStreamClientSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","code":"unauthorized"}`))
	}))
	defer srv.Close()

	client, _ := logs.NewStreamClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), logs.StreamQuery{})
	if err == nil || !strings.Contains(err.Error(), "status 401: unauthorized") {
		t.Fatalf("expected status error with body, got %v", err)
	}
	if logs.IsAPIUnavailable(err) {
		t.Fatal("an HTTP error means the daemon is up")
	}
}

func TestIsAPIUnavailable(t *testing.T) {
	if !logs.IsAPIUnavailable(logs.ErrAPIUnavailable) {
		t.Fatal("expected ErrAPIUnavailable to be unavailable")
	}
	if logs.IsAPIUnavailable(errors.New("other")) {
		t.Fatal("did not expect generic error to be unavailable")
	}
	client, _ := logs.NewStreamClient(closedAddress(t), "")
	if _, err := client.Fetch(context.Background(), logs.StreamQuery{}); !logs.IsAPIUnavailable(err) {
		t.Fatalf("connection refused should be unavailable, got %v", err)
	}
}

func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
