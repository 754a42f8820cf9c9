package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subconform/internal/config"
	"subconform/internal/logging"
	"subconform/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	logger.Info("stage done",
		logging.String(logging.FieldJobID, "3f2a9c1b-aaaa-bbbb"),
		logging.String(logging.FieldStage, "translate"),
		logging.Int("cues", 12),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "pipeline · Job 3f2a9c1b (translate): stage done") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "cues=12") || strings.Contains(line, ".go:") {
		t.Fatalf("unexpected attributes in %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	hub := logging.NewStreamHub(10)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{filepath.Join(t.TempDir(), "ctx.log")}, Hub: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithJobID(context.Background(), "job-7")
	ctx = services.WithStage(ctx, "qc")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("context aware")

	events, _ := hub.Tail(1)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	evt := events[0]
	if evt.JobID != "job-7" || evt.Stage != "qc" || evt.CorrelationID != "req-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	hub := logging.NewStreamHub(10)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{filepath.Join(t.TempDir(), "warn.log")}, Hub: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "snapshot failed", "job_persist_failed", logging.String(logging.FieldImpact, "job lost on restart"))

	events, _ := hub.Tail(1)
	fields := events[0].Fields
	if fields[logging.FieldEventType] != "job_persist_failed" || fields[logging.FieldErrorHint] == "" {
		t.Fatalf("expected injected defaults, got %v", fields)
	}
	if fields[logging.FieldImpact] != "job lost on restart" {
		t.Fatalf("explicit impact should be kept, got %v", fields)
	}
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.log")
	fresh := filepath.Join(dir, "fresh.log")
	current := filepath.Join(dir, logging.LogFileName)
	other := filepath.Join(dir, "old.txt")
	for _, path := range []string{old, fresh, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := mustTime(t, "2000-01-01T00:00:00Z")
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if n := logging.PruneLogs(logging.NewNop(), dir, 7*24*time.Hour, current); n != 1 {
		t.Fatalf("removed %d files, want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log to be removed")
	}
	for _, path := range []string{fresh, current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain", filepath.Base(path))
		}
	}
	if n := logging.PruneLogs(logging.NewNop(), dir, 0); n != 0 {
		t.Fatalf("zero max age should disable pruning, removed %d", n)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}
