package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHandlerKeepsAccumulatedAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	logger := slog.New(handler).
		With(slog.String(FieldComponent, "pipeline")).
		With(slog.String(FieldJobID, "job-1")).
		With(slog.String(FieldStage, "translate"))
	logger.Info("batch translated", slog.Int("cues", 5))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.JobID != "job-1" || evt.Stage != "translate" || evt.Component != "pipeline" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Fields["cues"] != "5" || evt.Message != "batch translated" {
		t.Fatalf("unexpected fields %+v", evt)
	}
}

func TestStreamHandlerCallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)
	logger := slog.New(handler).With(slog.String(FieldStage, "parse"))
	logger.Info("message", slog.String(FieldStage, "qc"))

	events, _ := hub.Tail(10)
	if len(events) != 1 || events[0].Stage != "qc" {
		t.Fatalf("expected call-site stage to win, got %+v", events)
	}
}

func TestStreamHandlerNilHubReturnsBase(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if handler := newStreamHandler(base, nil); handler != base {
		t.Fatal("expected base handler when hub is nil")
	}
}

func TestStreamHubFetchAndCapacity(t *testing.T) {
	hub := NewStreamHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}
	if events, _, _ := hub.Fetch(context.Background(), 0, 10, false); len(events) != 3 || events[0].Sequence != 3 {
		t.Fatalf("expected the three newest events starting at 3, got %+v", events)
	}
	events, next, err := hub.Fetch(context.Background(), 3, 10, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 4 || next != 5 {
		t.Fatalf("unexpected fetch result %+v next=%d", events, next)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := hub.Fetch(ctx, 5, 10, true); err == nil {
		t.Fatal("expected wait to end with context error")
	}
}

func TestStreamHubFetchLimitAdvancesCursor(t *testing.T) {
	hub := NewStreamHub(10)
	for i := 0; i < 4; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}
	events, next, _ := hub.Fetch(context.Background(), 0, 3, false)
	if len(events) != 3 || next != 3 {
		t.Fatalf("expected first page to end at 3, got %d events next=%d", len(events), next)
	}
	events, next, _ = hub.Fetch(context.Background(), next, 3, false)
	if len(events) != 1 || events[0].Sequence != 4 || next != 4 {
		t.Fatalf("unexpected second page %+v next=%d", events, next)
	}
	if tail, last := hub.Tail(2); len(tail) != 2 || tail[0].Sequence != 3 || last != 4 {
		t.Fatalf("unexpected tail %+v last=%d", tail, last)
	}
}

func TestStreamHubFetchWakesWaiter(t *testing.T) {
	hub := NewStreamHub(10)
	done := make(chan []LogEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- events
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Publish(LogEvent{Message: "wake"})
	select {
	case events := <-done:
		if len(events) != 1 || events[0].Message != "wake" {
			t.Fatalf("unexpected events %+v", events)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestStreamHandlerPrefixesGroups(t *testing.T) {
	hub := NewStreamHub(10)
	logger := slog.New(newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub))
	logger.WithGroup("cue").Info("reflowed", slog.Int("index", 3))

	events, _ := hub.Tail(1)
	if len(events) != 1 || events[0].Fields["cue.index"] != "3" {
		t.Fatalf("expected grouped key, got %+v", events)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
