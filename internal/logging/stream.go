package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log record as served by GET /api/logs.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	JobID         string            `json:"job_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamHub keeps the most recent log events in a ring and lets readers
// page through them by sequence number, optionally waiting for new ones.
// Sequence numbers start at 1 and have no gaps.
type StreamHub struct {
	mu     sync.Mutex
	ring   []LogEvent
	start  int
	count  int
	last   uint64
	notify chan struct{}
}

// NewStreamHub returns a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{
		ring:   make([]LogEvent, capacity),
		notify: make(chan struct{}),
	}
}

// Publish assigns the next sequence number to evt, stores it, and wakes
// every waiting reader.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	h.last++
	evt.Sequence = h.last
	if h.count < len(h.ring) {
		h.ring[(h.start+h.count)%len(h.ring)] = evt
		h.count++
	} else {
		h.ring[h.start] = evt
		h.start = (h.start + 1) % len(h.ring)
	}
	close(h.notify)
	h.notify = make(chan struct{})
	h.mu.Unlock()
}

// Fetch returns up to limit events newer than since, and the sequence to
// pass as since on the next call. With wait set it blocks until an event
// arrives or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		h.mu.Lock()
		events, next := h.collectLocked(since, limit)
		notify := h.notify
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, next, nil
		}
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-notify:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > h.count {
		limit = h.count
	}
	return h.collectLocked(h.last-uint64(limit), limit)
}

func (h *StreamHub) collectLocked(since uint64, limit int) ([]LogEvent, uint64) {
	if h.count == 0 || since >= h.last {
		return nil, max(since, h.last)
	}
	oldest := h.last - uint64(h.count) + 1
	from := max(since+1, oldest)
	n := int(h.last - from + 1)
	if limit > 0 && n > limit {
		n = limit
	}
	offset := int(from - oldest)
	out := make([]LogEvent, n)
	for i := range out {
		out[i] = h.ring[(h.start+offset+i)%len(h.ring)]
	}
	return out, out[n-1].Sequence
}

// streamHandler copies every record into the hub before passing it on.
type streamHandler struct {
	next   slog.Handler
	hub    *StreamHub
	attrs  []slog.Attr
	prefix string
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(h.event(record))
	return h.next.Handle(ctx, record)
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		merged = append(merged, attr)
	}
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: merged, prefix: h.prefix}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs, prefix: h.prefix + name + "."}
}

// event flattens record into a LogEvent. Well-known keys fill the dedicated
// fields; call-site attrs override those added through WithAttrs.
func (h *streamHandler) event(record slog.Record) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    make(map[string]string),
	}
	for _, attr := range h.attrs {
		evt.apply(attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		evt.apply(h.prefix+attr.Key, attr.Value)
		return true
	})
	return evt
}

func (evt *LogEvent) apply(key string, value slog.Value) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	switch key {
	case FieldJobID:
		evt.JobID = attrString(value)
	case FieldStage:
		evt.Stage = attrString(value)
	case FieldCorrelationID:
		evt.CorrelationID = attrString(value)
	case FieldComponent:
		evt.Component = attrString(value)
	default:
		evt.Fields[key] = attrString(value)
	}
}
