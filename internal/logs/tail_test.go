package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subconform/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subconform.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"fewer than limit", 10, []string{"a", "b", "c", "d", "e"}},
		{"exact wrap", 5, []string{"a", "b", "c", "d", "e"}},
		{"ring wraps", 2, []string{"d", "e"}},
		{"ring wraps unevenly", 3, []string{"c", "d", "e"}},
	}
	path := writeLog(t, "a\nb\nc\nd\ne\n")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: tt.limit})
			if err != nil {
				t.Fatalf("tail returned error: %v", err)
			}
			if strings.Join(result.Lines, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("expected %v, got %v", tt.want, result.Lines)
			}
			if result.Offset != 10 {
				t.Fatalf("expected offset at end of file, got %d", result.Offset)
			}
		})
	}
}

func TestTailFromOffsetAndMissingFile(t *testing.T) {
	path := writeLog(t, "first\nsecond\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 6})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "second" {
		t.Fatalf("unexpected lines %v", result.Lines)
	}

	missing, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: 40})
	if err != nil || len(missing.Lines) != 0 || missing.Offset != 0 {
		t.Fatalf("missing file should yield nothing at offset 0, got %+v (%v)", missing, err)
	}

	if _, err := logs.Tail(context.Background(), t.TempDir(), logs.TailOptions{Offset: -1, Limit: 1}); err == nil {
		t.Fatal("expected error for a directory")
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}
