package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleSRT is a small subtitle file with one clean cue, one cue whose line is
// too long and one cue shown too briefly for its text.
const SampleSRT = "1\n00:00:01,000 --> 00:00:03,000\nHello there.\n\n" +
	"2\n00:00:04,000 --> 00:00:07,000\nThis is a very long line of subtitle text that exceeds forty two characters\n\n" +
	"3\n00:00:08,000 --> 00:00:08,400\nFar too much text to read\n"

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
