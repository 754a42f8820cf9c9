package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs deletes *.log files in dir last modified more than maxAge ago
// and returns how many were removed. Paths listed in keep are left alone.
// A non-positive maxAge disables pruning.
func PruneLogs(logger *slog.Logger, dir string, maxAge time.Duration, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if maxAge <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	protected := make(map[string]bool, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			protected[abs] = true
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if protected[path] {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log prune failed; file remains", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
			)
			continue
		}
		removed++
		logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
	}
	if removed > 0 {
		logger.Info("old logs pruned",
			String(FieldEventType, "log_retention"),
			Int("removed", removed),
			Duration("max_age", maxAge),
		)
	}
	return removed
}
