package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CleanupOldLogs removes files in dir matching pattern whose modification time
// is older than retentionDays. A retentionDays value of 0 disables pruning.
// It returns the number of files removed.
func CleanupOldLogs(logger *slog.Logger, dir, pattern string, retentionDays int) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if ok, err := filepath.Match(pattern, entry.Name()); err != nil || !ok {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the log directory"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old task logs pruned", Int("count", removed), String(FieldEventType, "log_pruned"))
	}
	return removed
}
