package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"wspsr/internal/config"
)

// taskLogs creates the per-run command log files under the task log
// directory.
type taskLogs struct {
	dir string
}

func newTaskLogs(cfg *config.Config) *taskLogs {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = cfg.TaskLogDir()
	}
	return &taskLogs{dir: dir}
}

// open creates the log file for one run of the track called name.
func (l *taskLogs) open(name, runID string) (*os.File, string, error) {
	if strings.TrimSpace(l.dir) == "" {
		return nil, "", fmt.Errorf("task log directory not configured")
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("ensure task log directory: %w", err)
	}
	path := filepath.Join(l.dir, l.filename(name, runID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("open task log: %w", err)
	}
	return file, path, nil
}

func (l *taskLogs) filename(name, runID string) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	slug := sanitizeSlug(name)
	if slug == "" {
		slug = "track"
	}
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return fmt.Sprintf("%s-%s-%s.log", timestamp, slug, runID)
}

func sanitizeSlug(value string) string {
	value = strings.TrimSpace(value)
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
