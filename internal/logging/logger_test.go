package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wspsr/internal/config"
	"wspsr/internal/logging"
	"wspsr/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "wspsr.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("log file missing message: %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without source", logging.String(logging.FieldComponent, "watcher"), logging.String("path", "/media/a b.mp3"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
	if !strings.Contains(line, "INFO watcher: message without source") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `path="/media/a b.mp3"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color codes in file output, got %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestJSONLoggerRenamesTimeKey(t *testing.T) {
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
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry["level"] != "info" || entry["k"] != "v" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTrackKey(ctx, "/media/a.mp3/0")
	ctx = services.WithStage(ctx, "loading")
	ctx = services.WithRunID(ctx, "run-1")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	want := map[string]string{
		logging.FieldTrackKey: "/media/a.mp3/0",
		logging.FieldStage:    "loading",
		logging.FieldRunID:    "run-1",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("field %s = %v, want %q", key, entry[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "probe failed", "probe_failed", logging.String(logging.FieldImpact, "track has no metadata"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if entry[logging.FieldEventType] != "probe_failed" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if entry[logging.FieldImpact] != "track has no metadata" {
		t.Fatalf("impact overridden: %v", entry[logging.FieldImpact])
	}
}

func TestTeeLoggerDuplicatesOutput(t *testing.T) {
	var base, extra bytes.Buffer
	logger := logging.TeeLogger(
		slog.New(slog.NewTextHandler(&base, &slog.HandlerOptions{Level: slog.LevelWarn})),
		logging.NewFileHandler(&extra, slog.LevelDebug),
	)
	logger.Debug("debug only in file")
	logger.Warn("warn everywhere")

	if strings.Contains(base.String(), "debug only") {
		t.Fatalf("base handler received debug line: %q", base.String())
	}
	if !strings.Contains(base.String(), "warn everywhere") {
		t.Fatalf("base handler missing warn line: %q", base.String())
	}
	if !strings.Contains(extra.String(), "debug only in file") || !strings.Contains(extra.String(), "warn everywhere") {
		t.Fatalf("file handler missing lines: %q", extra.String())
	}
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.log")
	newPath := filepath.Join(dir, "new.log")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{oldPath, newPath, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "*.log", 7)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old.log removed, stat err=%v", err)
	}
	for _, p := range []string{newPath, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}
