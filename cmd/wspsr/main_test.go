package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"wspsr/internal/config"
	"wspsr/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "wspsr.toml")
	testsupport.WriteFile(t, path, data)
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	out, _, err = runCLI(t, "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# "+target)
	requireContains(t, out, "watch_dir")
	requireContains(t, out, "fail_on_transcribe_error")
}

func TestConfigShowRedactsToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.HFToken = "hf-secret"
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hf-secret") {
		t.Fatalf("token leaked in output:\n%s", out)
	}
	requireContains(t, out, "<redacted>")
}

func TestDepsReportsTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, "--config", path, "deps")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	for _, tool := range []string{"bsdtar", "ffmpeg", "whisperx"} {
		requireContains(t, out, tool)
	}
	requireContains(t, out, "Watched directory")
}

func TestDepsFailsOnMissingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Tools.WhisperX = filepath.Join(testsupport.BaseDir(cfg), "missing", "whisperx")
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, "--config", path, "deps")
	if err == nil || !strings.Contains(err.Error(), "missing required tools") {
		t.Fatalf("expected missing tool error, got %v", err)
	}
	requireContains(t, out, "missing")
}

func TestInspectListsArchiveMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := writeTestConfig(t, cfg)

	archive := filepath.Join(cfg.Paths.WatchDir, "bundle.zip")
	file, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(file)
	w, err := zw.Create("takes/clip.wav")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	if _, err := w.Write(testsupport.WAVHeader(64)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	file.Close()

	out, _, err := runCLI(t, "--config", path, "inspect", archive)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "takes/clip.wav")
	requireContains(t, out, "application/zip")
}

func TestInspectReportsNonMedia(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := writeTestConfig(t, cfg)
	notes := filepath.Join(cfg.Paths.WatchDir, "notes.txt")
	testsupport.WriteFile(t, notes, []byte("plain text\n"))

	out, _, err := runCLI(t, "--config", path, "inspect", notes)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "no audio tracks")
}

func TestRunRejectsConflictingStartFlags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, "--config", path, "run", "--start", "--no-start")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}
