package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"wspsr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watched directory exists and is empty; udev notifications are off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "media")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Discovery.Udev = false
	cfgVal.Discovery.WorkerGrace = 1
	cfgVal.Discovery.ReceiveTimeout = 50
	cfgVal.Metrics.Bind = ""
	if err := os.MkdirAll(cfgVal.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDefaultModels overrides the models selected for new tasks.
func WithDefaultModels(models ...string) ConfigOption {
	return func(b *configBuilder) {
		if models == nil {
			models = []string{}
		}
		b.cfg.Transcription.DefaultModels = models
	}
}

// WithPollInterval overrides the discovery poll interval in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discovery.PollInterval = seconds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the wspsr external binaries are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"bsdtar", "ffmpeg", "ffprobe", "whisperx"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
