package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// DiarizeModel is the model selection key that enables speaker diarization.
// It never names a transcription model.
const DiarizeModel = "diarize"

// Paths contains directory configuration.
type Paths struct {
	WatchDir   string `toml:"watch_dir"`
	StateDir   string `toml:"state_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Discovery controls how the watched directory is scanned.
type Discovery struct {
	Recursive      bool    `toml:"recursive"`
	PollInterval   int     `toml:"poll_interval"`
	ReceiveTimeout int     `toml:"receive_timeout_ms"`
	WorkerGrace    int     `toml:"worker_grace"`
	QueueSize      int     `toml:"queue_size"`
	RescanRate     float64 `toml:"rescan_rate"`
	RescanBurst    int     `toml:"rescan_burst"`
	Inotify        bool    `toml:"inotify"`
	Udev           bool    `toml:"udev"`
	UdevSettle     int     `toml:"udev_settle"`
}

// Tools names the external executables.
type Tools struct {
	Bsdtar   string `toml:"bsdtar"`
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
	WhisperX string `toml:"whisperx"`
}

// Transcode describes the normalized audio intermediate.
type Transcode struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Codec      string `toml:"codec"`
	Quality    string `toml:"quality"`
	Extension  string `toml:"extension"`
	LogLevel   string `toml:"log_level"`
}

// Transcription holds whisperx settings and the task defaults applied to every
// newly discovered track.
type Transcription struct {
	Language      string   `toml:"language"`
	ComputeType   string   `toml:"compute_type"`
	AlignModel    string   `toml:"align_model"`
	HFToken       string   `toml:"hf_token"`
	DefaultModels []string `toml:"default_models"`
	MinSpeakers   int      `toml:"min_speakers"`
	MaxSpeakers   int      `toml:"max_speakers"`
	Prompt        string   `toml:"prompt"`
	// Models maps selection keys to whisperx --model values.
	Models map[string]string `toml:"models"`
}

// Workflow controls task pipeline behaviour.
type Workflow struct {
	FailOnTranscribeError bool   `toml:"fail_on_transcribe_error"`
	OutputSuffix          string `toml:"output_suffix"`
	AutoStart             bool   `toml:"auto_start"`
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for wspsr.
//
// Configuration sections by subsystem:
//   - Paths: watched directory, session state, scratch space, logs
//   - Discovery: snapshot polling, notification sources, worker shutdown
//   - Tools: bsdtar, ffmpeg, ffprobe, whisperx executables
//   - Transcode: normalized audio format
//   - Transcription: whisperx settings, model catalog, task defaults
//   - Workflow: exit-code policy and output layout
//   - Metrics: Prometheus endpoint
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Discovery     Discovery     `toml:"discovery"`
	Tools         Tools         `toml:"tools"`
	Transcode     Transcode     `toml:"transcode"`
	Transcription Transcription `toml:"transcription"`
	Workflow      Workflow      `toml:"workflow"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wspsr/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A configured catalog replaces the built-in one instead of merging.
		cfg.Transcription.Models = nil
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strings.TrimSpace(strict.String()))
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("wspsr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a session writes to. The watched
// directory is never created; it belongs to the mount layer.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.ScratchDir, c.Paths.LogDir, c.TaskLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionDBPath is the SQLite file backing the session store.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.StateDir, "session.db")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "wspsr.lock")
}

// TaskLogDir holds one command log per processed track.
func (c *Config) TaskLogDir() string {
	return filepath.Join(c.Paths.LogDir, "tasks")
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Discovery.PollInterval) * time.Second
}

func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.Discovery.ReceiveTimeout) * time.Millisecond
}

func (c *Config) WorkerGrace() time.Duration {
	return time.Duration(c.Discovery.WorkerGrace) * time.Second
}

func (c *Config) UdevSettle() time.Duration {
	return time.Duration(c.Discovery.UdevSettle) * time.Second
}

// ModelKeys returns every selectable model key, catalog entries first in
// sorted order, followed by the diarize switch.
func (c *Config) ModelKeys() []string {
	keys := make([]string, 0, len(c.Transcription.Models)+1)
	for key := range c.Transcription.Models {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return append(keys, DiarizeModel)
}

// IsKnownModel reports whether key can appear in a task's model set.
func (c *Config) IsKnownModel(key string) bool {
	if key == DiarizeModel {
		return true
	}
	_, ok := c.Transcription.Models[key]
	return ok
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// WhisperModel maps a task's selected keys to the whisperx --model value: the
// first key naming a catalog entry wins, otherwise large-v2.
func (c *Config) WhisperModel(keys []string) string {
	for _, key := range keys {
		if key == DiarizeModel {
			continue
		}
		if model, ok := c.Transcription.Models[key]; ok {
			return model
		}
	}
	if model, ok := c.Transcription.Models[defaultTranscribeModel]; ok {
		return model
	}
	return defaultTranscribeModel
}
