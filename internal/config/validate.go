package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/text/language"
)

var computeTypes = map[string]struct{}{
	"float32":       {},
	"float16":       {},
	"bfloat16":      {},
	"int8":          {},
	"int8_float16":  {},
	"int8_float32":  {},
	"int8_bfloat16": {},
	"default":       {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WatchDir == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if err := ensurePositiveMap(map[string]int{
		"discovery.poll_interval":      c.Discovery.PollInterval,
		"discovery.receive_timeout_ms": c.Discovery.ReceiveTimeout,
		"discovery.queue_size":         c.Discovery.QueueSize,
		"discovery.rescan_burst":       c.Discovery.RescanBurst,
	}); err != nil {
		return err
	}
	if c.Discovery.WorkerGrace < 0 {
		return errors.New("discovery.worker_grace must not be negative")
	}
	if c.Discovery.UdevSettle < 0 {
		return errors.New("discovery.udev_settle must not be negative")
	}
	if c.Discovery.RescanRate <= 0 {
		return errors.New("discovery.rescan_rate must be positive")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if err := ensurePositiveMap(map[string]int{
		"transcode.sample_rate": c.Transcode.SampleRate,
		"transcode.channels":    c.Transcode.Channels,
	}); err != nil {
		return err
	}
	if len(c.Transcode.Extension) < 2 || strings.ContainsAny(c.Transcode.Extension, `/\ `) {
		return fmt.Errorf("transcode.extension %q is not a file extension", c.Transcode.Extension)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	tr := c.Transcription
	if _, err := language.Parse(tr.Language); err != nil {
		return fmt.Errorf("transcription.language %q is not a valid language tag: %w", tr.Language, err)
	}
	if _, ok := computeTypes[tr.ComputeType]; !ok {
		return fmt.Errorf("transcription.compute_type %q is not supported", tr.ComputeType)
	}
	if len(tr.Models) == 0 {
		return errors.New("transcription.models must define at least one model")
	}
	for key, model := range tr.Models {
		if key == DiarizeModel {
			return fmt.Errorf("transcription.models: %q is reserved for diarization", DiarizeModel)
		}
		if model == "" {
			return fmt.Errorf("transcription.models.%s must name a whisperx model", key)
		}
	}
	for _, key := range tr.DefaultModels {
		if !c.IsKnownModel(key) {
			return fmt.Errorf("transcription.default_models: unknown model %q", key)
		}
	}
	if tr.MinSpeakers < 0 || tr.MaxSpeakers < 0 {
		return errors.New("transcription speaker bounds must not be negative")
	}
	if tr.MinSpeakers > 0 && tr.MaxSpeakers > 0 && tr.MinSpeakers > tr.MaxSpeakers {
		return errors.New("transcription.min_speakers must not exceed transcription.max_speakers")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind %q: %w", c.Metrics.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
