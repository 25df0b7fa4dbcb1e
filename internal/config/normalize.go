package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeTranscode()
	c.normalizeTranscription()
	c.normalizeWorkflow()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("WSPSR_WATCH_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WatchDir = strings.TrimSpace(value)
	}
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.watch_dir", &c.Paths.WatchDir, defaultWatchDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.scratch_dir", &c.Paths.ScratchDir, defaultScratchDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	trimOr(&c.Tools.Bsdtar, "bsdtar")
	trimOr(&c.Tools.FFmpeg, "ffmpeg")
	trimOr(&c.Tools.FFprobe, "ffprobe")
	trimOr(&c.Tools.WhisperX, "whisperx")
}

func (c *Config) normalizeTranscode() {
	trimOr(&c.Transcode.Codec, defaultCodec)
	trimOr(&c.Transcode.LogLevel, defaultFFmpegLogLevel)
	c.Transcode.Quality = strings.TrimSpace(c.Transcode.Quality)
	ext := strings.TrimSpace(c.Transcode.Extension)
	if ext == "" {
		ext = defaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Transcode.Extension = strings.ToLower(ext)
}

func (c *Config) normalizeTranscription() {
	trimOr(&c.Transcription.Language, defaultLanguage)
	c.Transcription.Language = strings.ToLower(c.Transcription.Language)
	trimOr(&c.Transcription.ComputeType, defaultComputeType)
	c.Transcription.ComputeType = strings.ToLower(c.Transcription.ComputeType)
	c.Transcription.AlignModel = strings.TrimSpace(c.Transcription.AlignModel)
	c.Transcription.Prompt = strings.TrimSpace(c.Transcription.Prompt)

	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}

	if len(c.Transcription.Models) == 0 {
		c.Transcription.Models = defaultModelCatalog()
	}
	catalog := make(map[string]string, len(c.Transcription.Models))
	for key, model := range c.Transcription.Models {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		catalog[key] = strings.TrimSpace(model)
	}
	c.Transcription.Models = catalog

	// An explicitly empty list is kept: it means new tracks are skipped.
	if c.Transcription.DefaultModels != nil {
		seen := make(map[string]struct{}, len(c.Transcription.DefaultModels))
		models := make([]string, 0, len(c.Transcription.DefaultModels))
		for _, model := range c.Transcription.DefaultModels {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			if _, dup := seen[model]; dup {
				continue
			}
			seen[model] = struct{}{}
			models = append(models, model)
		}
		c.Transcription.DefaultModels = models
	}
}

func (c *Config) normalizeWorkflow() {
	trimOr(&c.Workflow.OutputSuffix, defaultOutputSuffix)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimOr(value *string, fallback string) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		*value = fallback
	}
}
