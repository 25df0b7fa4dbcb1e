package config

const (
	defaultWatchDir         = "/media"
	defaultStateDir         = "~/.local/state/wspsr"
	defaultScratchDir       = "/tmp"
	defaultLogDir           = "~/.local/state/wspsr/logs"
	defaultPollInterval     = 2
	defaultReceiveTimeoutMS = 1000
	defaultWorkerGrace      = 4
	defaultQueueSize        = 256
	defaultRescanRate       = 2.0
	defaultRescanBurst      = 1
	defaultUdevSettle       = 2
	defaultSampleRate       = 16000
	defaultChannels         = 1
	defaultCodec            = "libvorbis"
	defaultQuality          = "10"
	defaultExtension        = ".oga"
	defaultFFmpegLogLevel   = "warning"
	defaultLanguage         = "no"
	defaultComputeType      = "float32"
	defaultAlignModel       = "NbAiLab/wav2vec2-xlsr-300m-norwegian"
	defaultOutputSuffix     = ".output"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultTranscribeModel  = "large-v2"
)

func defaultModelCatalog() map[string]string {
	return map[string]string{
		"large-v2": "large-v2",
		"nb-large": "NbAiLab/nb-whisper-large",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			StateDir:   defaultStateDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Discovery: Discovery{
			PollInterval:   defaultPollInterval,
			ReceiveTimeout: defaultReceiveTimeoutMS,
			WorkerGrace:    defaultWorkerGrace,
			QueueSize:      defaultQueueSize,
			RescanRate:     defaultRescanRate,
			RescanBurst:    defaultRescanBurst,
			Inotify:        true,
			Udev:           true,
			UdevSettle:     defaultUdevSettle,
		},
		Tools: Tools{
			Bsdtar:   "bsdtar",
			FFmpeg:   "ffmpeg",
			FFprobe:  "ffprobe",
			WhisperX: "whisperx",
		},
		Transcode: Transcode{
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			Codec:      defaultCodec,
			Quality:    defaultQuality,
			Extension:  defaultExtension,
			LogLevel:   defaultFFmpegLogLevel,
		},
		Transcription: Transcription{
			Language:      defaultLanguage,
			ComputeType:   defaultComputeType,
			AlignModel:    defaultAlignModel,
			DefaultModels: []string{defaultTranscribeModel, DiarizeModel},
			Models:        defaultModelCatalog(),
		},
		Workflow: Workflow{
			FailOnTranscribeError: true,
			OutputSuffix:          defaultOutputSuffix,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
