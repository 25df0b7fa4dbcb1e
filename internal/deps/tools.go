package deps

import "wspsr/internal/config"

// ToolRequirements lists the external tools the pipeline runs, as configured.
func ToolRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "bsdtar",
			Command:     cfg.Tools.Bsdtar,
			Description: "Extracts archive members before transcoding",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Normalizes audio for transcription",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Lists audio tracks during discovery",
			Optional:    true,
		},
		{
			Name:        "WhisperX",
			Command:     cfg.Tools.WhisperX,
			Description: "Transcribes and diarizes audio",
		},
	}
}

// MissingRequired returns the required tools that are not available.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
