package workflow

import (
	"slices"

	"wspsr/internal/config"
	"wspsr/internal/queue"
)

// DefaultOptions derives the session defaults from the transcription
// configuration. Zero speaker bounds and an empty prompt stay unset.
func DefaultOptions(cfg *config.Config) queue.Options {
	tr := cfg.Transcription
	opts := queue.Options{Models: slices.Clone(tr.DefaultModels)}
	if opts.Models == nil {
		opts.Models = []string{}
	}
	if tr.MinSpeakers > 0 {
		minSpeakers := tr.MinSpeakers
		opts.MinSpeakers = &minSpeakers
	}
	if tr.MaxSpeakers > 0 {
		maxSpeakers := tr.MaxSpeakers
		opts.MaxSpeakers = &maxSpeakers
	}
	if tr.Prompt != "" {
		prompt := tr.Prompt
		opts.Prompt = &prompt
	}
	return opts
}
