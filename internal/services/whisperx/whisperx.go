package whisperx

import (
	"os"
	"strconv"
	"strings"

	"wspsr/internal/procexec"
)

// Config captures settings shared by every invocation.
type Config struct {
	Binary      string
	Language    string
	ComputeType string
	// AlignModel is passed only when diarizing.
	AlignModel string
	// HFToken authorizes the diarization pipeline download. It travels in
	// the environment so command banners never carry it.
	HFToken string
}

// Request describes one transcription.
type Request struct {
	Input       string
	Model       string
	Diarize     bool
	MinSpeakers *int
	MaxSpeakers *int
	Prompt      *string
}

const (
	torchWeightsEnv = "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD"
	hfTokenEnv      = "HF_TOKEN"
)

// BuildArgs returns the whisperx argument vector for req, input last.
func BuildArgs(cfg Config, req Request) []string {
	args := make([]string, 0, 16)
	args = append(args,
		"--language", cfg.Language,
		"--model", req.Model,
		"--compute_type", cfg.ComputeType,
	)
	if req.Diarize {
		if align := strings.TrimSpace(cfg.AlignModel); align != "" {
			args = append(args, "--align_model", align)
		}
		args = append(args, "--diarize")
		if req.MinSpeakers != nil {
			args = append(args, "--min_speakers", strconv.Itoa(*req.MinSpeakers))
		}
		if req.MaxSpeakers != nil {
			args = append(args, "--max_speakers", strconv.Itoa(*req.MaxSpeakers))
		}
	}
	if req.Prompt != nil && *req.Prompt != "" {
		args = append(args, "--initial_prompt", *req.Prompt)
	}
	return append(args, req.Input)
}

// NewCommand returns the command for req, run in dir.
func NewCommand(cfg Config, req Request, dir string) procexec.Command {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "whisperx"
	}
	return procexec.Command{
		Program: binary,
		Args:    BuildArgs(cfg, req),
		Dir:     dir,
		Env:     environment(cfg, req),
	}
}

// environment forces legacy torch.load behaviour; torch 2.6 switched the
// default to weights_only, which breaks the pyannote checkpoints whisperx
// loads. A diarizing run also gets the Hugging Face token, which overrides
// any inherited one.
func environment(cfg Config, req Request) []string {
	token := strings.TrimSpace(cfg.HFToken)
	env := make([]string, 0, len(os.Environ())+2)
	for _, kv := range os.Environ() {
		if token != "" && req.Diarize && strings.HasPrefix(kv, hfTokenEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	if os.Getenv(torchWeightsEnv) == "" {
		env = append(env, torchWeightsEnv+"=1")
	}
	if token != "" && req.Diarize {
		env = append(env, hfTokenEnv+"="+token)
	}
	return env
}
