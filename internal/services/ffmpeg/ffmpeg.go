// Package ffmpeg builds the command that normalizes a source into the mono,
// fixed-rate lossy intermediate the transcriber consumes.
package ffmpeg

import (
	"strconv"
	"strings"

	"wspsr/internal/procexec"
)

// Options describes the normalized output.
type Options struct {
	Binary     string
	SampleRate int
	Channels   int
	Codec      string
	Quality    string
	LogLevel   string
}

// NormalizeArgs converts input to output using opts.
func NormalizeArgs(input, output string, opts Options) []string {
	logLevel := opts.LogLevel
	if logLevel == "" {
		logLevel = "warning"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", logLevel,
		"-i", input,
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-c:a", opts.Codec,
	}
	if opts.Quality != "" {
		args = append(args, "-q:a", opts.Quality)
	}
	return append(args, output)
}

// NewCommand returns the normalization command, run in dir.
func NewCommand(input, output, dir string, opts Options) procexec.Command {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return procexec.Command{Program: binary, Args: NormalizeArgs(input, output, opts), Dir: dir}
}
