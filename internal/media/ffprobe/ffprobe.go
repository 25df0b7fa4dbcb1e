package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	TimeBase   string `json:"time_base"`
	DurationTS int64  `json:"duration_ts"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse decodes an ffprobe -of json payload.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	var streams []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			streams = append(streams, stream)
		}
	}
	return streams
}

// DurationSeconds returns the container duration in seconds, NaN when it
// cannot be parsed, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// TrackID parses the container-level stream identifier. ffprobe reports it
// in hex for MPEG-TS ("0x101") and decimal elsewhere.
func (s Stream) TrackID() (int, bool) {
	raw := strings.TrimSpace(s.ID)
	if raw == "" {
		return 0, false
	}
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw, base = raw[2:], 16
	}
	id, err := strconv.ParseInt(raw, base, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return int(id), true
}

// SampleRateHz returns the stream sample rate, or 0 when unavailable.
func (s Stream) SampleRateHz() int {
	rate, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

// SamplesCount returns the stream length in samples when the time base is
// the sample period, which is how ffprobe reports most audio codecs.
func (s Stream) SamplesCount() (int64, bool) {
	rate := s.SampleRateHz()
	if rate <= 0 || s.DurationTS <= 0 {
		return 0, false
	}
	if strings.TrimSpace(s.TimeBase) != "1/"+strconv.Itoa(rate) {
		return 0, false
	}
	return s.DurationTS, true
}

// DurationSeconds returns the stream duration, or 0 when unavailable.
func (s Stream) DurationSeconds() float64 {
	value := parseFloat(s.Duration)
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return value
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
