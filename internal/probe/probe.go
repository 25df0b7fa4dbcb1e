// Package probe extracts per-audio-track metadata from media files.
package probe

import (
	"context"
	"log/slog"
	"math"

	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/media/ffprobe"
)

// Prober runs ffprobe against media files.
type Prober struct {
	binary  string
	logger  *slog.Logger
	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New returns a Prober using the given ffprobe binary.
func New(binary string, logger *slog.Logger) *Prober {
	return &Prober{
		binary:  binary,
		logger:  logging.NewComponentLogger(logger, "probe"),
		inspect: ffprobe.Inspect,
	}
}

// AudioTracks returns one TrackInfo per audio stream in container order. A
// probe failure is logged and reported as an empty list so the file remains
// discoverable.
func (p *Prober) AudioTracks(ctx context.Context, path string) []media.TrackInfo {
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logging.WarnWithContext(p.logger, "ffprobe failed; track metadata unavailable", "probe_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run ffprobe on the file manually or check tools.ffprobe"),
			logging.String(logging.FieldImpact, "file is listed as a single track without duration"),
		)
		return nil
	}
	return TracksFromResult(result)
}

// TracksFromResult maps the audio streams of an ffprobe result.
func TracksFromResult(result ffprobe.Result) []media.TrackInfo {
	streams := result.AudioStreams()
	tracks := make([]media.TrackInfo, 0, len(streams))
	containerSeconds := result.DurationSeconds()
	for _, stream := range streams {
		index := stream.Index
		info := media.TrackInfo{
			StreamIndex:  &index,
			Codec:        stream.CodecName,
			Channels:     stream.Channels,
			SamplingRate: stream.SampleRateHz(),
		}
		if id, ok := stream.TrackID(); ok {
			info.TrackID = &id
		}
		if samples, ok := stream.SamplesCount(); ok {
			info.SamplesCount = samples
		}
		seconds := stream.DurationSeconds()
		if seconds == 0 && !math.IsNaN(containerSeconds) && containerSeconds > 0 {
			seconds = containerSeconds
		}
		if seconds > 0 {
			info.DurationMS = int64(math.Round(seconds * 1000))
		}
		tracks = append(tracks, info)
	}
	return tracks
}
