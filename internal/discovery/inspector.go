package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"wspsr/internal/archive"
	"wspsr/internal/classify"
	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/probe"
)

// Classifier reports what a path is.
type Classifier interface {
	Classify(path string) (media.FileInfo, error)
}

// Prober lists the audio tracks of a media file.
type Prober interface {
	AudioTracks(ctx context.Context, path string) []media.TrackInfo
}

// ArchiveScanner lists the audio/video members of an archive.
type ArchiveScanner interface {
	Scan(ctx context.Context, path string) ([]media.Member, error)
}

// Inspector turns one path into zero or more observations.
type Inspector struct {
	classifier Classifier
	prober     Prober
	scanner    ArchiveScanner
	logger     *slog.Logger
}

// NewInspector composes the given collaborators.
func NewInspector(classifier Classifier, prober Prober, scanner ArchiveScanner, logger *slog.Logger) *Inspector {
	return &Inspector{
		classifier: classifier,
		prober:     prober,
		scanner:    scanner,
		logger:     logging.NewComponentLogger(logger, "inspector"),
	}
}

// DefaultInspector wires the content classifier, ffprobe, and the archive
// scanner.
func DefaultInspector(ffprobeBinary string, logger *slog.Logger) *Inspector {
	return NewInspector(classify.New(), probe.New(ffprobeBinary, logger), archive.New(logger), logger)
}

// Inspect classifies path. Audio and video files yield one observation
// carrying every probed track; anything else is tried as an archive and
// yields one observation per audio/video member. A panic while inspecting is
// returned as an error so the caller can skip the path.
func (i *Inspector) Inspect(ctx context.Context, path string) (observations []media.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			observations = nil
			err = fmt.Errorf("inspect %s: panic: %v", path, r)
		}
	}()

	info, err := i.classifier.Classify(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(info.MIME, "inode/") {
		return nil, nil
	}

	if media.IsMediaMIME(info.MIME) {
		tracks := i.prober.AudioTracks(ctx, path)
		if tracks == nil {
			tracks = []media.TrackInfo{}
		}
		i.logger.Debug("media file inspected",
			logging.String("path", path),
			logging.String("mime", info.MIME),
			logging.Int("audio_tracks", len(tracks)),
		)
		return []media.Observation{{FileInfo: info, AudioTracks: tracks}}, nil
	}

	members, err := i.scanner.Scan(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		m := member
		observations = append(observations, media.Observation{FileInfo: info, Member: &m})
	}
	if len(observations) > 0 {
		i.logger.Debug("archive inspected",
			logging.String("path", path),
			logging.Int("members", len(observations)),
		)
	}
	return observations, nil
}
