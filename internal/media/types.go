package media

import (
	"strings"
	"time"
)

// FileInfo is what the classifier learns about a path on disk.
type FileInfo struct {
	Path   string    `json:"path"`
	MIME   string    `json:"mime"`
	Format string    `json:"format"`
	Size   int64     `json:"size"`
	CTime  time.Time `json:"ctime"`
	MTime  time.Time `json:"mtime"`
}

// TrackInfo is per-audio-track metadata. Every field is optional.
type TrackInfo struct {
	TrackID      *int   `json:"track_id,omitempty"`
	StreamIndex  *int   `json:"stream_index,omitempty"`
	Codec        string `json:"codec,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	SamplingRate int    `json:"sampling_rate,omitempty"`
	SamplesCount int64  `json:"samples_count,omitempty"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
}

// Member describes one entry inside an archive. Its times are zero when the
// archive format does not record them.
type Member struct {
	ArchivePath  string    `json:"archive_path"`
	ArchiveSize  int64     `json:"archive_size"`
	ArchiveCTime time.Time `json:"archive_ctime"`
	ArchiveMTime time.Time `json:"archive_mtime"`
	Encrypted    bool      `json:"encrypted,omitempty"`
}

// Observation is one discovery record. Plain media files carry AudioTracks
// and a nil Member; archive members carry a Member and no AudioTracks.
type Observation struct {
	FileInfo
	*Member
	AudioTracks []TrackInfo `json:"audio_tracks,omitempty"`
}

// Key identifies the observation: the path, or path/member for archive
// entries.
func (o Observation) Key() string {
	if o.Member != nil {
		return o.Path + "/" + o.ArchivePath
	}
	return o.Path
}

// IsArchiveMember reports whether the observation describes an archive entry.
func (o Observation) IsArchiveMember() bool {
	return o.Member != nil
}

// Track is a track registry entry: the observation without its track list,
// plus the single audio track the entry stands for.
type Track struct {
	Key string `json:"key"`
	FileInfo
	*Member
	AudioTrack TrackInfo `json:"audio_track"`
}

// IsArchiveMember reports whether the track lives inside an archive.
func (t Track) IsArchiveMember() bool {
	return t.Member != nil
}

// IsEncrypted reports whether the archive marked the track's member as
// encrypted.
func (t Track) IsEncrypted() bool {
	return t.Member != nil && t.Encrypted
}

// OutputDir is where exported artifacts for the track land: the source path
// without trailing separators plus suffix.
func (t Track) OutputDir(suffix string) string {
	return strings.TrimRight(t.Path, `/\`) + suffix
}

// Duration returns the track length derived from the sample count when the
// sampling rate is known, falling back to the reported duration.
func (t Track) Duration() (time.Duration, bool) {
	info := t.AudioTrack
	if info.SamplesCount > 0 && info.SamplingRate > 0 {
		seconds := float64(info.SamplesCount) / float64(info.SamplingRate)
		return time.Duration(seconds * float64(time.Second)), true
	}
	if info.DurationMS > 0 {
		return time.Duration(info.DurationMS) * time.Millisecond, true
	}
	return 0, false
}
