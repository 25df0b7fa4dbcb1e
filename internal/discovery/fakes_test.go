package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"wspsr/internal/media"
	"wspsr/internal/services"
)

// extClassifier decides MIME types by extension so tests do not depend on
// content sniffing.
type extClassifier struct{}

func (extClassifier) Classify(path string) (media.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return media.FileInfo{}, services.Wrap(services.ErrNotFound, "discovery", "classify", "path vanished", err)
		}
		return media.FileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return media.FileInfo{Path: path, MIME: "inode/directory"}, nil
	}
	mime := "application/octet-stream"
	switch filepath.Ext(path) {
	case ".mp3":
		mime = "audio/mpeg"
	case ".mkv":
		mime = "video/x-matroska"
	case ".zip":
		mime = "application/zip"
	case ".txt":
		mime = "text/plain"
	}
	return media.FileInfo{Path: path, MIME: mime, Size: info.Size(), MTime: info.ModTime()}, nil
}

type fakeProber struct {
	tracks []media.TrackInfo
}

func (p fakeProber) AudioTracks(context.Context, string) []media.TrackInfo {
	return p.tracks
}

type fakeScanner struct {
	members map[string][]media.Member
	err     error
}

func (s fakeScanner) Scan(_ context.Context, path string) ([]media.Member, error) {
	if s.err != nil {
		return nil, s.err
	}
	members, ok := s.members[filepath.Base(path)]
	if !ok {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "discovery", "scan", "not an archive", nil)
	}
	return members, nil
}

type panicClassifier struct{}

func (panicClassifier) Classify(string) (media.FileInfo, error) {
	panic("boom")
}

// fakeTrigger records its lifecycle and lets tests fire wakeups.
type fakeTrigger struct {
	mu       sync.Mutex
	wake     func()
	started  bool
	stopped  bool
	startErr error
}

func (t *fakeTrigger) Name() string { return "fake" }

func (t *fakeTrigger) Start(_ context.Context, wake func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	t.wake = wake
	return nil
}

func (t *fakeTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrigger) fire() {
	t.mu.Lock()
	wake := t.wake
	t.mu.Unlock()
	if wake != nil {
		wake()
	}
}

func (t *fakeTrigger) state() (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started, t.stopped
}

func testInspector() *Inspector {
	index := 1
	return NewInspector(
		extClassifier{},
		fakeProber{tracks: []media.TrackInfo{{StreamIndex: &index, Codec: "mp3"}}},
		fakeScanner{members: map[string][]media.Member{
			"bundle.zip": {{ArchivePath: "a.mp3"}, {ArchivePath: "sub/b.wav", Encrypted: true}},
		}},
		nil,
	)
}
