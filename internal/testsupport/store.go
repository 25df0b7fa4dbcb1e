package testsupport

import (
	"context"
	"testing"

	"wspsr/internal/config"
	"wspsr/internal/media"
	"wspsr/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddTrack registers track with the store, failing the test on error.
func AddTrack(t testing.TB, store *queue.Store, track media.Track) {
	t.Helper()

	if _, err := store.AddTrack(context.Background(), track); err != nil {
		t.Fatalf("store.AddTrack(%s): %v", track.Key, err)
	}
}

// PlainTrack builds a registry entry for a plain media file at path.
func PlainTrack(path string, index int) media.Track {
	obs := media.Observation{FileInfo: media.FileInfo{Path: path, MIME: "audio/mpeg", Format: "MPEG ADTS, layer III", Size: 1024}}
	tracks := media.ExpandTracks(obs)
	track := tracks[0]
	if index != 0 {
		id := index
		obs.AudioTracks = []media.TrackInfo{{TrackID: &id}}
		track = media.ExpandTracks(obs)[0]
	}
	return track
}

// MemberTrack builds a registry entry for an archive member.
func MemberTrack(archive, member string, encrypted bool) media.Track {
	obs := media.Observation{
		FileInfo: media.FileInfo{Path: archive, MIME: "application/zip", Format: "Zip archive data", Size: 2048},
		Member:   &media.Member{ArchivePath: member, ArchiveSize: 512, Encrypted: encrypted},
	}
	return media.ExpandTracks(obs)[0]
}
