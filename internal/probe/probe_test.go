package probe

import (
	"context"
	"errors"
	"testing"

	"wspsr/internal/logging"
	"wspsr/internal/media/ffprobe"
)

func TestTracksFromResult(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio", CodecName: "aac", ID: "0x2", SampleRate: "48000", Channels: 2,
				TimeBase: "1/48000", DurationTS: 96000, Duration: "2.000000"},
			{Index: 2, CodecType: "audio", CodecName: "opus", SampleRate: "48000", Channels: 1},
		},
		Format: ffprobe.Format{Duration: "2.5"},
	}
	tracks := TracksFromResult(result)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	first := tracks[0]
	if first.TrackID == nil || *first.TrackID != 2 {
		t.Fatalf("unexpected track id %v", first.TrackID)
	}
	if first.SamplesCount != 96000 || first.SamplingRate != 48000 || first.DurationMS != 2000 {
		t.Fatalf("unexpected first track %+v", first)
	}
	if first.StreamIndex == nil || *first.StreamIndex != 1 || first.Codec != "aac" {
		t.Fatalf("unexpected stream index/codec %+v", first)
	}
	second := tracks[1]
	if second.TrackID != nil {
		t.Fatalf("expected no track id, got %d", *second.TrackID)
	}
	if second.DurationMS != 2500 {
		t.Fatalf("expected container duration fallback, got %d", second.DurationMS)
	}
}

func TestTracksFromResultWithoutAudio(t *testing.T) {
	tracks := TracksFromResult(ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}})
	if len(tracks) != 0 {
		t.Fatalf("expected empty list, got %v", tracks)
	}
}

func TestAudioTracksProbeFailureYieldsEmptyList(t *testing.T) {
	p := New("ffprobe", logging.NewNop())
	p.inspect = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("exit status 1")
	}
	if tracks := p.AudioTracks(context.Background(), "/media/broken.mp3"); len(tracks) != 0 {
		t.Fatalf("expected empty list, got %v", tracks)
	}
}

func TestAudioTracksPassesBinaryAndPath(t *testing.T) {
	p := New("/opt/ffprobe", logging.NewNop())
	var gotBinary, gotPath string
	p.inspect = func(_ context.Context, binary, path string) (ffprobe.Result, error) {
		gotBinary, gotPath = binary, path
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}, nil
	}
	tracks := p.AudioTracks(context.Background(), "/media/a.mp3")
	if gotBinary != "/opt/ffprobe" || gotPath != "/media/a.mp3" {
		t.Fatalf("inspect called with %q %q", gotBinary, gotPath)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
}
