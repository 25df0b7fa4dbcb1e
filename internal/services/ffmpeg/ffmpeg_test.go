package ffmpeg

import (
	"slices"
	"testing"
)

func TestNormalizeArgs(t *testing.T) {
	opts := Options{SampleRate: 16000, Channels: 1, Codec: "libvorbis", Quality: "10"}
	got := NormalizeArgs("/media/a.mp3", "a.mp3.oga", opts)
	want := []string{
		"-hide_banner", "-loglevel", "warning",
		"-i", "/media/a.mp3",
		"-ac", "1", "-ar", "16000", "-c:a", "libvorbis", "-q:a", "10",
		"a.mp3.oga",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("args = %v\nwant %v", got, want)
	}
}

func TestNormalizeArgsWithoutQuality(t *testing.T) {
	got := NormalizeArgs("in.wav", "in.wav.opus", Options{SampleRate: 16000, Channels: 1, Codec: "libopus", LogLevel: "error"})
	if slices.Contains(got, "-q:a") || got[2] != "error" {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestNewCommandDefaultsBinary(t *testing.T) {
	cmd := NewCommand("in.wav", "in.wav.oga", "/scratch", Options{SampleRate: 16000, Channels: 1, Codec: "libvorbis"})
	if cmd.Program != "ffmpeg" || cmd.Dir != "/scratch" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}
