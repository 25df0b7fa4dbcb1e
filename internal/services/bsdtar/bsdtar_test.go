package bsdtar

import (
	"slices"
	"testing"
)

func TestNewCommand(t *testing.T) {
	cmd := NewCommand(" ", "/media/b.zip", "dir/clip.wav", "/tmp/wspsr-1")
	want := []string{"-x", "-k", "-f", "/media/b.zip", "dir/clip.wav"}
	if cmd.Program != "bsdtar" || cmd.Dir != "/tmp/wspsr-1" || !slices.Equal(cmd.Args, want) {
		t.Fatalf("unexpected command %+v", cmd)
	}
}
