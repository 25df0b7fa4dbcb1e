package discovery

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"wspsr/internal/testsupport"
)

func TestSnapshotCreated(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	testsupport.WriteFile(t, a, []byte("a"))

	first, err := takeSnapshot(dir, false)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if got := first.created(snapshot{}); !slices.Equal(got, []string{a}) {
		t.Fatalf("initial created = %v", got)
	}

	b := filepath.Join(dir, "b.mp3")
	testsupport.WriteFile(t, b, []byte("b"))
	second, err := takeSnapshot(dir, false)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if got := second.created(first); !slices.Equal(got, []string{b}) {
		t.Fatalf("second created = %v", got)
	}
	if got := second.created(second); len(got) != 0 {
		t.Fatalf("unchanged snapshot reported %v", got)
	}
}

func TestSnapshotSkipsSubdirectoriesUnlessRecursive(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "disc1", "track.mp3")
	testsupport.WriteFile(t, nested, []byte("x"))

	flat, err := takeSnapshot(dir, false)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if len(flat) != 0 {
		t.Fatalf("expected no entries, got %v", flat)
	}

	deep, err := takeSnapshot(dir, true)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if _, ok := deep[nested]; !ok {
		t.Fatalf("expected %s in recursive snapshot, got %v", nested, deep)
	}
}

func TestSnapshotIgnoresSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.mp3")
	testsupport.WriteFile(t, target, []byte("x"))
	if err := os.Symlink(target, filepath.Join(dir, "link.mp3")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	snap, err := takeSnapshot(dir, true)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("expected symlink to be ignored, got %v", snap)
	}
}

func TestSnapshotReplacedFileCountsAsCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp3")
	testsupport.WriteFile(t, path, []byte("a"))
	before, err := takeSnapshot(dir, false)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}

	// Hold the old inode open via a hard link so the replacement cannot reuse it.
	if err := os.Link(path, filepath.Join(t.TempDir(), "keep")); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testsupport.WriteFile(t, path, []byte("b"))

	after, err := takeSnapshot(dir, false)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if got := after.created(before); !slices.Equal(got, []string{path}) {
		t.Fatalf("replaced file not reported: %v", got)
	}
}

func TestSnapshotMissingDirectory(t *testing.T) {
	if _, err := takeSnapshot(filepath.Join(t.TempDir(), "gone"), false); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
