package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding data.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteScript writes an executable /bin/sh script with the given body and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// WAVHeader returns a minimal RIFF/WAVE header followed by size bytes of
// silence, enough for content sniffing to report audio/wav.
func WAVHeader(size int) []byte {
	data := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x80\x3e\x00\x00\x00\x7d\x00\x00\x02\x00\x10\x00data")
	data = append(data, 0, 0, 0, 0)
	return append(data, make([]byte, size)...)
}
