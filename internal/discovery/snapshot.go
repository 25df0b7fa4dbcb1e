package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sys/unix"
)

type fileID struct {
	dev uint64
	ino uint64
}

// snapshot maps the regular files under a directory to their identity. A
// path whose device or inode changed counts as newly created.
type snapshot map[string]fileID

// takeSnapshot lists the regular files directly under dir, or the whole tree
// when recursive is set. Symlinks are never followed. Only a failure to read
// dir itself is an error; entries vanishing mid-walk are skipped.
func takeSnapshot(dir string, recursive bool) (snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	snap := make(snapshot, len(entries))
	snap.add(dir, entries, recursive)
	return snap, nil
}

func (s snapshot) add(dir string, entries []fs.DirEntry, recursive bool) {
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !recursive {
				continue
			}
			children, err := os.ReadDir(path)
			if err != nil {
				continue
			}
			s.add(path, children, recursive)
			continue
		}
		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFREG {
			continue
		}
		s[path] = fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}
	}
}

// created returns, sorted, the paths in s that prev lacks or that now name a
// different file.
func (s snapshot) created(prev snapshot) []string {
	var paths []string
	for path, id := range s {
		if old, ok := prev[path]; ok && old == id {
			continue
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}
