// Package classify determines the content type and basic filesystem metadata
// of a discovered path without following symlinks.
package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sys/unix"

	"wspsr/internal/media"
	"wspsr/internal/services"
)

// Classifier sniffs MIME types from file content.
type Classifier struct {
	lstat  func(path string, st *unix.Stat_t) error
	detect func(path string) (*mimetype.MIME, error)
}

// New returns a Classifier backed by the filesystem.
func New() *Classifier {
	return &Classifier{lstat: unix.Lstat, detect: mimetype.DetectFile}
}

// Classify returns MIME, format label, size, ctime and mtime for path. A path
// that vanished before or during inspection yields an error marked
// services.ErrNotFound.
func (c *Classifier) Classify(path string) (media.FileInfo, error) {
	var st unix.Stat_t
	if err := c.lstat(path, &st); err != nil {
		return media.FileInfo{}, classifyError("lstat", path, err)
	}
	info := media.FileInfo{
		Path:  path,
		Size:  st.Size,
		CTime: time.Unix(st.Ctim.Unix()),
		MTime: time.Unix(st.Mtim.Unix()),
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
	case unix.S_IFLNK:
		info.MIME, info.Format = "inode/symlink", "symbolic link"
		return info, nil
	case unix.S_IFDIR:
		info.MIME, info.Format = "inode/directory", "directory"
		return info, nil
	default:
		info.MIME, info.Format = "inode/x-special", "special file"
		return info, nil
	}

	detected, err := c.detect(path)
	if err != nil {
		return media.FileInfo{}, classifyError("sniff", path, err)
	}
	info.MIME = baseType(detected.String())
	info.Format = FormatLabel(detected)
	return info, nil
}

func classifyError(operation, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrNotFound, "classify", operation, path, err)
	}
	return fmt.Errorf("classify %s %s: %w", operation, path, err)
}

func baseType(value string) string {
	if base, _, found := strings.Cut(value, ";"); found {
		return strings.TrimSpace(base)
	}
	return value
}
