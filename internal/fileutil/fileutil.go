// Package fileutil copies pipeline artifacts out of scratch directories.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileVerified streams src to dst, creating or truncating dst with mode,
// and checks size and SHA256 of both sides. dst is removed on mismatch.
func CopyFileVerified(src, dst string, mode os.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// SkipFunc reports whether the entry at rel, relative to the tree root,
// should be left out of a copy.
type SkipFunc func(rel string, entry fs.DirEntry) bool

// CopyTree copies the contents of src into dst, creating dst if needed and
// overwriting files already present. Symlinks to files are copied by
// content; symlinked directories are not descended and dangling links are
// ignored. It returns the number of files copied.
func CopyTree(src, dst string, skip SkipFunc) (int, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	copied := 0
	err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if skip != nil && skip(rel, entry) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)

		switch mode := entry.Type(); {
		case mode.IsDir():
			return os.MkdirAll(target, 0o755)
		case mode&fs.ModeSymlink != 0:
			resolved, err := os.Stat(path)
			if err != nil || !resolved.Mode().IsRegular() {
				return nil
			}
			if err := CopyFileVerified(path, target, resolved.Mode().Perm()); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			copied++
		case mode.IsRegular():
			info, err := entry.Info()
			if err != nil {
				return err
			}
			if err := CopyFileVerified(path, target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			copied++
		}
		return nil
	})
	return copied, err
}
