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

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch. Returns the number of bytes copied.
func CopyFileVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return written, nil
}

// DirState describes a directory before anything is written into it.
type DirState int

const (
	// DirMissing means nothing exists at the path.
	DirMissing DirState = iota
	// DirEmpty means the path is a directory with no entries.
	DirEmpty
	// DirPopulated means the path is a directory with at least one entry.
	DirPopulated
)

// InspectDir reports whether dir is missing, empty, or populated. A path that
// exists but is not a directory is an error.
func InspectDir(dir string) (DirState, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return DirMissing, nil
	}
	if err != nil {
		return DirMissing, err
	}
	if !info.IsDir() {
		return DirMissing, fmt.Errorf("%s is not a directory", dir)
	}

	f, err := os.Open(dir)
	if err != nil {
		return DirMissing, err
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil {
		if errors.Is(err, io.EOF) {
			return DirEmpty, nil
		}
		return DirMissing, err
	}
	return DirPopulated, nil
}

// RemoveContents deletes every entry below dir and leaves dir itself in place.
func RemoveContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NearestExisting returns the closest ancestor of path that exists.
func NearestExisting(path string) (string, bool) {
	current := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(current); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// MissingRoot returns the topmost directory that os.MkdirAll(path) would
// create, or "" when path already exists. Removing it undoes the MkdirAll.
func MissingRoot(path string) string {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		return ""
	}
	ancestor, ok := NearestExisting(path)
	if !ok {
		return ""
	}
	top := path
	for filepath.Dir(top) != ancestor {
		top = filepath.Dir(top)
	}
	return top
}
