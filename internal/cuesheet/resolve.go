package cuesheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResolveFiles maps every FILE entry of sheet to an existing path next to
// sheetPath. Names are resolved relative to the sheet's directory; absolute
// names and names that climb out of it are rejected. When the exact name is
// missing a case-insensitive match in the same directory is accepted, since
// sheets authored on Windows rarely agree with the on-disk case.
func ResolveFiles(sheetPath string, sheet *Sheet) ([]string, error) {
	dir := filepath.Dir(sheetPath)
	out := make([]string, 0, len(sheet.Files))
	for _, f := range sheet.Files {
		path, err := resolveOne(dir, f.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

func resolveOne(dir, name string) (string, error) {
	clean := strings.ReplaceAll(name, `\`, "/")
	if clean == "" || strings.ContainsRune(clean, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	if strings.HasPrefix(clean, "/") || filepath.IsAbs(name) || hasDriveLetter(clean) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	for _, segment := range strings.Split(clean, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}

	path := filepath.Join(dir, filepath.FromSlash(clean))
	info, err := os.Stat(path)
	if err == nil && info.Mode().IsRegular() {
		return path, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(path)
	base := filepath.Base(path)
	entries, readErr := os.ReadDir(parent)
	if readErr == nil {
		for _, entry := range entries {
			if entry.Type().IsRegular() && strings.EqualFold(entry.Name(), base) {
				return filepath.Join(parent, entry.Name()), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingFile, path)
}

func hasDriveLetter(name string) bool {
	return len(name) >= 2 && name[1] == ':' &&
		((name[0] >= 'a' && name[0] <= 'z') || (name[0] >= 'A' && name[0] <= 'Z'))
}

// SiblingSheet returns the .cue (or .CUE) file next to a .bin image.
func SiblingSheet(binPath string) (string, bool) {
	return sibling(binPath, ".cue", ".CUE")
}

// SiblingImage returns the .bin (or .BIN) file next to a .cue sheet.
func SiblingImage(cuePath string) (string, bool) {
	return sibling(cuePath, ".bin", ".BIN")
}

func sibling(path string, exts ...string) (string, bool) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range exts {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
