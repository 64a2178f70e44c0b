// Package destlock serialises extractions that target the same destination.
// Two installer processes writing one install directory would interleave
// files and each roll back the other's work, so the CLI holds an advisory
// file lock keyed by the destination for the whole extraction.
package destlock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	perrors "github.com/jmgilman/go/errors"
)

const lockSuffix = ".lock"

// Lock is a held destination lock.
type Lock struct {
	path        string
	destination string
	lock        *flock.Flock
}

// PathFor returns the lock file used for destination under stateDir.
func PathFor(stateDir, destination string) (string, error) {
	abs, err := filepath.Abs(destination)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(stateDir, "extract-"+hex.EncodeToString(sum[:8])+lockSuffix), nil
}

// Acquire takes the lock for destination without blocking. A destination
// already locked by another process yields a CONFLICT error.
func Acquire(stateDir, destination string) (*Lock, error) {
	if stateDir == "" {
		return nil, perrors.New(perrors.CodeInvalidConfig, "state directory is not configured")
	}
	path, err := PathFor(stateDir, destination)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInvalidInput, "resolve destination lock")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInternal, "create state directory")
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInternal, "acquire destination lock")
	}
	if !ok {
		return nil, perrors.WithContext(
			perrors.New(perrors.CodeConflict, fmt.Sprintf("another extraction into %s is already running", destination)),
			"lock", path,
		)
	}
	return &Lock{path: path, destination: destination, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and removes the lock file. Safe on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release destination lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}
