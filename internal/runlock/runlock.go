// Package runlock keeps concurrent archeck batches from hammering the remote
// daemon at the same time.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld reports that another process owns the lock.
var ErrHeld = errors.New("another archeck run is in progress")

// Lock is an acquired advisory file lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path without blocking. The parent directory is
// created when missing.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrHeld, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. Calling it on a nil or released Lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
