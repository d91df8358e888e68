// Package lock enforces one pipeline run per horizon with an OS file lock.
package lock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

type RunLock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path without waiting. A lock held by another process or another
// RunLock fails with ErrCodeRunLocked.
func Acquire(path string) (*RunLock, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, err
	}

	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRunLocked, err, "failed to lock %s", path)
	}

	if !locked {
		return nil, errors.Newf(errors.ErrCodeRunLocked, "another run holds %s", path)
	}

	return &RunLock{fl: fl}, nil
}

// AcquireContext waits for the lock at path, retrying every retry until ctx is done. Giving up
// fails with ErrCodeRunLocked.
func AcquireContext(ctx context.Context, path string, retry time.Duration) (*RunLock, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, err
	}

	locked, err := fl.TryLockContext(ctx, retry)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRunLocked, err, "gave up waiting for %s", path)
	}

	if !locked {
		return nil, errors.Newf(errors.ErrCodeRunLocked, "another run holds %s", path)
	}

	return &RunLock{fl: fl}, nil
}

func newFlock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create lock directory for %s", path)
	}

	return flock.New(path), nil
}

func (l *RunLock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The lock file is left in place.
func (l *RunLock) Release() error {
	return l.fl.Unlock()
}
