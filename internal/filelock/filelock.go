// Package filelock serialises builds that share a build directory and writes
// report files atomically.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the lock file created inside the build directory.
const LockFileName = ".qtbuild.lock"

// DefaultRetryDelay is how often a waiting build polls the lock.
const DefaultRetryDelay = 250 * time.Millisecond

// ErrBuildLocked is returned when another process holds the build lock.
var ErrBuildLocked = errors.New("build directory is locked by another process")

// BuildLock wraps a flock file lock guarding one build directory.
type BuildLock struct {
	flock *flock.Flock
	path  string
}

// NewBuildLock creates a lock for buildDir. The directory is created when the
// lock is first acquired.
func NewBuildLock(buildDir string) *BuildLock {
	path := filepath.Join(buildDir, LockFileName)
	return &BuildLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}

// TryLock acquires the lock without blocking.
// Returns ErrBuildLocked when another process holds it.
func (l *BuildLock) TryLock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to try lock on %s: %w", l.path, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrBuildLocked, l.path)
	}
	return nil
}

// Lock waits for the lock, polling every retryDelay, until it is acquired or
// ctx is done. A cancelled wait returns an error wrapping both
// ErrBuildLocked and the context error.
func (l *BuildLock) Lock(ctx context.Context, retryDelay time.Duration) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	acquired, err := l.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrBuildLocked, l.path, ctx.Err())
		}
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrBuildLocked, l.path)
	}
	return nil
}

// Unlock releases the lock. The lock file is left in place.
func (l *BuildLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// Locked reports whether this handle currently holds the lock.
func (l *BuildLock) Locked() bool {
	return l.flock.Locked()
}

func (l *BuildLock) ensureDir() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// AtomicWrite writes data to path through a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func AtomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
