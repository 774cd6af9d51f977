package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock provides cross-process exclusive locking around a single JSONL
// append, using github.com/gofrs/flock. The telemetry log is append-only
// and single-writer-per-process by contract (spec §4.H), but a process
// restart or a second process pointed at the same log path must not
// interleave partial lines, so every batch append is wrapped in this lock.
type fileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newFileLock creates a lock file at <logPath>.lock alongside the log.
func newFileLock(logPath string) *fileLock {
	lockPath := logPath + ".lock"
	return &fileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock, blocking until available.
func (l *fileLock) Lock() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked fileLock.
func (l *fileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release lock: %w", err)
	}
	l.locked = false
	return nil
}
