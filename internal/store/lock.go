package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created next to the state to serialize runs.
const LockFileName = ".eminus-watch.lock"

// FileLock is an advisory OS file lock shared by the file and sqlite backends.
type FileLock struct {
	path string
}

// NewFileLock returns a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock acquires the lock without waiting. It returns ErrLocked when another
// process holds it.
func (l *FileLock) Lock(_ context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", l.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, l.path)
	}

	return fl.Unlock, nil
}
