package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/eminus-watch/internal/model"
)

const filePermissions = 0o644

// FileStore keeps each namespace as a JSON array in <dir>/<namespace>.json.
// Saves go through a temp file and a rename, so a crash mid-write leaves the
// previous file intact.
type FileStore struct {
	dir  string
	lock *FileLock
}

var (
	_ SetStore = (*FileStore)(nil)
	_ Locker   = (*FileStore)(nil)
)

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		lock: NewFileLock(filepath.Join(dir, LockFileName)),
	}
}

// Path returns the file backing ns.
func (s *FileStore) Path(ns Namespace) string {
	return filepath.Join(s.dir, string(ns)+".json")
}

// Load reads the set for ns. A missing file yields an empty set.
func (s *FileStore) Load(_ context.Context, ns Namespace) (*model.IDSet, error) {
	data, err := os.ReadFile(s.Path(ns))
	if errors.Is(err, os.ErrNotExist) {
		return model.NewIDSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path(ns), err)
	}

	set, err := decodeSet(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.Path(ns), err)
	}
	return set, nil
}

// Save writes set to ns atomically.
func (s *FileStore) Save(ctx context.Context, ns Namespace, set *model.IDSet) error {
	return s.SaveAll(ctx, map[Namespace]*model.IDSet{ns: set})
}

// SaveAll writes every set to a temp file before renaming any of them, so a
// failed encode or write leaves all namespaces untouched. The renames
// themselves run back to back; a crash between two of them commits only the
// earlier ones.
func (s *FileStore) SaveAll(_ context.Context, sets map[Namespace]*model.IDSet) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", s.dir, err)
	}

	order := saveOrder(sets)
	var written []string
	cleanup := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}

	for _, ns := range order {
		data, err := encodeSet(sets[ns])
		if err != nil {
			cleanup()
			return err
		}
		tempPath := s.Path(ns) + ".tmp"
		if err := os.WriteFile(tempPath, data, filePermissions); err != nil {
			cleanup()
			return fmt.Errorf("writing temp file %s: %w", tempPath, err)
		}
		written = append(written, tempPath)
	}

	for i, ns := range order {
		path := s.Path(ns)
		if err := os.Rename(path+".tmp", path); err != nil {
			written = written[i:]
			cleanup()
			return fmt.Errorf("replacing %s: %w", path, err)
		}
	}

	return nil
}

// Lock takes the directory-wide run lock.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	return s.lock.Lock(ctx)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
