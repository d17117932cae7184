package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrNoSnapshot indicates no persisted snapshot exists yet.
var ErrNoSnapshot = errors.New("memory: no snapshot")

// SnapshotStore persists working-memory snapshots across process restarts.
type SnapshotStore interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// FileSnapshotStore persists snapshots as a single JSON file, written
// atomically via a temp file and rename.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a file-backed snapshot store.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Save writes the blob atomically.
func (f *FileSnapshotStore) Save(_ context.Context, blob []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}

// Load reads the last saved blob, or ErrNoSnapshot when none exists.
func (f *FileSnapshotStore) Load(_ context.Context) ([]byte, error) {
	blob, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return blob, nil
}
