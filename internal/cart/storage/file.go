package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/phenomboxing/storefront/internal/cart"
)

// FileStore writes one JSON document per session under a directory. Writes go
// to a temp file that is renamed into place, so readers never see a partial
// snapshot.
type FileStore struct {
	dir       string
	sessionID string
}

// FileFactory returns a factory that stores snapshots under dir.
func FileFactory(dir string) cart.PersisterFactory {
	return func(sessionID string) cart.Persister {
		return NewFileStore(dir, sessionID)
	}
}

func NewFileStore(dir, sessionID string) *FileStore {
	return &FileStore{dir: dir, sessionID: sessionID}
}

// Path is the file holding the snapshot.
func (f *FileStore) Path() string {
	return filepath.Join(f.dir, f.sessionID+".json")
}

func (f *FileStore) Load(ctx context.Context) (*cart.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cart.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}
	return cart.DecodeSnapshot(data)
}

func (f *FileStore) Save(ctx context.Context, snap cart.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := cart.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, f.sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cart file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cart file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path()); err != nil {
		return fmt.Errorf("replace cart file: %w", err)
	}
	return nil
}

func (f *FileStore) Backend() string {
	return BackendFile
}
