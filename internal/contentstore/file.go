package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuihairu/playhub/internal/ports"
)

// FileStore keeps each document at <dir>/<key>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure content dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return "file" }

// Dir is the watched directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *FileStore) Path(key ports.ContentKey) string {
	return filepath.Join(s.dir, filepath.FromSlash(objectName("", key)))
}

func (s *FileStore) Read(_ context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

// Write replaces the document atomically (temp file + rename) so readers and the
// watcher never observe a partial file.
func (s *FileStore) Write(_ context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+string(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(name, s.Path(key)); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}
