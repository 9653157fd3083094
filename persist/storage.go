package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage is a durable string key/value store scoped to one user profile.
// GetItem returns found=false when the key does not exist.
type Storage interface {
	GetItem(key string) (value string, found bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// FileStorage keeps each key in its own file under a directory.
type FileStorage struct {
	dir string
}

var _ Storage = (*FileStorage)(nil)

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// NewFileStorage creates the directory when needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("[persist NewFileStorage] directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[persist NewFileStorage] create %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) path(key string) string {
	return filepath.Join(fs.dir, keyReplacer.Replace(key)+".json")
}

func (fs *FileStorage) GetItem(key string) (string, bool, error) {
	data, err := os.ReadFile(fs.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[persist GetItem] %s: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem writes through a temporary file and renames it into place so a
// reader never sees a partial record.
func (fs *FileStorage) SetItem(key, value string) error {
	tmp, err := os.CreateTemp(fs.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("[persist SetItem] %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("[persist SetItem] %s: %w", key, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[persist SetItem] %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[persist SetItem] %s: %w", key, err)
	}
	if err := os.Rename(tmpName, fs.path(key)); err != nil {
		return fmt.Errorf("[persist SetItem] %s: %w", key, err)
	}
	return nil
}

func (fs *FileStorage) RemoveItem(key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("[persist RemoveItem] %s: %w", key, err)
	}
	return nil
}
