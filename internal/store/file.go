package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend implements Backend using one file per key in a directory
type FileBackend struct {
	dir string // The directory keys will be relative to
}

// NewFileBackend creates a file backend rooted at dir, creating the directory if needed
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (fb *FileBackend) path(key string) string {
	return filepath.Join(fb.dir, key+".json")
}

func (fb *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(fb.path(key))
	if errors.Is(err, os.ErrNotExist) {
		// The file doesn't exist so nothing is stored at this key
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return b, nil
}

// Write replaces the file atomically so readers never observe a partial record set
func (fb *FileBackend) Write(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(fb.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fb.path(key)); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
