package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileKV persists one JSON file per key under a base directory. Used for
// guest/offline mode where no Redis is available.
type FileKV struct {
	baseDir string
}

// NewFileKV creates the base directory if needed.
func NewFileKV(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileKV{baseDir: baseDir}, nil
}

// keyPath flattens the namespaced key into a safe filename.
func (f *FileKV) keyPath(key string) string {
	name := strings.ReplaceAll(key, ":", "_") + ".json"
	return filepath.Join(f.baseDir, name)
}

func (f *FileKV) Get(_ context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.keyPath(key))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read storage file: %w", err)
	}
	return string(data), nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	path := f.keyPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	err := os.Remove(f.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
