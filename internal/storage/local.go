package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalKV keeps one JSON file per key under a directory.
type LocalKV struct {
	dir string
}

// NewLocalKV creates the directory if needed.
func NewLocalKV(dir string) (*LocalKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalKV{dir: dir}, nil
}

// Sanitize key for filename
func (l *LocalKV) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(l.dir, filepath.Base(safe)+".json")
}

func (l *LocalKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Set writes through a temp file so readers never see a partial document.
func (l *LocalKV) Set(_ context.Context, key string, value []byte) error {
	path := l.path(key)
	tmp, err := os.CreateTemp(l.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (l *LocalKV) Close() error { return nil }
