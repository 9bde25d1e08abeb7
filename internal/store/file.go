package store

import (
	"context"
	"fmt"
	"os"
)

// FileStore caches the token blob in a local file, mirroring the cache file
// the interactive authorization flow writes.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Get(ctx context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}
	if len(blob) == 0 {
		return nil, ErrAbsent
	}
	return blob, nil
}

func (s *FileStore) Put(ctx context.Context, blob []byte) error {
	if err := os.WriteFile(s.path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}
