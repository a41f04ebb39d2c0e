package images

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store persists validated image binaries and serves them back by URL.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore writes binaries under a root directory and addresses them with a
// URL prefix served by the HTTP layer.
type DiskStore struct {
	root      string
	urlPrefix string
}

// NewDiskStore constructs a disk-backed store rooted at dir.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("images: storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("images: creating storage directory: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &DiskStore{root: dir, urlPrefix: urlPrefix}, nil
}

// Write persists data under key and returns the public URL.
func (s *DiskStore) Write(_ context.Context, key string, data []byte) (string, error) {
	cleaned, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("images: creating directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("images: writing file: %w", err)
	}
	return path.Join(s.urlPrefix, cleaned), nil
}

// Remove deletes the binary for key; a missing file is not an error.
func (s *DiskStore) Remove(_ context.Context, key string) error {
	cleaned, err := s.cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// cleanKey blocks traversal outside the storage root.
func (s *DiskStore) cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("images: invalid storage key %q", key)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
