package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is where the HTTP layer serves the local upload directory.
const URLPrefix = "/uploads/"

// LocalStore writes images under a directory on disk.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Name() string { return StorageLocal }

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, key, contentType string, data []byte) (Stored, error) {
	p, err := s.path(key)
	if err != nil {
		return Stored{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create folder: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write file: %w", err)
	}
	return Stored{URL: URLPrefix + key, Key: key, Storage: StorageLocal}, nil
}

// Delete removes the file. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *LocalStore) KeyFor(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (s *LocalStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
