package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// localStore keeps artifacts under a directory on disk. Meant for
// development and tests.
type localStore struct {
	root string
}

func NewLocalStore(root string) (*localStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	return &localStore{root: root}, nil
}

func (s *localStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", key, err)
	}
	return nil
}

func (s *localStore) Get(_ context.Context, key string, dst io.Writer) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(dst, f)
	return err
}

func (s *localStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (s *localStore) Type() string {
	return "local"
}

// resolve maps the key onto the root, refusing keys that would escape
// it.
func (s *localStore) resolve(key string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid artifact key: %s", key)
	}
	return path, nil
}
