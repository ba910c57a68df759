package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalURLPrefix is where the router serves the upload directory.
const LocalURLPrefix = "/uploads/"

// LocalStore writes blobs into a directory on disk.
type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, name, _ string, body io.Reader) (string, error) {
	name = filepath.Base(name)
	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return LocalURLPrefix + name, nil
}

func (s *LocalStore) Remove(_ context.Context, url string) error {
	if !strings.HasPrefix(url, LocalURLPrefix) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, path.Base(url)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
