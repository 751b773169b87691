package storage

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

// LocalStore writes images below a directory served at a URL prefix.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ ImageStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed. An empty baseURL defaults to "/uploads".
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, img *Image) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := filepath.Base(img.Name)
	if err := os.WriteFile(filepath.Join(s.dir, key), img.Data, 0o644); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}
	return &Object{Key: key, URL: s.baseURL + "/" + path.Base(key)}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}
