package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ayush/layout-library/backend/internal/apperr"
)

// DiskFileStore keeps uploaded files in a local directory.
type DiskFileStore struct {
	dir string
}

func NewDiskFileStore(dir string) *DiskFileStore {
	return &DiskFileStore{dir: dir}
}

// Save writes r under name. The directory is created on first use and an
// existing file is never overwritten.
func (s *DiskFileStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if !validFileName(name) {
		return errBadFileName
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

func (s *DiskFileStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !validFileName(name) {
		return nil, "", apperr.ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", name, err)
	}
	return f, contentTypeOf(name), nil
}

func (s *DiskFileStore) Remove(ctx context.Context, name string) error {
	if !validFileName(name) {
		return apperr.ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
