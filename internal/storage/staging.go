package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Staging holds uploaded multipart files on local disk until they reach the media store.
type Staging struct {
	Dir string
}

// Save copies fh into the staging directory and returns the local path.
func (s Staging) Save(fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("staging: mkdir %s: %w", s.Dir, err)
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("staging: open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	path := filepath.Join(s.Dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("staging: create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("staging: write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("staging: close %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes staged files; empty paths and already-removed files are skipped.
func (s Staging) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
