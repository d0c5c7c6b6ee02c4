package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/safouanmatmati/ratingboard/internal/blob"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store keeps each key in its own file under a directory. Writes go to a
// temporary file that is renamed into place, so a crash never leaves a
// half-written value behind.
type Store struct {
	dir string
}

// New creates the directory if needed and returns a file-backed blob store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get reads the file for key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", blob.ErrNotFound
		}
		return "", fmt.Errorf("read blob %s: %w", key, err)
	}
	return string(data), nil
}

// Set atomically replaces the file for key.
func (s *Store) Set(_ context.Context, key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename blob %s: %w", key, err)
	}
	return nil
}

// Ping checks that the directory is still there.
func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat blob dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob dir %s is not a directory", s.dir)
	}
	return nil
}
