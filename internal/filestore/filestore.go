// Package filestore persists uploaded document files on local disk.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a stored file no longer exists on disk.
var ErrNotFound = errors.New("filestore: file not found")

// Store writes uploaded files under a base directory, naming each one with
// a fresh UUID so original filenames never collide or escape the directory.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a Store rooted at baseDir, creating the directory if needed.
func New(baseDir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create base dir: %w", err)
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// Save writes the contents of r to a new file and returns its path.
// The stored name keeps only the extension of the original filename.
func (s *Store) Save(r io.Reader, originalFilename string) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalFilename)
	path := filepath.Join(s.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("filestore: create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("filestore: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("filestore: close file: %w", err)
	}

	s.logger.Debug("file stored", zap.String("path", path))
	return path, nil
}

// Exists reports whether the file at path is still present on disk.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the file at path. A file that is already gone is not an
// error: delete must be idempotent.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filestore: remove file: %w", err)
	}
	s.logger.Debug("file removed", zap.String("path", path))
	return nil
}
