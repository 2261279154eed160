package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage persists uploaded documents on disk, one subdirectory per
// student.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies the reader into <base>/<studentID>/<filename> and returns
// the relative path.
func (s *LocalStorage) SaveStream(studentID, filename string, r io.Reader) (string, error) {
	rel := filepath.Join(studentID, filename)
	path := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare student directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write document stream: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for a stored document.
func (s *LocalStorage) Open(rel string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.baseDir, rel))
	if err != nil {
		return nil, fmt.Errorf("open document file: %w", err)
	}
	return file, nil
}
