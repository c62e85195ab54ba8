package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStoredFileTooLarge = errors.New("file exceeds size limit")
	ErrInvalidStoredPath  = errors.New("stored path is outside the upload root")
)

// FileStore persists uploaded files and hands back a relative path for the database row
type FileStore interface {
	Save(ctx context.Context, category, ext string, r io.Reader, maxSize int64) (path string, size int64, err error)
	Read(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// DiskFileStore lays files out as <root>/<category>/<yyyy-mm-dd>/<uuid><ext>
type DiskFileStore struct {
	root string
}

func NewDiskFileStore(root string) *DiskFileStore {
	return &DiskFileStore{root: filepath.Clean(root)}
}

func (s *DiskFileStore) Save(_ context.Context, category, ext string, r io.Reader, maxSize int64) (string, int64, error) {
	dateDir := time.Now().UTC().Format("2006-01-02")
	rel := filepath.Join(category, dateDir, uuid.New().String()+strings.ToLower(ext))
	full := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(r, maxSize+1))
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	if written > maxSize {
		_ = os.Remove(full)
		return "", 0, ErrStoredFileTooLarge
	}

	return filepath.ToSlash(rel), written, nil
}

func (s *DiskFileStore) Read(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (s *DiskFileStore) Remove(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskFileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidStoredPath
	}
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidStoredPath
	}
	return filepath.Join(s.root, cleaned), nil
}
