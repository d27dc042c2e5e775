package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// Storage keeps artifacts (exports, staged uploads) under a base directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

func (s *Storage) Open(_ context.Context, key string) (domain.FileRef, error) {
	path, err := s.resolve(key)
	if err != nil {
		return domain.FileRef{}, err
	}
	return OpenFile(path)
}

// resolve rejects keys escaping the base directory.
func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(key))
	if clean == "/" {
		return "", domain.WrapError(domain.ErrInvalidInput, "localfs.resolve", fmt.Errorf("empty key"))
	}
	path := filepath.Join(s.basePath, strings.TrimPrefix(clean, "/"))
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", domain.WrapError(domain.ErrInvalidInput, "localfs.resolve", fmt.Errorf("key %q escapes storage", key))
	}
	return path, nil
}
