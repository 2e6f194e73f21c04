package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage хранит объекты на локальном диске под корневым каталогом.
// Ключ интерпретируется как относительный путь.
type DiskStorage struct {
	root string
}

func NewDiskStorage(root string) (*DiskStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &DiskStorage{root: root}, nil
}

// fullPath отклоняет ключи, выходящие за пределы корневого каталога
func (s *DiskStorage) fullPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	cleaned := filepath.Clean(key)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}

	return filepath.Join(s.root, cleaned), nil
}

func (s *DiskStorage) Upload(ctx context.Context, key string, data io.Reader, size int64) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}

func (s *DiskStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

func (s *DiskStorage) Delete(ctx context.Context, key string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
