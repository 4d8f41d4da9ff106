package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps objects on the local filesystem. Used for development
// and tests; the workflow treats it as a public-bucket style backend.
type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("local: failed to create storage directory: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "/files"
	}

	return &LocalStorage{basePath: basePath, baseURL: baseURL}, nil
}

func (s *LocalStorage) PutObject(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*PutResult, error) {
	fullPath := filepath.Join(s.basePath, name)

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("local: failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return nil, fmt.Errorf("local: failed to write file: %w", err)
	}

	return &PutResult{URL: fmt.Sprintf("%s/%s", s.baseURL, name)}, nil
}

func (s *LocalStorage) DeleteObject(ctx context.Context, name, fileID string) error {
	fullPath := filepath.Join(s.basePath, name)

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("local: failed to list files: %w", err)
	}

	var objects []ObjectInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{
			Name:       entry.Name(),
			URL:        fmt.Sprintf("%s/%s", s.baseURL, entry.Name()),
			UploadedAt: info.ModTime(),
		})
	}
	return objects, nil
}

func (s *LocalStorage) RequiresFileID() bool { return false }
