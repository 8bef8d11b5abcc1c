package mediastore

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage uploads a locally staged file to durable media storage and
// returns the public URL it is served from.
type Storage interface {
	Upload(localPath string) (string, error)
}

// LocalStorage is a Storage backed by a directory on the local
// filesystem, served under a configured base URL. It stands in for a
// CDN or object-store uploader behind the same interface.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a LocalStorage rooted at dir. The directory
// is created if it does not exist.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: baseURL,
	}, nil
}

// Upload copies the staged file into the media directory under a fresh
// uuid name and returns its durable URL.
func (s *LocalStorage) Upload(localPath string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open staged file %s: %w", localPath, err)
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(localPath)
	destPath := filepath.Join(s.dir, name)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create media file %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to store media file %s: %w", destPath, err)
	}
	return s.baseURL + "/" + name, nil
}

// Cleanup removes staged upload files, best effort. It is deferred by
// every mutating handler so temp files are released after each request
// attempt, success or failure.
func Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove staged upload %s: %v", path, err)
		}
	}
}
