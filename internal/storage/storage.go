// Package storage puts uploaded files into an object store with public read
// URLs. Keys are slash-separated paths such as "<taskID>/<uuid>.pdf".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/config"
)

// ErrInvalidKey is returned for keys that would escape the bucket root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// ObjectStore is the attachments bucket.
type ObjectStore interface {
	// Put stores body under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by APP_STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return NewGCS(ctx, cfg.Storage.Bucket)
	case "local", "":
		return NewLocal(cfg.Storage.Dir, cfg.BaseURL+"/files")
	}
	return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Storage.Backend)
}

// RandomKey joins prefix with a random file name that keeps the original
// extension, e.g. RandomKey("abc", "Report.PDF") -> "abc/5f0c...e1.pdf".
func RandomKey(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
