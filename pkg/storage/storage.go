// Package storage keeps uploaded statement files on disk until they are
// processed, then moves them into an archive area.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("stored file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"` // relative to the storage root
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*FileInfo, error)
	// LocalPath resolves a stored path to a filesystem path readers can open.
	LocalPath(path string) (string, error)
	// Archive moves a processed file out of the upload area and returns its new path.
	Archive(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// StorageType identifies the storage backend
type StorageType string

const StorageTypeLocal StorageType = "local"

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
	// MaxBytes caps a single upload; zero means unlimited.
	MaxBytes int64
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath, cfg.MaxBytes)
	default:
		return nil, errors.New("unsupported storage type: " + string(cfg.Type))
	}
}
