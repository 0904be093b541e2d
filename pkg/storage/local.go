package storage

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

const (
	uploadsDir = "uploads"
	archiveDir = "archive"
)

var ErrTooLarge = errors.New("file exceeds upload limit")

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
	maxBytes int64
}

func NewLocalStorage(basePath string, maxBytes int64) (*LocalStorage, error) {
	for _, dir := range []string{uploadsDir, archiveDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &LocalStorage{basePath: basePath, maxBytes: maxBytes}, nil
}

// Upload writes r under uploads/<user>/ with an id prefix so names never collide.
func (s *LocalStorage) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()
	rel := filepath.Join(uploadsDir, userID.String(), fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename)))
	full := filepath.Join(s.basePath, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(f, src)
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		_ = os.Remove(full)
		return nil, ErrTooLarge
	}

	return &FileInfo{
		ID:        fileID,
		Name:      filename,
		Size:      size,
		Path:      filepath.ToSlash(rel),
		CreatedAt: time.Now(),
	}, nil
}

func (s *LocalStorage) LocalPath(path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	return full, nil
}

// Archive moves uploads/<user>/<name> to archive/<yyyy-mm>/<user>/<name>.
// Archiving an already archived path is a no-op.
func (s *LocalStorage) Archive(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if strings.HasPrefix(clean, archiveDir+"/") {
		return clean, nil
	}

	src, err := s.LocalPath(clean)
	if err != nil {
		return "", err
	}
	rel := filepath.Join(archiveDir, time.Now().Format("2006-01"), strings.TrimPrefix(clean, uploadsDir+"/"))
	dst := filepath.Join(s.basePath, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to archive file: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve joins path to the base and refuses anything that escapes it.
func (s *LocalStorage) resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return full, nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
