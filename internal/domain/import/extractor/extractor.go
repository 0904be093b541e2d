// Package extractor turns uploaded statement files into text.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("no readable text in document")
)

// DefaultMaxPages bounds PDF extraction.
const DefaultMaxPages = 10

// Document is the extracted content of one file.
type Document struct {
	// Text is CSV text when Tabular is set, free statement text otherwise.
	Text    string
	Tabular bool
	Pages   int
	Method  string
}

type Config struct {
	MaxPages      int
	PdftotextPath string
}

type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.PdftotextPath == "" {
		cfg.PdftotextPath = "pdftotext"
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Supported reports whether ext (with or without the dot) can be extracted.
func Supported(ext string) bool {
	switch normalizeExt(ext) {
	case "csv", "txt", "pdf", "xls", "xlsx":
		return true
	}
	return false
}

// Extract reads path according to ext. When ext is empty the path's own
// extension is used.
func (e *Extractor) Extract(ctx context.Context, path, ext string) (*Document, error) {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	ext = normalizeExt(ext)
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		doc *Document
		err error
	)
	switch ext {
	case "csv":
		doc, err = readText(path)
		if doc != nil {
			doc.Tabular = true
		}
	case "txt":
		doc, err = readText(path)
	case "xlsx":
		doc, err = readXLSX(path)
	case "xls":
		doc, err = readXLS(path)
	case "pdf":
		doc, err = e.readPDF(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filepath.Base(path))
	}

	e.logger.Debug("extracted document",
		slog.String("ext", ext),
		slog.String("method", doc.Method),
		slog.Int("pages", doc.Pages),
		slog.Int("chars", len(doc.Text)))
	return doc, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func readText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Document{Text: decodeText(data), Pages: 1, Method: "text"}, nil
}

// decodeText strips a UTF-8 BOM and falls back to Latin-1 for bytes that
// are not valid UTF-8.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
