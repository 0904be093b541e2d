package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// readPDF tries the pure Go reader first and falls back to pdftotext when
// the library fails or returns unreadable text.
func (e *Extractor) readPDF(ctx context.Context, path string) (*Document, error) {
	pages, libErr := extractWithLibrary(path, e.cfg.MaxPages)
	if libErr == nil && isReadableText(pages) {
		return &Document{Text: strings.Join(pages, "\n"), Pages: len(pages), Method: "pdf"}, nil
	}
	if libErr != nil {
		e.logger.Debug("pdf library extraction failed", "error", libErr)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := e.extractWithPdftotext(ctx, path)
	if err != nil {
		e.logger.Warn("pdftotext fallback failed", slog.String("path", path), "error", err)
		if libErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyDocument, libErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrEmptyDocument, err)
	}
	if !isReadableText([]string{text}) {
		return nil, fmt.Errorf("%w: text is not readable, the file may be scanned", ErrEmptyDocument)
	}
	return &Document{Text: text, Pages: strings.Count(text, "\f") + 1, Method: "pdftotext"}, nil
}

func extractWithLibrary(path string, maxPages int) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := min(r.NumPage(), maxPages)
	if n == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

func (e *Extractor) extractWithPdftotext(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath(e.cfg.PdftotextPath)
	if err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}
	out, err := exec.CommandContext(ctx, bin,
		"-layout", "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages), path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Words found in virtually every bank statement. Text containing none of
// them is treated as garbage from an undecodable font.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "deposit",
	"paid", "opening", "closing", "transfer", "period", "page",
}

// isReadableText requires more than 50 characters, mostly plain ASCII, and
// at least one statement word.
func isReadableText(pages []string) bool {
	total, readable := 0, 0
	for _, p := range pages {
		for _, r := range p {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
				readable++
			}
		}
	}
	if total <= 50 || float64(readable)/float64(total) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range commonWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}
