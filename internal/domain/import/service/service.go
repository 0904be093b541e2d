// Package service orchestrates statement imports: extraction, parsing,
// account resolution, dedup, categorization, balance policy and the
// statement summary.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/strategy"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

var (
	ErrInvalidTransition = errors.New("file is not in a state that allows this transition")
	ErrNoTransactions    = errors.New("no transactions found in document")
	ErrFileNotFound      = errors.New("uploaded file not found")
	ErrProcessingPanic   = errors.New("statement processing panicked")
)

// DefaultProcessingTimeout is how long a file may sit in PROCESSING before
// the pending sweep hands it back to PENDING.
const DefaultProcessingTimeout = 30 * time.Minute

// CategorizationService is the auto-categorization collaborator. amount is
// positive for money coming in.
type CategorizationService interface {
	Categorize(ctx context.Context, description string, amount decimal.Decimal, userID uuid.UUID) (CategorizationResult, error)
}

// CategorizationResult holds the result of categorizing a transaction
type CategorizationResult struct {
	CategoryID  *uuid.UUID
	Confidence  float64
	NeedsReview bool
	Reason      string
}

// TextExtractor turns a stored file into text.
type TextExtractor interface {
	Extract(ctx context.Context, path, ext string) (*extractor.Document, error)
}

// UploadInput is one statement upload with its caller hints.
type UploadInput struct {
	UserID   uuid.UUID
	FileName string
	Content  io.Reader
	Hints    model.Hints
}

// ImportService orchestrates statement file processing.
type ImportService struct {
	repo       repository.ImportRepository
	storage    storage.Storage
	extractor  TextExtractor
	parser     *parser.Parser
	strategies *strategy.Registry
	sanitizer  *normalizer.MerchantSanitizer
	catService CategorizationService
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	locks      *accountLocks
	logger     *slog.Logger

	processingTimeout time.Duration

	reviewMu sync.Mutex
	reviewID *uuid.UUID
}

func NewImportService(repo repository.ImportRepository, store storage.Storage, ext TextExtractor, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		storage:    store,
		extractor:  ext,
		parser:     parser.NewParser(parser.DefaultConfig(), logger),
		strategies: strategy.NewRegistry(logger),
		sanitizer:  normalizer.NewMerchantSanitizer(),
		tracer:     otel.Tracer("github.com/FACorreiaa/statement-ledger/import"),
		locks:      newAccountLocks(),
		logger:     logger,

		processingTimeout: DefaultProcessingTimeout,
	}
}

// WithCategorizationService adds categorization support to the import service
func (s *ImportService) WithCategorizationService(catService CategorizationService) *ImportService {
	s.catService = catService
	return s
}

func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithProcessingTimeout sets how long a claimed file may stay PROCESSING
// before ProcessPending reclaims it. Zero disables reclaiming.
func (s *ImportService) WithProcessingTimeout(d time.Duration) *ImportService {
	s.processingTimeout = d
	return s
}

// Upload stores the file and registers it as PENDING.
func (s *ImportService) Upload(ctx context.Context, in UploadInput) (*repository.UploadedFile, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(in.FileName)), ".")
	if !extractor.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", extractor.ErrUnsupportedType, ext)
	}
	if in.Hints.AccountType == "" {
		in.Hints.AccountType = model.AccountChecking
	}

	info, err := s.storage.Upload(ctx, in.UserID, in.FileName, in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	file := &repository.UploadedFile{
		UserID:      in.UserID,
		FileName:    in.FileName,
		StoragePath: info.Path,
		FileType:    ext,
		SizeBytes:   info.Size,
		Status:      model.FileStatusPending,
		Hints:       in.Hints,
	}
	if err := s.repo.CreateUploadedFile(ctx, file); err != nil {
		_ = s.storage.Delete(ctx, info.Path)
		return nil, err
	}

	s.logger.Info("statement uploaded",
		slog.String("file_id", file.ID.String()),
		slog.String("user_id", in.UserID.String()),
		slog.String("file_type", ext),
		slog.Int64("size_bytes", info.Size))
	return file, nil
}

// GetFile returns a file owned by userID.
func (s *ImportService) GetFile(ctx context.Context, userID, fileID uuid.UUID) (*repository.UploadedFile, error) {
	file, err := s.repo.GetUploadedFile(ctx, fileID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && file.UserID != userID) {
		return nil, ErrFileNotFound
	}
	return file, err
}

// ProcessFile moves a PENDING file through PROCESSING to COMPLETED or FAILED.
// The returned result is also stored as the file's details.
func (s *ImportService) ProcessFile(ctx context.Context, fileID uuid.UUID) (*model.ProcessingResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.ProcessFile", trace.WithAttributes(attribute.String("file.id", fileID.String())))
	defer span.End()

	file, err := s.repo.GetUploadedFile(ctx, fileID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	won, err := s.repo.TransitionFile(ctx, fileID, model.FileStatusPending, model.FileStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: %s is not pending", ErrInvalidTransition, fileID)
	}

	logger := s.logger.With(slog.String("file_id", fileID.String()), slog.String("user_id", file.UserID.String()))
	logger.Info("processing statement file", slog.String("file_type", file.FileType))
	started := time.Now()

	run := &importRun{file: file, result: newResult(), logger: logger}
	procErr := s.runProcess(ctx, run)

	// the final status is written even if the caller went away
	ctx = context.WithoutCancel(ctx)

	if procErr != nil {
		span.RecordError(procErr)
		span.SetStatus(codes.Error, procErr.Error())
		msg := procErr.Error()
		run.result.Errors = append(run.result.Errors, msg)
		if err := s.repo.CompleteFile(ctx, fileID, repository.FileOutcome{
			Status:               model.FileStatusFailed,
			ErrorMessage:         &msg,
			Details:              s.details(run, time.Since(started)),
			TransactionsImported: run.result.TransactionsImported,
		}); err != nil {
			logger.Error("failed to mark file failed", "error", err)
		}
		s.metrics.FileProcessed(string(model.FileStatusFailed), run.result.TransactionsImported, run.result.Duplicates)
		logger.Info("statement file failed", "error", procErr)
		return run.result, procErr
	}

	outcome := repository.FileOutcome{
		Status:               model.FileStatusCompleted,
		Details:              s.details(run, time.Since(started)),
		TransactionsImported: run.result.TransactionsImported,
	}
	if archived, err := s.storage.Archive(ctx, file.StoragePath); err != nil {
		logger.Warn("failed to archive statement file", "error", err)
	} else {
		outcome.StoragePath = archived
	}
	if err := s.repo.CompleteFile(ctx, fileID, outcome); err != nil {
		return run.result, fmt.Errorf("failed to mark file completed: %w", err)
	}

	s.metrics.FileProcessed(string(model.FileStatusCompleted), run.result.TransactionsImported, run.result.Duplicates)
	span.SetAttributes(
		attribute.Int("transactions.found", run.result.TransactionsFound),
		attribute.Int("transactions.imported", run.result.TransactionsImported),
		attribute.Int("transactions.duplicates", run.result.Duplicates),
	)
	logger.Info("statement file completed",
		slog.String("bank", string(run.result.BankType)),
		slog.String("strategy", run.result.Strategy),
		slog.Int("found", run.result.TransactionsFound),
		slog.Int("imported", run.result.TransactionsImported),
		slog.Int("duplicates", run.result.Duplicates),
		slog.Int("errors", len(run.result.Errors)))
	return run.result, nil
}

func (s *ImportService) runProcess(ctx context.Context, run *importRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			run.logger.Error("statement processing panicked", "panic", r, slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrProcessingPanic, r)
		}
	}()
	return s.process(ctx, run)
}

// Retry resets a finished file to PENDING and processes it again. Dedup makes
// the second pass insert only what the first one missed.
func (s *ImportService) Retry(ctx context.Context, userID, fileID uuid.UUID) (*model.ProcessingResult, error) {
	if _, err := s.GetFile(ctx, userID, fileID); err != nil {
		return nil, err
	}
	for _, from := range []model.FileStatus{model.FileStatusFailed, model.FileStatusCompleted} {
		won, err := s.repo.TransitionFile(ctx, fileID, from, model.FileStatusPending)
		if err != nil {
			return nil, err
		}
		if won {
			s.logger.Info("retrying statement file", slog.String("file_id", fileID.String()), slog.String("from", string(from)))
			return s.ProcessFile(ctx, fileID)
		}
	}
	return nil, fmt.Errorf("%w: %s is still being processed", ErrInvalidTransition, fileID)
}

// ProcessPending picks up files left PENDING for longer than olderThan.
// Files stuck in PROCESSING past the processing timeout are put back to
// PENDING first. Files another worker claims first are skipped.
func (s *ImportService) ProcessPending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if s.processingTimeout > 0 {
		reclaimed, err := s.repo.ReclaimStaleFiles(ctx, time.Now().Add(-s.processingTimeout))
		if err != nil {
			return 0, err
		}
		if reclaimed > 0 {
			s.logger.Warn("reclaimed stale statement files", slog.Int("count", reclaimed))
		}
	}

	files, err := s.repo.ListPendingFiles(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		_, err := s.ProcessFile(ctx, f.ID)
		switch {
		case errors.Is(err, ErrInvalidTransition):
			continue
		case err != nil:
			s.logger.Warn("pending statement file failed", slog.String("file_id", f.ID.String()), "error", err)
		}
		processed++
	}
	return processed, nil
}

// ExportTransactions renders the parsed transactions of a processed file as CSV.
func (s *ImportService) ExportTransactions(ctx context.Context, userID, fileID uuid.UUID) ([]byte, error) {
	file, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	var result model.ProcessingResult
	if len(file.Details) > 0 {
		if err := json.Unmarshal(file.Details, &result); err != nil {
			return nil, fmt.Errorf("failed to decode processing details: %w", err)
		}
	}
	return parser.ExportCSV(result.Transactions)
}

func newResult() *model.ProcessingResult {
	return &model.ProcessingResult{
		Errors:       []string{},
		Transactions: []model.ParsedTransaction{},
		BankType:     model.BankUnknown,
	}
}
