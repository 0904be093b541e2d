// Package handler exposes statement imports over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
	"github.com/FACorreiaa/statement-ledger/pkg/middleware"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

// multipart overhead allowed on top of the file limit
const formOverhead = 1 << 20

// StatementService is the import service as used by the HTTP layer.
type StatementService interface {
	Upload(ctx context.Context, in importservice.UploadInput) (*repository.UploadedFile, error)
	ProcessFile(ctx context.Context, fileID uuid.UUID) (*model.ProcessingResult, error)
	GetFile(ctx context.Context, userID, fileID uuid.UUID) (*repository.UploadedFile, error)
	Retry(ctx context.Context, userID, fileID uuid.UUID) (*model.ProcessingResult, error)
	ExportTransactions(ctx context.Context, userID, fileID uuid.UUID) ([]byte, error)
}

// ImportHandler handles statement upload requests
type ImportHandler struct {
	importSvc    StatementService
	maxFileBytes int64
	logger       *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc StatementService, maxFileBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:    importSvc,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// Register mounts the statement routes on r. Callers wrap r with auth.
func (h *ImportHandler) Register(r *mux.Router) {
	r.HandleFunc("/v1/statements", h.UploadStatement).Methods(http.MethodPost)
	r.HandleFunc("/v1/statements/{id}", h.GetStatement).Methods(http.MethodGet)
	r.HandleFunc("/v1/statements/{id}/retry", h.RetryStatement).Methods(http.MethodPost)
	r.HandleFunc("/v1/statements/{id}/transactions.csv", h.ExportTransactions).Methods(http.MethodGet)
}

type fileResponse struct {
	ID                   uuid.UUID        `json:"id"`
	FileName             string           `json:"file_name"`
	FileType             string           `json:"file_type"`
	SizeBytes            int64            `json:"size_bytes"`
	Status               model.FileStatus `json:"status"`
	Hints                model.Hints      `json:"hints"`
	ErrorMessage         *string          `json:"error_message,omitempty"`
	TransactionsImported int              `json:"transactions_imported"`
	Details              json.RawMessage  `json:"details,omitempty"`
	ProcessedAt          *time.Time       `json:"processed_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

func toFileResponse(f *repository.UploadedFile) fileResponse {
	return fileResponse{
		ID:                   f.ID,
		FileName:             f.FileName,
		FileType:             f.FileType,
		SizeBytes:            f.SizeBytes,
		Status:               f.Status,
		Hints:                f.Hints,
		ErrorMessage:         f.ErrorMessage,
		TransactionsImported: f.TransactionsImported,
		Details:              f.Details,
		ProcessedAt:          f.ProcessedAt,
		CreatedAt:            f.CreatedAt,
	}
}

// UploadStatement stores a multipart upload and processes it before
// responding. A processing failure is reported through the file status.
func (h *ImportHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if r.ContentLength > h.maxFileBytes+formOverhead {
		h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	hints, err := parseHints(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploaded, err := h.importSvc.Upload(r.Context(), importservice.UploadInput{
		UserID:   userID,
		FileName: header.Filename,
		Content:  file,
		Hints:    hints,
	})
	if err != nil {
		h.handleServiceError(w, "upload statement", err)
		return
	}

	status := http.StatusCreated
	if _, err := h.importSvc.ProcessFile(r.Context(), uploaded.ID); err != nil {
		if errors.Is(err, importservice.ErrInvalidTransition) {
			// picked up by the background sweep
			status = http.StatusAccepted
		} else {
			h.logger.Info("statement processing failed", slog.String("file_id", uploaded.ID.String()), "error", err)
		}
	}

	h.respondWithFile(w, r, userID, uploaded.ID, status)
}

func (h *ImportHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID, fileID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	h.respondWithFile(w, r, userID, fileID, http.StatusOK)
}

func (h *ImportHandler) RetryStatement(w http.ResponseWriter, r *http.Request) {
	userID, fileID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	if _, err := h.importSvc.Retry(r.Context(), userID, fileID); err != nil {
		if errors.Is(err, importservice.ErrInvalidTransition) || errors.Is(err, importservice.ErrFileNotFound) {
			h.handleServiceError(w, "retry statement", err)
			return
		}
		h.logger.Info("statement retry failed", slog.String("file_id", fileID.String()), "error", err)
	}
	h.respondWithFile(w, r, userID, fileID, http.StatusOK)
}

func (h *ImportHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, fileID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	out, err := h.importSvc.ExportTransactions(r.Context(), userID, fileID)
	if err != nil {
		h.handleServiceError(w, "export transactions", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.csv"`, fileID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *ImportHandler) respondWithFile(w http.ResponseWriter, r *http.Request, userID, fileID uuid.UUID, status int) {
	f, err := h.importSvc.GetFile(r.Context(), userID, fileID)
	if err != nil {
		h.handleServiceError(w, "get statement", err)
		return
	}
	h.writeJSON(w, status, toFileResponse(f))
}

func (h *ImportHandler) pathIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return uuid.Nil, uuid.Nil, false
	}
	fileID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid statement id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, fileID, true
}

func parseHints(r *http.Request) (model.Hints, error) {
	hints := model.Hints{
		AccountType: model.ParseAccountType(r.FormValue("account_type")),
		BankName:    strings.TrimSpace(r.FormValue("bank_name")),
	}
	if v := strings.TrimSpace(r.FormValue("account_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return hints, errors.New("invalid account_id")
		}
		hints.AccountID = &id
	}
	if v := strings.TrimSpace(r.FormValue("statement_type")); v != "" {
		st := model.StatementType(strings.ToUpper(strings.ReplaceAll(v, " ", "_")))
		switch st {
		case model.StatementMonthly, model.StatementQuarterly, model.StatementAnnual,
			model.StatementTransactionHistory, model.StatementCustom:
			hints.StatementType = st
		default:
			return hints, fmt.Errorf("invalid statement_type %q", v)
		}
	}
	return hints, nil
}

func (h *ImportHandler) handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, importservice.ErrFileNotFound):
		h.writeError(w, http.StatusNotFound, "statement not found")
	case errors.Is(err, importservice.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "statement is being processed")
	case errors.Is(err, extractor.ErrUnsupportedType):
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	default:
		h.logger.Error("failed to "+op, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *ImportHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

func (h *ImportHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
