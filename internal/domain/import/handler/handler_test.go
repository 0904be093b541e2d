package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
	"github.com/FACorreiaa/statement-ledger/pkg/middleware"
)

type fakeService struct {
	files      map[uuid.UUID]*repository.UploadedFile
	uploaded   importservice.UploadInput
	body       string
	uploadErr  error
	processErr error
	retryErr   error
	exportErr  error
}

func newFakeService() *fakeService {
	return &fakeService{files: map[uuid.UUID]*repository.UploadedFile{}}
}

func (s *fakeService) Upload(_ context.Context, in importservice.UploadInput) (*repository.UploadedFile, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	data, _ := io.ReadAll(in.Content)
	s.uploaded, s.body = in, string(data)
	f := &repository.UploadedFile{ID: uuid.New(), UserID: in.UserID, FileName: in.FileName, Status: model.FileStatusPending, Hints: in.Hints}
	s.files[f.ID] = f
	return f, nil
}

func (s *fakeService) ProcessFile(_ context.Context, id uuid.UUID) (*model.ProcessingResult, error) {
	f := s.files[id]
	if s.processErr != nil {
		if !errors.Is(s.processErr, importservice.ErrInvalidTransition) {
			f.Status = model.FileStatusFailed
			msg := s.processErr.Error()
			f.ErrorMessage = &msg
		}
		return nil, s.processErr
	}
	f.Status = model.FileStatusCompleted
	f.TransactionsImported = 3
	return &model.ProcessingResult{TransactionsImported: 3}, nil
}

func (s *fakeService) GetFile(_ context.Context, userID, id uuid.UUID) (*repository.UploadedFile, error) {
	f, ok := s.files[id]
	if !ok || f.UserID != userID {
		return nil, importservice.ErrFileNotFound
	}
	return f, nil
}

func (s *fakeService) Retry(ctx context.Context, userID, id uuid.UUID) (*model.ProcessingResult, error) {
	if s.retryErr != nil {
		return nil, s.retryErr
	}
	if _, err := s.GetFile(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.ProcessFile(ctx, id)
}

func (s *fakeService) ExportTransactions(ctx context.Context, userID, id uuid.UUID) ([]byte, error) {
	if s.exportErr != nil {
		return nil, s.exportErr
	}
	if _, err := s.GetFile(ctx, userID, id); err != nil {
		return nil, err
	}
	return []byte("date,description,amount,direction\n2024-01-15,Coffee,3.50,EXPENSE\n"), nil
}

func newTestRouter(svc StatementService) *mux.Router {
	r := mux.NewRouter()
	NewImportHandler(svc, 1<<10, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(r http.Handler, req *http.Request, userID uuid.UUID) *httptest.ResponseRecorder {
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeFile(t *testing.T, rec *httptest.ResponseRecorder) fileResponse {
	t.Helper()
	var resp fileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadStatement(t *testing.T) {
	userID := uuid.New()

	t.Run("uploads and processes", func(t *testing.T) {
		svc := newFakeService()
		accountID := uuid.New()
		body, ct := multipartBody(t, "jan.csv", "Date,Description,Amount\n", map[string]string{
			"account_type":   "credit card",
			"bank_name":      " Chase ",
			"account_id":     accountID.String(),
			"statement_type": "monthly",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
		req.Header.Set("Content-Type", ct)

		rec := serve(newTestRouter(svc), req, userID)

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeFile(t, rec)
		assert.Equal(t, model.FileStatusCompleted, resp.Status)
		assert.Equal(t, 3, resp.TransactionsImported)

		assert.Equal(t, userID, svc.uploaded.UserID)
		assert.Equal(t, "jan.csv", svc.uploaded.FileName)
		assert.Equal(t, "Date,Description,Amount\n", svc.body)
		assert.Equal(t, model.AccountCreditCard, svc.uploaded.Hints.AccountType)
		assert.Equal(t, "Chase", svc.uploaded.Hints.BankName)
		assert.Equal(t, model.StatementMonthly, svc.uploaded.Hints.StatementType)
		require.NotNil(t, svc.uploaded.Hints.AccountID)
		assert.Equal(t, accountID, *svc.uploaded.Hints.AccountID)
	})

	t.Run("processing failure is reported on the file", func(t *testing.T) {
		svc := newFakeService()
		svc.processErr = extractor.ErrEmptyDocument
		body, ct := multipartBody(t, "scan.pdf", "%PDF", nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
		req.Header.Set("Content-Type", ct)

		rec := serve(newTestRouter(svc), req, userID)

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeFile(t, rec)
		assert.Equal(t, model.FileStatusFailed, resp.Status)
		require.NotNil(t, resp.ErrorMessage)
	})

	t.Run("claimed by the sweeper", func(t *testing.T) {
		svc := newFakeService()
		svc.processErr = importservice.ErrInvalidTransition
		body, ct := multipartBody(t, "jan.csv", "x", nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
		req.Header.Set("Content-Type", ct)

		rec := serve(newTestRouter(svc), req, userID)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	errorCases := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		svcErr   error
		want     int
	}{
		{"missing file", "", "", nil, nil, http.StatusBadRequest},
		{"bad account id", "jan.csv", "x", map[string]string{"account_id": "nope"}, nil, http.StatusBadRequest},
		{"bad statement type", "jan.csv", "x", map[string]string{"statement_type": "weekly"}, nil, http.StatusBadRequest},
		{"unsupported type", "photo.png", "x", nil, extractor.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{"too large", "big.csv", strings.Repeat("a", 3<<20), nil, nil, http.StatusRequestEntityTooLarge},
		{"storage failure", "jan.csv", "x", nil, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.uploadErr = tt.svcErr
			body, ct := multipartBody(t, tt.filename, tt.content, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
			req.Header.Set("Content-Type", ct)

			rec := serve(newTestRouter(svc), req, userID)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		body, ct := multipartBody(t, "jan.csv", "x", nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
		req.Header.Set("Content-Type", ct)
		rec := serve(newTestRouter(newFakeService()), req, uuid.Nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func seed(svc *fakeService, userID uuid.UUID, status model.FileStatus) *repository.UploadedFile {
	f := &repository.UploadedFile{ID: uuid.New(), UserID: userID, FileName: "jan.csv", Status: status}
	svc.files[f.ID] = f
	return f
}

func TestGetStatement(t *testing.T) {
	svc := newFakeService()
	userID := uuid.New()
	f := seed(svc, userID, model.FileStatusCompleted)
	f.Details = json.RawMessage(`{"transactions_found":2}`)
	r := newTestRouter(svc)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/statements/"+f.ID.String(), nil), userID)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeFile(t, rec)
	assert.Equal(t, f.ID, resp.ID)
	assert.JSONEq(t, `{"transactions_found":2}`, string(resp.Details))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/v1/statements/"+f.ID.String(), nil), uuid.New())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/v1/statements/not-a-uuid", nil), userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetryStatement(t *testing.T) {
	userID := uuid.New()

	t.Run("reprocesses", func(t *testing.T) {
		svc := newFakeService()
		f := seed(svc, userID, model.FileStatusFailed)
		rec := serve(newTestRouter(svc), httptest.NewRequest(http.MethodPost, "/v1/statements/"+f.ID.String()+"/retry", nil), userID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.FileStatusCompleted, decodeFile(t, rec).Status)
	})

	t.Run("still processing", func(t *testing.T) {
		svc := newFakeService()
		svc.retryErr = importservice.ErrInvalidTransition
		f := seed(svc, userID, model.FileStatusProcessing)
		rec := serve(newTestRouter(svc), httptest.NewRequest(http.MethodPost, "/v1/statements/"+f.ID.String()+"/retry", nil), userID)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown file", func(t *testing.T) {
		svc := newFakeService()
		rec := serve(newTestRouter(svc), httptest.NewRequest(http.MethodPost, "/v1/statements/"+uuid.NewString()+"/retry", nil), userID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExportTransactions(t *testing.T) {
	svc := newFakeService()
	userID := uuid.New()
	f := seed(svc, userID, model.FileStatusCompleted)

	rec := serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/statements/"+f.ID.String()+"/transactions.csv", nil), userID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), f.ID.String())
	assert.Contains(t, rec.Body.String(), "Coffee")

	svc.exportErr = errors.New("corrupt details")
	rec = serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/statements/"+f.ID.String()+"/transactions.csv", nil), userID)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
