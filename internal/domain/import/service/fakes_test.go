package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

type fakeRepo struct {
	mu           sync.Mutex
	accounts     []*repository.Account
	transactions []*repository.Transaction
	statements   []*repository.Statement
	files        map[uuid.UUID]*repository.UploadedFile
	reviewID     uuid.UUID
	reviewErr    error
	createTxErr  func(*repository.Transaction) error
	atomicWrites int
	plainWrites  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: map[uuid.UUID]*repository.UploadedFile{}, reviewID: uuid.New()}
}

func (r *fakeRepo) GetAccount(_ context.Context, userID, id uuid.UUID) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) FindAccount(_ context.Context, userID uuid.UUID, accountType model.AccountType, institution string) (*repository.Account, error) {
	return r.find(func(a *repository.Account) bool {
		return a.UserID == userID && a.Type == accountType && strings.EqualFold(a.Institution, institution)
	})
}

func (r *fakeRepo) FindAccountByType(_ context.Context, userID uuid.UUID, accountType model.AccountType) (*repository.Account, error) {
	return r.find(func(a *repository.Account) bool {
		return a.UserID == userID && a.Type == accountType
	})
}

func (r *fakeRepo) FindAccountByNumber(_ context.Context, userID uuid.UUID, institution, number string) (*repository.Account, error) {
	return r.find(func(a *repository.Account) bool {
		return a.UserID == userID && a.AccountNumber != nil && *a.AccountNumber == number && strings.EqualFold(a.Institution, institution)
	})
}

func (r *fakeRepo) find(match func(*repository.Account) bool) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) CreateAccount(_ context.Context, a *repository.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	r.accounts = append(r.accounts, a)
	return nil
}

func (r *fakeRepo) UpdateAccountBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			a.Balance = balance
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) TransactionExists(_ context.Context, accountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.AccountID == accountID && tx.Date.Equal(date) && tx.Amount.Equal(amount) && tx.Description == description {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateTransaction(_ context.Context, tx *repository.Transaction) error {
	if r.createTxErr != nil {
		if err := r.createTxErr(tx); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = uuid.New()
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *fakeRepo) SumTransactions(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range r.transactions {
		if tx.AccountID == accountID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (r *fakeRepo) LatestStatement(_ context.Context, accountID uuid.UUID) (*repository.Statement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *repository.Statement
	for _, s := range r.statements {
		if !covers(s, accountID) {
			continue
		}
		if latest == nil || s.PeriodEnd.After(latest.PeriodEnd) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRepo) HasStatementBalance(_ context.Context, accountID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statements {
		for _, sec := range s.Sections {
			if sec.AccountID == accountID && sec.EndingBalance != nil {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateStatement(_ context.Context, s *repository.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plainWrites++
	s.ID = uuid.New()
	r.statements = append(r.statements, s)
	return nil
}

func (r *fakeRepo) CreateStatementAtomic(_ context.Context, s *repository.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.atomicWrites++
	s.ID = uuid.New()
	r.statements = append(r.statements, s)
	return nil
}

func (r *fakeRepo) CreateUploadedFile(_ context.Context, f *repository.UploadedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	r.files[f.ID] = f
	return nil
}

func (r *fakeRepo) GetUploadedFile(_ context.Context, id uuid.UUID) (*repository.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeRepo) TransitionFile(_ context.Context, id uuid.UUID, from, to model.FileStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.Status != from {
		return false, nil
	}
	f.Status = to
	f.UpdatedAt = time.Now()
	return true, nil
}

// CompleteFile fails on a cancelled context the way a pgx Exec does.
func (r *fakeRepo) CompleteFile(ctx context.Context, id uuid.UUID, o repository.FileOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.Status = o.Status
	f.ErrorMessage = o.ErrorMessage
	f.Details = o.Details
	f.TransactionsImported = o.TransactionsImported
	if o.StoragePath != "" {
		f.StoragePath = o.StoragePath
	}
	now := time.Now()
	f.ProcessedAt = &now
	f.UpdatedAt = now
	return nil
}

func (r *fakeRepo) ListPendingFiles(_ context.Context, createdBefore time.Time, limit int) ([]*repository.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.UploadedFile
	for _, f := range r.files {
		if f.Status == model.FileStatusPending && f.CreatedAt.Before(createdBefore) && len(out) < limit {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ReclaimStaleFiles(_ context.Context, updatedBefore time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.files {
		if f.Status == model.FileStatusProcessing && f.UpdatedAt.Before(updatedBefore) {
			f.Status = model.FileStatusPending
			f.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) NeedsReviewCategoryID(context.Context) (uuid.UUID, error) {
	if r.reviewErr != nil {
		return uuid.Nil, r.reviewErr
	}
	return r.reviewID, nil
}

func (r *fakeRepo) file(id uuid.UUID) *repository.UploadedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files[id]
}

func (r *fakeRepo) transactionsFor(accountID uuid.UUID) []*repository.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Transaction
	for _, tx := range r.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

// seedFile registers a PENDING upload directly, bypassing storage.
func (r *fakeRepo) seedFile(userID uuid.UUID, ext string, hints model.Hints) *repository.UploadedFile {
	f := &repository.UploadedFile{
		UserID:      userID,
		FileName:    "statement." + ext,
		StoragePath: fmt.Sprintf("uploads/%s/statement.%s", userID, ext),
		FileType:    ext,
		Status:      model.FileStatusPending,
		Hints:       hints,
	}
	_ = r.CreateUploadedFile(context.Background(), f)
	return f
}

func covers(s *repository.Statement, accountID uuid.UUID) bool {
	return slices.ContainsFunc(s.Sections, func(sec repository.StatementAccountSection) bool {
		return sec.AccountID == accountID
	})
}

type fakeStorage struct {
	mu         sync.Mutex
	files      map[string][]byte
	archiveErr error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, userID uuid.UUID, filename string, r io.Reader) (*storage.FileInfo, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("uploads/%s/%s", userID, filename)
	s.mu.Lock()
	s.files[path] = buf.Bytes()
	s.mu.Unlock()
	return &storage.FileInfo{ID: uuid.New(), Name: filename, Size: n, Path: path, CreatedAt: time.Now()}, nil
}

func (s *fakeStorage) LocalPath(path string) (string, error) {
	return "/data/" + path, nil
}

func (s *fakeStorage) Archive(_ context.Context, path string) (string, error) {
	if s.archiveErr != nil {
		return "", s.archiveErr
	}
	return strings.Replace(path, "uploads/", "archive/2024-01/", 1), nil
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, path)
	delete(s.files, path)
	return nil
}

// fakeExtractor returns queued documents in order, one per Extract call.
type fakeExtractor struct {
	mu   sync.Mutex
	docs []*extractor.Document
	err  error
}

func (e *fakeExtractor) Extract(ctx context.Context, _, _ string) (*extractor.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if len(e.docs) == 0 {
		return nil, extractor.ErrEmptyDocument
	}
	doc := e.docs[0]
	if len(e.docs) > 1 {
		e.docs = e.docs[1:]
	}
	return doc, nil
}

type categorizeFunc func(description string, amount decimal.Decimal) (CategorizationResult, error)

func (f categorizeFunc) Categorize(_ context.Context, description string, amount decimal.Decimal, _ uuid.UUID) (CategorizationResult, error) {
	return f(description, amount)
}

// fakeStrategy stands in for statement layout parsing.
type fakeStrategy struct {
	transactions []model.ParsedTransaction
	panicWith    any
}

func (s *fakeStrategy) Parse(string, model.AccountType) []model.ParsedTransaction {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.transactions
}
