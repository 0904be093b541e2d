// Package repository provides persistence for statement imports.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

var ErrNotFound = errors.New("not found")

// Account is a ledger account owned by a user.
type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Type          model.AccountType
	Institution   string
	AccountNumber *string
	Balance       decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transaction is a persisted ledger line. Amount is signed per the account
// type convention.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	AccountID      uuid.UUID
	Date           time.Time
	Description    string
	Amount         decimal.Decimal
	CategoryID     *uuid.UUID
	UploadedFileID *uuid.UUID
	NeedsReview    bool
	CreatedAt      time.Time
}

// Statement summarizes one imported document.
type Statement struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AccountID        *uuid.UUID
	UploadedFileID   *uuid.UUID
	StatementDate    *time.Time
	PeriodStart      time.Time
	PeriodEnd        time.Time
	BeginningBalance *decimal.Decimal
	EndingBalance    *decimal.Decimal
	Sections         []StatementAccountSection
	CreatedAt        time.Time
}

// StatementAccountSection holds the per-account figures of a statement.
type StatementAccountSection struct {
	ID               uuid.UUID
	StatementID      uuid.UUID
	AccountID        uuid.UUID
	BeginningBalance *decimal.Decimal
	EndingBalance    *decimal.Decimal
	TotalDebits      decimal.Decimal
	TotalCredits     decimal.Decimal
	TransactionCount int
}

// UploadedFile tracks a statement file through processing.
type UploadedFile struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	FileName             string
	StoragePath          string
	FileType             string
	SizeBytes            int64
	Status               model.FileStatus
	Hints                model.Hints
	ErrorMessage         *string
	Details              json.RawMessage
	TransactionsImported int
	ProcessedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FileOutcome is written when processing finishes.
type FileOutcome struct {
	Status               model.FileStatus
	ErrorMessage         *string
	Details              json.RawMessage
	TransactionsImported int
	// StoragePath replaces the stored path when non-empty (after archiving).
	StoragePath string
}

// ImportRepository is the persistence port used by the import service.
type ImportRepository interface {
	GetAccount(ctx context.Context, userID, id uuid.UUID) (*Account, error)
	FindAccount(ctx context.Context, userID uuid.UUID, accountType model.AccountType, institution string) (*Account, error)
	FindAccountByType(ctx context.Context, userID uuid.UUID, accountType model.AccountType) (*Account, error)
	FindAccountByNumber(ctx context.Context, userID uuid.UUID, institution, number string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error

	TransactionExists(ctx context.Context, accountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error)
	CreateTransaction(ctx context.Context, tx *Transaction) error
	SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)

	LatestStatement(ctx context.Context, accountID uuid.UUID) (*Statement, error)
	HasStatementBalance(ctx context.Context, accountID uuid.UUID) (bool, error)
	// CreateStatement writes the statement and then each section.
	CreateStatement(ctx context.Context, statement *Statement) error
	// CreateStatementAtomic writes the statement and sections in one
	// database transaction.
	CreateStatementAtomic(ctx context.Context, statement *Statement) error

	CreateUploadedFile(ctx context.Context, file *UploadedFile) error
	GetUploadedFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error)
	// TransitionFile moves a file from one status to another and reports
	// whether this caller won the transition.
	TransitionFile(ctx context.Context, id uuid.UUID, from, to model.FileStatus) (bool, error)
	CompleteFile(ctx context.Context, id uuid.UUID, outcome FileOutcome) error
	ListPendingFiles(ctx context.Context, createdBefore time.Time, limit int) ([]*UploadedFile, error)
	// ReclaimStaleFiles returns PROCESSING files not touched since
	// updatedBefore to PENDING and reports how many moved.
	ReclaimStaleFiles(ctx context.Context, updatedBefore time.Time) (int, error)

	NeedsReviewCategoryID(ctx context.Context) (uuid.UUID, error)
}
