package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

// NeedsReviewCategory is the seeded category for uncategorized lines.
const NeedsReviewCategory = "Needs Review"

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresImportRepository implements ImportRepository using PostgreSQL.
type PostgresImportRepository struct {
	db DB
}

var _ ImportRepository = (*PostgresImportRepository)(nil)

func NewPostgresImportRepository(db DB) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

const accountColumns = `id, user_id, name, type, institution, account_number, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Type,
		&a.Institution,
		&a.AccountNumber,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresImportRepository) GetAccount(ctx context.Context, userID, id uuid.UUID) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, err
}

// FindAccount matches on type and institution, case-insensitively.
func (r *PostgresImportRepository) FindAccount(ctx context.Context, userID uuid.UUID, accountType model.AccountType, institution string) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND type = $2 AND LOWER(institution) = LOWER($3)
		ORDER BY created_at
		LIMIT 1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, accountType, institution))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return a, err
}

func (r *PostgresImportRepository) FindAccountByType(ctx context.Context, userID uuid.UUID, accountType model.AccountType) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at
		LIMIT 1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, accountType))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find account by type: %w", err)
	}
	return a, err
}

// FindAccountByNumber matches the stored account number fragment.
func (r *PostgresImportRepository) FindAccountByNumber(ctx context.Context, userID uuid.UUID, institution, number string) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND LOWER(institution) = LOWER($2) AND account_number = $3
		LIMIT 1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, institution, number))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find account by number: %w", err)
	}
	return a, err
}

func (r *PostgresImportRepository) CreateAccount(ctx context.Context, a *Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, institution, account_number, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.Name,
		a.Type,
		a.Institution,
		a.AccountNumber,
		a.Balance,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresImportRepository) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, accountID, balance)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TransactionExists checks the dedup key (account, date, amount, description).
func (r *PostgresImportRepository) TransactionExists(ctx context.Context, accountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE account_id = $1 AND date = $2 AND amount = $3 AND description = $4
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, date, amount, description).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check duplicate transaction: %w", err)
	}
	return exists, nil
}

func (r *PostgresImportRepository) CreateTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, account_id, date, description, amount, category_id, uploaded_file_id, needs_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.UserID,
		t.AccountID,
		t.Date,
		t.Description,
		t.Amount,
		t.CategoryID,
		t.UploadedFileID,
		t.NeedsReview,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *PostgresImportRepository) SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1`
	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// LatestStatement returns the statement covering accountID with the most
// recent period end, with the balances of that account's section.
func (r *PostgresImportRepository) LatestStatement(ctx context.Context, accountID uuid.UUID) (*Statement, error) {
	query := `
		SELECT s.id, s.user_id, s.account_id, s.uploaded_file_id, s.statement_date,
		       s.period_start_date, s.period_end_date, sec.beginning_balance, sec.ending_balance, s.created_at
		FROM statements s
		JOIN statement_account_sections sec ON sec.statement_id = s.id
		WHERE sec.account_id = $1
		ORDER BY s.period_end_date DESC, s.created_at DESC
		LIMIT 1`

	s := &Statement{}
	var begin, end decimal.NullDecimal
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&s.ID,
		&s.UserID,
		&s.AccountID,
		&s.UploadedFileID,
		&s.StatementDate,
		&s.PeriodStart,
		&s.PeriodEnd,
		&begin,
		&end,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest statement: %w", err)
	}
	s.BeginningBalance = nullDecimal(begin)
	s.EndingBalance = nullDecimal(end)
	return s, nil
}

func (r *PostgresImportRepository) HasStatementBalance(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM statement_account_sections
			WHERE account_id = $1 AND ending_balance IS NOT NULL
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check statement balance: %w", err)
	}
	return exists, nil
}

func (r *PostgresImportRepository) CreateStatement(ctx context.Context, s *Statement) error {
	return insertStatement(ctx, r.db, s)
}

func (r *PostgresImportRepository) CreateStatementAtomic(ctx context.Context, s *Statement) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin statement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertStatement(ctx, tx, s); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit statement: %w", err)
	}
	return nil
}

func insertStatement(ctx context.Context, db execer, s *Statement) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO statements (id, user_id, account_id, uploaded_file_id, statement_date,
		                        period_start_date, period_end_date, beginning_balance, ending_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID,
		s.UserID,
		s.AccountID,
		s.UploadedFileID,
		s.StatementDate,
		s.PeriodStart,
		s.PeriodEnd,
		s.BeginningBalance,
		s.EndingBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}

	for i := range s.Sections {
		sec := &s.Sections[i]
		if sec.ID == uuid.Nil {
			sec.ID = uuid.New()
		}
		sec.StatementID = s.ID
		_, err := db.Exec(ctx, `
			INSERT INTO statement_account_sections (id, statement_id, account_id, beginning_balance,
			                                        ending_balance, total_debits, total_credits, transaction_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sec.ID,
			sec.StatementID,
			sec.AccountID,
			sec.BeginningBalance,
			sec.EndingBalance,
			sec.TotalDebits,
			sec.TotalCredits,
			sec.TransactionCount,
		)
		if err != nil {
			return fmt.Errorf("failed to create statement section: %w", err)
		}
	}
	return nil
}

const fileColumns = `id, user_id, file_name, storage_path, file_type, size_bytes, status,
	account_id, account_type, bank_name, statement_type, error_message, details,
	transactions_imported, processed_at, created_at, updated_at`

func scanFile(row pgx.Row) (*UploadedFile, error) {
	f := &UploadedFile{}
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FileName,
		&f.StoragePath,
		&f.FileType,
		&f.SizeBytes,
		&f.Status,
		&f.Hints.AccountID,
		&f.Hints.AccountType,
		&f.Hints.BankName,
		&f.Hints.StatementType,
		&f.ErrorMessage,
		&f.Details,
		&f.TransactionsImported,
		&f.ProcessedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresImportRepository) CreateUploadedFile(ctx context.Context, f *UploadedFile) error {
	query := `
		INSERT INTO uploaded_files (id, user_id, file_name, storage_path, file_type, size_bytes, status,
		                            account_id, account_type, bank_name, statement_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = model.FileStatusPending
	}
	err := r.db.QueryRow(ctx, query,
		f.ID,
		f.UserID,
		f.FileName,
		f.StoragePath,
		f.FileType,
		f.SizeBytes,
		f.Status,
		f.Hints.AccountID,
		f.Hints.AccountType,
		f.Hints.BankName,
		f.Hints.StatementType,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create uploaded file: %w", err)
	}
	return nil
}

func (r *PostgresImportRepository) GetUploadedFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM uploaded_files WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded file: %w", err)
	}
	return f, nil
}

func (r *PostgresImportRepository) TransitionFile(ctx context.Context, id uuid.UUID, from, to model.FileStatus) (bool, error) {
	query := `UPDATE uploaded_files SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update file status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresImportRepository) CompleteFile(ctx context.Context, id uuid.UUID, o FileOutcome) error {
	query := `
		UPDATE uploaded_files
		SET status = $2, error_message = $3, details = $4, transactions_imported = $5,
		    storage_path = COALESCE(NULLIF($6, ''), storage_path),
		    processed_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, o.Status, o.ErrorMessage, o.Details, o.TransactionsImported, o.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to complete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresImportRepository) ListPendingFiles(ctx context.Context, createdBefore time.Time, limit int) ([]*UploadedFile, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM uploaded_files
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, model.FileStatusPending, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending files: %w", err)
	}
	defer rows.Close()

	var files []*UploadedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan uploaded file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *PostgresImportRepository) ReclaimStaleFiles(ctx context.Context, updatedBefore time.Time) (int, error) {
	query := `UPDATE uploaded_files SET status = $1, updated_at = NOW() WHERE status = $2 AND updated_at < $3`
	tag, err := r.db.Exec(ctx, query, model.FileStatusPending, model.FileStatusProcessing, updatedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale files: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresImportRepository) NeedsReviewCategoryID(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, NeedsReviewCategory).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get needs review category: %w", err)
	}
	return id, nil
}

func nullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
