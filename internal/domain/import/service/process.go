package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/statementinfo"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/strategy"
)

const strategyCSV = "csv"

// importRun carries the state of one ProcessFile call.
type importRun struct {
	file   *repository.UploadedFile
	result *model.ProcessingResult
	logger *slog.Logger

	tabular bool
	info    statementinfo.Info
	// accounts touched by this run, in routing order.
	targets []*target
}

// target is one ledger account and the transactions routed to it.
type target struct {
	account      *repository.Account
	info         *model.AccountInfo
	transactions []model.ParsedTransaction
	debits       decimal.Decimal
	credits      decimal.Decimal
}

func (s *ImportService) process(ctx context.Context, run *importRun) error {
	path, err := s.storage.LocalPath(run.file.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to locate stored file: %w", err)
	}

	doc, err := s.extractor.Extract(ctx, path, run.file.FileType)
	if err != nil {
		return err
	}
	run.tabular = doc.Tabular

	txs, err := s.parse(ctx, run, doc.Text)
	if err != nil {
		return err
	}
	run.result.Transactions = txs
	run.result.TransactionsFound = len(txs)
	if len(txs) == 0 {
		return ErrNoTransactions
	}

	if run.info.NeedsReview {
		run.flag(run.info.ReviewReasons...)
	}
	run.result.StatementBalance = run.info.EndingBalance
	run.result.StatementDate = run.info.StatementDate

	if err := s.resolveTargets(ctx, run); err != nil {
		return err
	}
	if len(run.targets) == 1 {
		id := run.targets[0].account.ID
		run.result.AccountID = &id
	}

	for _, t := range run.targets {
		s.importTransactions(ctx, run, t)
	}

	return s.finalize(ctx, run)
}

// parse chooses the CSV parser or a text strategy and fills run.info.
func (s *ImportService) parse(ctx context.Context, run *importRun, text string) ([]model.ParsedTransaction, error) {
	started := time.Now()
	hints := run.file.Hints

	if run.tabular {
		res, err := s.parser.Parse(ctx, text)
		if err != nil {
			return nil, err
		}
		if res.SkippedRows > 0 {
			run.logger.Info("csv rows skipped", slog.Int("skipped", res.SkippedRows), slog.Int("total", res.TotalRows))
		}
		run.result.Strategy = strategyCSV
		run.result.BankType = model.BankUnknown
		run.info = statementinfo.Extract("", res.Transactions)
		s.metrics.ParseDuration(strategyCSV, time.Since(started))
		return res.Transactions, nil
	}

	bank := sniffer.ResolveBank(hints.BankName, text)
	key := sniffer.SelectStrategy(bank, hints.AccountType, hints.StatementType)
	txs, used := s.strategies.Parse(key, text, hints.AccountType)
	if used != key {
		run.logger.Info("strategy found nothing, used generic", slog.String("strategy", string(key)))
	}

	run.result.BankType = bank
	run.result.Strategy = string(used)
	run.info = statementinfo.Extract(text, txs)
	// sub-account tables only count for layouts that route by account number
	if used == strategy.KeyAllySavings || hasAccountHints(txs) {
		if accounts := statementinfo.ExtractAccounts(text); len(accounts) > 1 {
			run.result.Accounts = accounts
		}
	}
	s.metrics.ParseDuration(string(used), time.Since(started))
	return txs, nil
}

// importTransactions dedups, categorizes and inserts the transactions routed
// to t. Failures are collected on the result.
func (s *ImportService) importTransactions(ctx context.Context, run *importRun, t *target) {
	fileID := run.file.ID
	for _, ptx := range t.transactions {
		switch ptx.Direction {
		case model.DirectionExpense:
			t.debits = t.debits.Add(ptx.Amount)
		case model.DirectionIncome:
			t.credits = t.credits.Add(ptx.Amount)
		}

		signed := normalizer.SignedAmount(ptx.Direction, ptx.Amount, t.account.Type)
		exists, err := s.repo.TransactionExists(ctx, t.account.ID, ptx.Date, signed, ptx.Description)
		if err != nil {
			run.fail(ptx, err)
			continue
		}
		if exists {
			run.result.Duplicates++
			continue
		}

		categoryID, review := s.categorize(ctx, run, ptx)
		tx := &repository.Transaction{
			UserID:         run.file.UserID,
			AccountID:      t.account.ID,
			Date:           ptx.Date,
			Description:    ptx.Description,
			Amount:         signed,
			CategoryID:     categoryID,
			UploadedFileID: &fileID,
			NeedsReview:    review,
		}
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			run.fail(ptx, err)
			continue
		}
		run.result.TransactionsImported++
	}
}

// categorize returns the category for ptx. Anything uncertain lands in
// Needs Review.
func (s *ImportService) categorize(ctx context.Context, run *importRun, ptx model.ParsedTransaction) (*uuid.UUID, bool) {
	if s.catService != nil {
		merchant := s.sanitizer.Sanitize(ptx.Description)
		flow := ptx.Amount
		if ptx.Direction == model.DirectionExpense {
			flow = flow.Neg()
		}
		res, err := s.catService.Categorize(ctx, merchant.NormalizedName, flow, run.file.UserID)
		switch {
		case err != nil:
			run.logger.Warn("categorization failed", slog.String("description", ptx.Description), "error", err)
		case res.CategoryID != nil && !res.NeedsReview:
			return res.CategoryID, false
		}
	}

	id, err := s.needsReviewCategory(ctx)
	if err != nil {
		run.logger.Warn("needs review category unavailable", "error", err)
		return nil, true
	}
	return &id, true
}

func (s *ImportService) needsReviewCategory(ctx context.Context) (uuid.UUID, error) {
	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()
	if s.reviewID != nil {
		return *s.reviewID, nil
	}
	id, err := s.repo.NeedsReviewCategoryID(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	s.reviewID = &id
	return id, nil
}

func (r *importRun) fail(ptx model.ParsedTransaction, err error) {
	msg := fmt.Sprintf("%s %s %s: %v", ptx.Date.Format(time.DateOnly), ptx.Description, ptx.Amount.StringFixed(2), err)
	r.result.Errors = append(r.result.Errors, msg)
	r.logger.Warn("failed to import transaction",
		slog.String("date", ptx.Date.Format(time.DateOnly)),
		slog.String("description", ptx.Description),
		"error", err)
}

func hasAccountHints(txs []model.ParsedTransaction) bool {
	for _, tx := range txs {
		if tx.AccountHint != "" {
			return true
		}
	}
	return false
}

func (r *importRun) flag(reasons ...string) {
	r.result.NeedsReview = true
	r.result.ReviewReasons = append(r.result.ReviewReasons, reasons...)
}
