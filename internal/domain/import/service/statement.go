package service

import (
	"time"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
)

// period returns the statement period, falling back to the transaction date
// range and then to the upload date.
func (r *importRun) period() (time.Time, time.Time) {
	if r.info.PeriodStart != nil && r.info.PeriodEnd != nil {
		return *r.info.PeriodStart, *r.info.PeriodEnd
	}
	txs := r.result.Transactions
	if len(txs) == 0 {
		day := r.file.CreatedAt.Truncate(24 * time.Hour)
		return day, day
	}
	start, end := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		start = minTime(start, tx.Date)
		end = maxTime(end, tx.Date)
	}
	return start, end
}

func (s *ImportService) buildStatement(run *importRun, periodStart, periodEnd time.Time) *repository.Statement {
	fileID := run.file.ID
	statementDate := run.info.StatementDate
	if statementDate == nil {
		statementDate = &periodEnd
	}

	st := &repository.Statement{
		UserID:         run.file.UserID,
		UploadedFileID: &fileID,
		StatementDate:  statementDate,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	}

	// Multi-account statements carry balances per section only.
	single := len(run.targets) == 1
	if single {
		accountID := run.targets[0].account.ID
		st.AccountID = &accountID
		st.BeginningBalance = run.info.BeginningBalance
		st.EndingBalance = run.info.EndingBalance
	}

	for _, t := range run.targets {
		section := repository.StatementAccountSection{
			AccountID:        t.account.ID,
			TotalDebits:      t.debits,
			TotalCredits:     t.credits,
			TransactionCount: len(t.transactions),
		}
		if single {
			section.BeginningBalance = run.info.BeginningBalance
			section.EndingBalance = run.info.EndingBalance
		} else {
			section.BeginningBalance = t.info.BeginningBalance
			section.EndingBalance = t.info.EndingBalance
		}
		st.Sections = append(st.Sections, section)
	}
	return st
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
