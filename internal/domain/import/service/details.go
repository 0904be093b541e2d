package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// processingDetails is the JSON stored on the uploaded file. The embedded
// result keeps ProcessingResult decodable from it.
type processingDetails struct {
	*model.ProcessingResult
	DurationMS       int64            `json:"duration_ms"`
	StatementBalance *money.Money     `json:"statement_balance_display,omitempty"`
	TotalDebits      *money.Money     `json:"total_debits"`
	TotalCredits     *money.Money     `json:"total_credits"`
	LedgerAccounts   []accountSummary `json:"ledger_accounts,omitempty"`
}

type accountSummary struct {
	AccountID    uuid.UUID    `json:"account_id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Balance      *money.Money `json:"balance"`
	TotalDebits  *money.Money `json:"total_debits"`
	TotalCredits *money.Money `json:"total_credits"`
	Transactions int          `json:"transactions"`
}

func (s *ImportService) details(run *importRun, elapsed time.Duration) json.RawMessage {
	d := processingDetails{
		ProcessingResult: run.result,
		DurationMS:       elapsed.Milliseconds(),
		StatementBalance: money.Ptr(run.result.StatementBalance, money.USD),
	}
	var debits, credits []decimal.Decimal
	for _, t := range run.targets {
		debits = append(debits, t.debits)
		credits = append(credits, t.credits)
		d.LedgerAccounts = append(d.LedgerAccounts, accountSummary{
			AccountID:    t.account.ID,
			Name:         t.account.Name,
			Type:         string(t.account.Type),
			Balance:      money.NewFromDecimal(t.account.Balance, money.USD),
			TotalDebits:  money.NewFromDecimal(t.debits, money.USD),
			TotalCredits: money.NewFromDecimal(t.credits, money.USD),
			Transactions: len(t.transactions),
		})
	}
	d.TotalDebits = money.Sum(debits, money.USD)
	d.TotalCredits = money.Sum(credits, money.USD)

	raw, err := json.Marshal(d)
	if err != nil {
		run.logger.Warn("failed to encode processing details", "error", err)
		return json.RawMessage(`{}`)
	}
	return raw
}
