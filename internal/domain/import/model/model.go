// Package model holds the types shared across the statement import pipeline.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction classifies a transaction before a sign is applied.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// AccountType is the caller-declared kind of account a statement belongs to.
type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountCredit     AccountType = "CREDIT"
	AccountInvestment AccountType = "INVESTMENT"
	AccountLoan       AccountType = "LOAN"
)

// IsCredit reports whether a higher balance on this account means more debt.
func (t AccountType) IsCredit() bool {
	return t == AccountCreditCard || t == AccountCredit
}

// Label returns a human readable name, e.g. "Credit Card".
func (t AccountType) Label() string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParseAccountType normalizes a caller supplied account type. Unknown values
// fall back to CHECKING.
func ParseAccountType(s string) AccountType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch AccountType(s) {
	case AccountChecking, AccountSavings, AccountCreditCard, AccountCredit, AccountInvestment, AccountLoan:
		return AccountType(s)
	}
	return AccountChecking
}

// StatementType is the optional caller hint about statement cadence.
type StatementType string

const (
	StatementMonthly            StatementType = "MONTHLY"
	StatementQuarterly          StatementType = "QUARTERLY"
	StatementAnnual             StatementType = "ANNUAL"
	StatementTransactionHistory StatementType = "TRANSACTION_HISTORY"
	StatementCustom             StatementType = "CUSTOM"
)

// BankType identifies the institution detected in a statement.
type BankType string

const (
	BankTD         BankType = "TD_BANK"
	BankAlly       BankType = "ALLY_BANK"
	BankChase      BankType = "CHASE"
	BankWellsFargo BankType = "WELLS_FARGO"
	BankUnknown    BankType = "UNKNOWN"
)

// DisplayName is the institution name used when creating accounts.
func (b BankType) DisplayName() string {
	switch b {
	case BankTD:
		return "TD Bank"
	case BankAlly:
		return "Ally Bank"
	case BankChase:
		return "Chase"
	case BankWellsFargo:
		return "Wells Fargo"
	}
	return ""
}

// FileStatus is the lifecycle state of an uploaded statement file.
type FileStatus string

const (
	FileStatusPending    FileStatus = "PENDING"
	FileStatusProcessing FileStatus = "PROCESSING"
	FileStatusCompleted  FileStatus = "COMPLETED"
	FileStatusFailed     FileStatus = "FAILED"
)

// ParsedTransaction is a candidate transaction produced by a parser. Amount is
// always a non-negative magnitude; Direction carries the polarity.
type ParsedTransaction struct {
	Date        time.Time       `json:"date" csv:"date"`
	Description string          `json:"description" csv:"description"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Direction   Direction       `json:"direction" csv:"direction"`
	// AccountHint is an account number fragment seen near the line, used to
	// route transactions in multi-account statements.
	AccountHint string `json:"account_hint,omitempty" csv:"-"`
}

// AccountInfo describes one account sub-table found inside a statement.
type AccountInfo struct {
	Name             string           `json:"name"`
	AccountNumber    string           `json:"account_number"`
	BeginningBalance *decimal.Decimal `json:"beginning_balance,omitempty"`
	EndingBalance    *decimal.Decimal `json:"ending_balance,omitempty"`
}

// ProcessingResult is the outcome of processing one uploaded file.
type ProcessingResult struct {
	TransactionsFound    int                 `json:"transactions_found"`
	TransactionsImported int                 `json:"transactions_imported"`
	Duplicates           int                 `json:"duplicates"`
	Errors               []string            `json:"errors"`
	BankType             BankType            `json:"bank_type"`
	Strategy             string              `json:"strategy,omitempty"`
	Transactions         []ParsedTransaction `json:"transactions"`
	StatementBalance     *decimal.Decimal    `json:"statement_balance,omitempty"`
	StatementDate        *time.Time          `json:"statement_date,omitempty"`
	AccountID            *uuid.UUID          `json:"account_id,omitempty"`
	Accounts             []AccountInfo       `json:"accounts,omitempty"`
	NeedsReview          bool                `json:"needs_review"`
	ReviewReasons        []string            `json:"review_reasons,omitempty"`
}

// Hints are the caller supplied upload parameters.
type Hints struct {
	AccountID     *uuid.UUID    `json:"account_id,omitempty"`
	AccountType   AccountType   `json:"account_type"`
	BankName      string        `json:"bank_name,omitempty"`
	StatementType StatementType `json:"statement_type,omitempty"`
}
