package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

// Keyword tables are checked in order; the first table that matches decides.
var (
	creditIncomeKeywords = []string{
		"payment", "thank you", "autopay", "auto pay", "auto-pay", "refund",
		"credit adjustment", "credit adj", "return", "statement credit",
	}

	depositIncomeKeywords = []string{
		"deposit", "payroll", "direct dep", "refund", "interest earned",
		"interest paid", "interest credit", "dividend",
	}

	depositIncomeExclusions = []string{"credit card", "credit crd"}

	depositExpenseKeywords = []string{
		"payment", "pmt", "transfer", "xfer", "debit", "withdrawal", "withdrwl",
		"atm", "fee", "check", "chk", "pos ", "purchase", "bill pay",
		"amazon", "walmart", "target", "costco", "netflix", "spotify", "uber",
		"lyft", "starbucks", "mcdonald", "shell", "exxon", "paypal", "venmo", "zelle",
	}
)

// ResolveDirection classifies a cleaned description as INCOME or EXPENSE.
// Credit-type accounts treat payments and refunds as income (they reduce the
// debt); deposit-type accounts default to EXPENSE when nothing matches.
func ResolveDirection(description string, accountType model.AccountType) model.Direction {
	desc := strings.ToLower(description)

	if accountType.IsCredit() {
		if containsAny(desc, creditIncomeKeywords) {
			return model.DirectionIncome
		}
		return model.DirectionExpense
	}

	if containsAny(desc, depositIncomeKeywords) && !containsAny(desc, depositIncomeExclusions) {
		return model.DirectionIncome
	}
	if containsAny(desc, depositExpenseKeywords) {
		return model.DirectionExpense
	}
	return model.DirectionExpense
}

// SignedAmount applies the ledger sign convention for the account type.
//
//	deposit: EXPENSE -> negative, INCOME -> positive
//	credit:  EXPENSE -> positive, INCOME -> negative
func SignedAmount(direction model.Direction, magnitude decimal.Decimal, accountType model.AccountType) decimal.Decimal {
	m := magnitude.Abs()
	expense := direction == model.DirectionExpense
	if accountType.IsCredit() {
		if expense {
			return m
		}
		return m.Neg()
	}
	if expense {
		return m.Neg()
	}
	return m
}

// DirectionFromSigned is the inverse of SignedAmount.
func DirectionFromSigned(signed decimal.Decimal, accountType model.AccountType) model.Direction {
	positive := signed.IsPositive()
	if accountType.IsCredit() {
		if positive {
			return model.DirectionExpense
		}
		return model.DirectionIncome
	}
	if positive {
		return model.DirectionIncome
	}
	return model.DirectionExpense
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
