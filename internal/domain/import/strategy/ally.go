package strategy

import (
	"log/slog"
	"regexp"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
)

var (
	// "Online Savings Account ...1234", "Money Market xxxxxx5678",
	// "Interest Checking #9012", "Account ending in 3456".
	accountHeadingRe = regexp.MustCompile(`(?i)(savings|checking|money market|certificate|account)\b[^\d]{0,40}?(?:\.{2,}|x{2,}|\*{2,}|#|ending in\s*|number\s*:?\s*)(\d{4})\b`)
	allyLineRe       = regexp.MustCompile(`(?i)^(` + datePattern + `)\s+(.+?)\s+(` + amountPattern + `)(?:\s+(` + amountPattern + `))?$`)
)

var allySkipPhrases = []string{"beginning balance", "ending balance", "previous balance", "balance forward"}

// AllySavings parses Ally statements, which may cover several accounts in
// one document. Each activity line is tagged with the last four digits of
// the account heading it appears under so the importer can route it.
type AllySavings struct {
	logger *slog.Logger
}

func NewAllySavings(logger *slog.Logger) *AllySavings {
	return &AllySavings{logger: logger}
}

type allyLine struct {
	tx      model.ParsedTransaction
	amount  parsedAmount
	account string
}

func (s *AllySavings) Parse(text string, hint model.AccountType) []model.ParsedTransaction {
	ref := referenceDate(text)

	var (
		lines   []allyLine
		account string
		anySign bool
	)
	accounts := map[string]struct{}{}
	for _, line := range splitLines(text) {
		m := allyLineRe.FindStringSubmatch(line)
		if m == nil {
			if h := accountHeadingRe.FindStringSubmatch(line); h != nil {
				account = h[2]
				accounts[account] = struct{}{}
			}
			continue
		}
		if containsFold(m[2], allySkipPhrases) {
			continue
		}
		date, ok := parseDateToken(m[1], ref)
		if !ok {
			continue
		}
		amt, ok := parseAmountToken(m[3])
		if !ok {
			continue
		}
		if amt.negative {
			anySign = true
		}
		lines = append(lines, allyLine{
			tx:      model.ParsedTransaction{Date: date, Description: m[2]},
			amount:  amt,
			account: account,
		})
	}

	// Statements that print debits with a minus sign let the sign decide;
	// otherwise fall back to keyword rules.
	out := make([]model.ParsedTransaction, 0, len(lines))
	for _, l := range lines {
		dir := normalizer.ResolveDirection(l.tx.Description, hint)
		if anySign {
			dir = model.DirectionIncome
			if l.amount.negative {
				dir = model.DirectionExpense
			}
		}
		if tx, ok := newTransaction(l.tx.Date, l.tx.Description, l.amount.magnitude, dir, l.account); ok {
			out = append(out, tx)
		}
	}

	if len(accounts) > 1 {
		s.logger.Debug("multi-account statement",
			slog.Int("accounts", len(accounts)), slog.Int("transactions", len(out)))
	}
	return out
}
