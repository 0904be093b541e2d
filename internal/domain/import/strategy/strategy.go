// Package strategy holds the bank specific transaction line parsers. Every
// parser implements Strategy; Generic is the default arm of the registry.
package strategy

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
)

// Key identifies a parsing strategy.
type Key string

const (
	KeyGeneric            Key = "generic"
	KeyTDChecking         Key = "td_checking"
	KeyTDCreditCard       Key = "td_credit_card"
	KeyAllySavings        Key = "ally_savings"
	KeyChaseCreditCard    Key = "chase_credit_card"
	KeyWellsFargoChecking Key = "wells_fargo_checking"
)

// Strategy converts extracted statement text into candidate transactions.
type Strategy interface {
	Parse(text string, hint model.AccountType) []model.ParsedTransaction
}

// Registry resolves keys to strategies.
type Registry struct {
	strategies map[Key]Strategy
	generic    Strategy
}

// NewRegistry registers every built-in strategy.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	generic := NewGeneric(logger)
	return &Registry{
		generic: generic,
		strategies: map[Key]Strategy{
			KeyGeneric:            generic,
			KeyTDChecking:         NewTDChecking(logger),
			KeyTDCreditCard:       NewTDCreditCard(logger),
			KeyAllySavings:        NewAllySavings(logger),
			KeyChaseCreditCard:    NewChaseCreditCard(logger),
			KeyWellsFargoChecking: NewWellsFargoChecking(logger),
		},
	}
}

// Register adds or replaces a strategy.
func (r *Registry) Register(key Key, s Strategy) {
	r.strategies[key] = s
}

// Get returns the strategy for key, or Generic when none is registered.
func (r *Registry) Get(key Key) Strategy {
	if s, ok := r.strategies[key]; ok {
		return s
	}
	return r.generic
}

// Parse runs the strategy for key. A strategy that finds nothing falls
// through to Generic; the key that produced the result is returned.
func (r *Registry) Parse(key Key, text string, hint model.AccountType) ([]model.ParsedTransaction, Key) {
	s := r.Get(key)
	txs := s.Parse(text, hint)
	if len(txs) > 0 || s == r.generic {
		if s == r.generic {
			key = KeyGeneric
		}
		return txs, key
	}
	return r.generic.Parse(text, hint), KeyGeneric
}

const (
	monthNames    = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?`
	datePattern   = `(?:\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{2}-\d{2}|` + monthNames + `\s+\d{1,2}(?:,?\s+\d{4})?)`
	amountPattern = `\(?-?\$?\s?-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?(?:\s?CR\b)?`
)

var (
	dateOnlyRe   = regexp.MustCompile(`^` + datePattern + `$`)
	amountOnlyRe = regexp.MustCompile(`(?i)^` + amountPattern + `$`)
	leadingDate  = regexp.MustCompile(`^` + datePattern + `\b`)
	fullDateRe   = regexp.MustCompile(`\b(?:\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|` + monthNames + `\s+\d{1,2},?\s+\d{4})\b`)
	referenceRe  = regexp.MustCompile(`^[A-Z0-9]{10,}$`)
)

// parseDateToken parses full, yearless ("01/15") and month-name dates.
// Yearless dates take their year from ref.
func parseDateToken(tok string, ref time.Time) (time.Time, bool) {
	tok = strings.TrimSpace(strings.ReplaceAll(tok, ".", ""))
	if t, err := normalizer.ParseFlexibleDate(tok); err == nil {
		return t, true
	}
	if t, err := normalizer.ParseShortDate(tok, ref); err == nil {
		return t, true
	}
	for _, layout := range []string{"Jan 2", "January 2"} {
		if t, err := time.Parse(layout, tok); err == nil {
			d, err := normalizer.ParseShortDate(t.Format("1/2"), ref)
			return d, err == nil
		}
	}
	return time.Time{}, false
}

// parsedAmount is a money token as printed on the statement.
type parsedAmount struct {
	magnitude decimal.Decimal
	negative  bool // leading/trailing minus or parentheses
	credit    bool // trailing CR marker
}

func parseAmountToken(tok string) (parsedAmount, bool) {
	tok = strings.TrimSpace(tok)
	credit := false
	upper := strings.ToUpper(tok)
	if strings.HasSuffix(upper, "CR") {
		credit = true
		tok = strings.TrimSpace(tok[:len(tok)-2])
	}
	v, err := normalizer.ParseAmountFormat(tok, false)
	if err != nil || v.IsZero() {
		return parsedAmount{}, false
	}
	return parsedAmount{magnitude: v.Abs(), negative: v.IsNegative(), credit: credit}, true
}

// referenceDate picks the latest fully dated token in the document. Yearless
// transaction dates are resolved against it.
func referenceDate(text string) time.Time {
	var latest time.Time
	for _, tok := range fullDateRe.FindAllString(text, -1) {
		t, err := normalizer.ParseFlexibleDate(strings.ReplaceAll(tok, ".", ""))
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return time.Now().UTC()
	}
	return latest
}

// newTransaction applies the rules every strategy shares: cleaned and clipped
// description, non-zero amount.
func newTransaction(date time.Time, description string, amount decimal.Decimal, direction model.Direction, hint string) (model.ParsedTransaction, bool) {
	desc := normalizer.CleanDescription(description)
	if desc == "" || amount.IsZero() || date.IsZero() {
		return model.ParsedTransaction{}, false
	}
	return model.ParsedTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount.Abs(),
		Direction:   direction,
		AccountHint: hint,
	}, true
}

// signedDirection decides direction from printed sign markers, falling back
// to keyword rules when the amount carries no sign.
func signedDirection(a parsedAmount, description string, accountType model.AccountType) model.Direction {
	switch {
	case a.credit:
		return model.DirectionIncome
	case a.negative && accountType.IsCredit():
		return model.DirectionIncome
	case a.negative:
		return model.DirectionExpense
	}
	return normalizer.ResolveDirection(description, accountType)
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(strings.ReplaceAll(l, "\f", ""))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func hasPrefixFold(s string, prefixes []string) bool {
	upper := strings.ToUpper(s)
	for _, p := range prefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

func containsFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
