package sniffer

import (
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/strategy"
)

// bankPriority is the order in which indicator hits are honoured. Ally is
// first because its statements routinely mention other institutions.
var bankPriority = []model.BankType{
	model.BankAlly,
	model.BankTD,
	model.BankChase,
	model.BankWellsFargo,
}

var bankIndicators = map[model.BankType][]string{
	model.BankAlly:       {"ally bank", "ally com", "ally financial"},
	model.BankTD:         {"td bank", "tdbank", "tdbank com"},
	model.BankChase:      {"chase", "jpmorgan"},
	model.BankWellsFargo: {"wells fargo", "wellsfargo", "wellsfargo com"},
}

// Detector finds bank indicator phrases in a single Aho-Corasick pass.
// Patterns and text are normalized to space separated lower-case words and
// padded, so "chase" matches "CHASE" but not "purchase".
type Detector struct {
	matcher *ahocorasick.Matcher
	banks   []model.BankType // bank for each pattern index
}

// NewDetector builds the matcher over the built-in indicator table.
func NewDetector() *Detector {
	var patterns []string
	var banks []model.BankType
	for _, bank := range bankPriority {
		for _, ind := range bankIndicators[bank] {
			patterns = append(patterns, " "+ind+" ")
			banks = append(banks, bank)
		}
	}
	return &Detector{
		matcher: ahocorasick.NewStringMatcher(patterns),
		banks:   banks,
	}
}

var defaultDetector = NewDetector()

// DetectBank identifies the bank from statement text using the default detector.
func DetectBank(text string) model.BankType {
	return defaultDetector.Detect(text)
}

// Detect returns the highest priority bank whose indicator occurs in text,
// or BankUnknown.
func (d *Detector) Detect(text string) model.BankType {
	hits := d.matcher.MatchThreadSafe([]byte(normalizeText(text)))
	if len(hits) == 0 {
		return model.BankUnknown
	}

	found := make(map[model.BankType]bool, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(d.banks) {
			found[d.banks[idx]] = true
		}
	}
	for _, bank := range bankPriority {
		if found[bank] {
			return bank
		}
	}
	return model.BankUnknown
}

// ResolveBank combines the caller-declared institution name with the bank
// detected in the text. A recognizable declared name wins.
func (d *Detector) ResolveBank(declared, text string) model.BankType {
	if declared != "" {
		if bank := d.Detect(declared); bank != model.BankUnknown {
			return bank
		}
	}
	return d.Detect(text)
}

// ResolveBank resolves using the default detector.
func ResolveBank(declared, text string) model.BankType {
	return defaultDetector.ResolveBank(declared, text)
}

// SelectStrategy maps (bank, account type, statement type) to a parsing
// strategy. Anything without an explicit rule uses the generic strategy.
func SelectStrategy(bank model.BankType, accountType model.AccountType, statementType model.StatementType) strategy.Key {
	// Transaction history exports are flat activity lists, not statement layouts.
	if statementType == model.StatementTransactionHistory {
		return strategy.KeyGeneric
	}

	switch bank {
	case model.BankTD:
		switch accountType {
		case model.AccountChecking, model.AccountSavings:
			return strategy.KeyTDChecking
		case model.AccountCreditCard, model.AccountCredit:
			return strategy.KeyTDCreditCard
		}
	case model.BankAlly:
		switch accountType {
		case model.AccountSavings, model.AccountChecking:
			return strategy.KeyAllySavings
		}
	case model.BankChase:
		switch accountType {
		case model.AccountCreditCard, model.AccountCredit:
			return strategy.KeyChaseCreditCard
		}
	case model.BankWellsFargo:
		switch accountType {
		case model.AccountChecking, model.AccountSavings:
			return strategy.KeyWellsFargoChecking
		}
	}
	return strategy.KeyGeneric
}

// normalizeText lower-cases text, turns every run of non alphanumerics into a
// single space and pads both ends.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
