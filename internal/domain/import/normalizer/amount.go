package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount   = errors.New("empty amount")
	ErrInvalidAmount = errors.New("invalid amount")
)

var currencyTokens = []string{"R$", "US$", "USD", "EUR", "GBP", "CAD", "$", "€", "£"}

// ParseAmount parses a signed money string. It understands currency symbols,
// thousands separators, a leading or trailing minus and accounting-style
// parentheses. The decimal separator is inferred from the string itself.
func ParseAmount(s string) (decimal.Decimal, error) {
	return parseAmount(s, isEuropeanAmount(s))
}

// ParseAmountFormat parses like ParseAmount with an explicit separator style.
func ParseAmountFormat(s string, european bool) (decimal.Decimal, error) {
	return parseAmount(s, european)
}

func parseAmount(s string, european bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// isEuropeanAmount reports whether the comma is the decimal separator,
// e.g. "1.234,56" or "4,50".
func isEuropeanAmount(s string) bool {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		return comma > dot
	case comma >= 0:
		digits := 0
		for _, r := range s[comma+1:] {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		return strings.Count(s, ",") == 1 && digits > 0 && digits <= 2
	}
	return false
}
