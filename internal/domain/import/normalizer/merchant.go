// Package normalizer resolves transaction direction and ledger sign, and
// normalizes raw statement fields (dates, amounts, descriptions, merchants).
package normalizer

import (
	"regexp"
	"strings"
)

// MerchantInfo contains normalized merchant information
type MerchantInfo struct {
	OriginalName   string `json:"original_name"`
	NormalizedName string `json:"normalized_name"`
	Category       string `json:"category,omitempty"`
}

// MerchantPattern maps a raw statement fragment to a display merchant
type MerchantPattern struct {
	Pattern  *regexp.Regexp
	Name     string
	Category string
}

// MerchantSanitizer turns noisy bank descriptions into merchant names before
// they are sent to categorization.
type MerchantSanitizer struct {
	patterns []MerchantPattern
}

func NewMerchantSanitizer() *MerchantSanitizer {
	return &MerchantSanitizer{
		patterns: defaultMerchantPatterns(),
	}
}

// Sanitize normalizes a raw description into a merchant name
func (s *MerchantSanitizer) Sanitize(raw string) MerchantInfo {
	result := MerchantInfo{
		OriginalName: raw,
	}

	cleaned := cleanMerchantName(raw)
	upper := strings.ToUpper(cleaned)
	for _, p := range s.patterns {
		if p.Pattern.MatchString(upper) {
			result.NormalizedName = p.Name
			result.Category = p.Category
			return result
		}
	}

	result.NormalizedName = titleCase(cleaned)
	return result
}

// AddPattern registers an extra merchant pattern
func (s *MerchantSanitizer) AddPattern(pattern, name, category string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, MerchantPattern{Pattern: re, Name: name, Category: category})
	return nil
}

var (
	merchantPrefixes = []string{
		"DEBIT CARD PURCHASE ", "POS PURCHASE ", "POS DEBIT ", "CHECKCARD ",
		"PURCHASE AUTHORIZED ON ", "RECURRING PAYMENT ", "ACH DEBIT ", "ACH CREDIT ",
		"VISA DDA PUR ", "DBT CRD ", "PURCHASE ", "PAYMENT ", "POS ",
	}
	trailingRef  = regexp.MustCompile(`\s+[#*]?\d{4,}$`)
	trailingDate = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/?$`)
	cardSuffix   = regexp.MustCompile(`(?i)\s+CARD\s*\d{4}$`)
)

// cleanMerchantName removes card prefixes, reference numbers and dates
func cleanMerchantName(raw string) string {
	result := strings.TrimSpace(raw)

	upper := strings.ToUpper(result)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	// Strip repeatedly: "AMAZON 12/01 CARD 1234" has several trailing parts.
	for i := 0; i < 3; i++ {
		before := result
		result = cardSuffix.ReplaceAllString(result, "")
		result = trailingRef.ReplaceAllString(result, "")
		result = trailingDate.ReplaceAllString(result, "")
		result = strings.TrimSpace(result)
		if result == before {
			break
		}
	}

	return strings.Join(strings.Fields(result), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

func defaultMerchantPatterns() []MerchantPattern {
	return []MerchantPattern{
		// Groceries
		{regexp.MustCompile(`WHOLE\s*FOODS|WHOLEFDS`), "Whole Foods", "Groceries"},
		{regexp.MustCompile(`TRADER\s*JOE`), "Trader Joe's", "Groceries"},
		{regexp.MustCompile(`SHOPRITE`), "ShopRite", "Groceries"},
		{regexp.MustCompile(`STOP\s*&?\s*SHOP`), "Stop & Shop", "Groceries"},
		{regexp.MustCompile(`KROGER`), "Kroger", "Groceries"},
		{regexp.MustCompile(`SAFEWAY`), "Safeway", "Groceries"},
		{regexp.MustCompile(`COSTCO`), "Costco", "Groceries"},

		// Food & drink; delivery must match before plain UBER
		{regexp.MustCompile(`STARBUCKS`), "Starbucks", "Food & Drink"},
		{regexp.MustCompile(`MC\s*DONALD`), "McDonald's", "Food & Drink"},
		{regexp.MustCompile(`CHIPOTLE`), "Chipotle", "Food & Drink"},
		{regexp.MustCompile(`DUNKIN`), "Dunkin'", "Food & Drink"},
		{regexp.MustCompile(`UBER\s*EATS`), "Uber Eats", "Food & Drink"},
		{regexp.MustCompile(`DOORDASH`), "DoorDash", "Food & Drink"},
		{regexp.MustCompile(`GRUBHUB`), "Grubhub", "Food & Drink"},

		// Transport
		{regexp.MustCompile(`\bUBER\b`), "Uber", "Transport"},
		{regexp.MustCompile(`\bLYFT\b`), "Lyft", "Transport"},
		{regexp.MustCompile(`E-?Z\s*PASS`), "E-ZPass", "Transport"},
		{regexp.MustCompile(`\bSHELL\b`), "Shell", "Transport"},
		{regexp.MustCompile(`EXXON|MOBIL\b`), "ExxonMobil", "Transport"},

		// Shopping
		{regexp.MustCompile(`AMAZON|AMZN`), "Amazon", "Shopping"},
		{regexp.MustCompile(`WAL-?MART|WM SUPERCENTER`), "Walmart", "Shopping"},
		{regexp.MustCompile(`\bTARGET\b`), "Target", "Shopping"},
		{regexp.MustCompile(`HOME\s*DEPOT`), "The Home Depot", "Shopping"},
		{regexp.MustCompile(`BEST\s*BUY`), "Best Buy", "Shopping"},

		// Entertainment
		{regexp.MustCompile(`NETFLIX`), "Netflix", "Entertainment"},
		{regexp.MustCompile(`SPOTIFY`), "Spotify", "Entertainment"},
		{regexp.MustCompile(`HULU`), "Hulu", "Entertainment"},
		{regexp.MustCompile(`DISNEY\s*\+|DISNEYPLUS`), "Disney+", "Entertainment"},
		{regexp.MustCompile(`APPLE\.COM|APPLE\s*MUSIC`), "Apple", "Entertainment"},

		// Utilities
		{regexp.MustCompile(`VERIZON`), "Verizon", "Utilities"},
		{regexp.MustCompile(`COMCAST|XFINITY`), "Xfinity", "Utilities"},
		{regexp.MustCompile(`CON\s*ED`), "Con Edison", "Utilities"},
		{regexp.MustCompile(`PSE&G|PSEG`), "PSE&G", "Utilities"},

		// Finance
		{regexp.MustCompile(`PAYPAL`), "PayPal", "Finance"},
		{regexp.MustCompile(`VENMO`), "Venmo", "Finance"},
		{regexp.MustCompile(`ZELLE`), "Zelle", "Finance"},
	}
}
