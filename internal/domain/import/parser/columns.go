package parser

import "strings"

// ColumnMapping maps semantic fields to column indices; -1 means absent.
type ColumnMapping struct {
	Date        int
	Description int
	Amount      int
	Debit       int
	Credit      int
}

// Usable reports whether rows can yield transactions with this mapping.
func (m ColumnMapping) Usable() bool {
	return m.Date >= 0 && m.Description >= 0 && (m.Amount >= 0 || m.Debit >= 0 || m.Credit >= 0)
}

// IsDoubleEntry reports separate debit/credit columns without a single amount.
func (m ColumnMapping) IsDoubleEntry() bool {
	return m.Amount < 0 && (m.Debit >= 0 || m.Credit >= 0)
}

type field int

const (
	fieldDate field = iota
	fieldDescription
	fieldDebit
	fieldCredit
	fieldAmount
)

// Synonyms are lower-case. Debit and credit come before amount so that
// "Debit Amount" is not taken as a single signed column.
var headerSynonyms = []struct {
	field    field
	synonyms []string
}{
	{fieldDate, []string{"date", "transaction date", "trans date", "trans. date", "posted date", "posting date", "post date", "value date", "booking date"}},
	{fieldDescription, []string{"description", "memo", "details", "payee", "merchant", "name", "narrative", "transaction description", "transaction details"}},
	{fieldDebit, []string{"debit", "debits", "debit amount", "withdrawal", "withdrawals", "withdrawal amount", "money out", "paid out"}},
	{fieldCredit, []string{"credit", "credits", "credit amount", "deposit", "deposits", "deposit amount", "money in", "paid in"}},
	{fieldAmount, []string{"amount", "transaction amount", "amt", "value"}},
}

// MapHeaders matches header tokens against the synonym lists. Exact matches
// are taken first; a second pass accepts headers that contain a synonym.
func MapHeaders(headers []string) ColumnMapping {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := map[field]int{}
	used := map[int]bool{}

	assign := func(match func(h, syn string) bool) {
		for _, entry := range headerSynonyms {
			if _, ok := cols[entry.field]; ok {
				continue
			}
		search:
			for _, syn := range entry.synonyms {
				for i, h := range lower {
					if used[i] || h == "" {
						continue
					}
					if match(h, syn) {
						cols[entry.field] = i
						used[i] = true
						break search
					}
				}
			}
		}
	}

	assign(func(h, syn string) bool { return h == syn })
	assign(func(h, syn string) bool { return strings.Contains(h, syn) })

	idx := func(f field) int {
		if i, ok := cols[f]; ok {
			return i
		}
		return -1
	}

	return ColumnMapping{
		Date:        idx(fieldDate),
		Description: idx(fieldDescription),
		Amount:      idx(fieldAmount),
		Debit:       idx(fieldDebit),
		Credit:      idx(fieldCredit),
	}
}
