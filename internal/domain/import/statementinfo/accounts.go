package statementinfo

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

var (
	accountLineRe = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z ]*\b(?:savings|checking|money market|certificate|cd|account))\b[^\d$]*?(?:\.{2,}|x{2,}|\*{2,}|#|ending in\s*)(\d{4})\b(?:\s+(` + money + `))?(?:\s+(` + money + `))?`)
	datedLineRe   = regexp.MustCompile(`^\d{1,2}/\d{1,2}`)
)

// ExtractAccounts lists the accounts a statement covers, keyed by the last
// four digits of their number. Summary rows carrying two amounts give the
// beginning and ending balances; a row with a single amount is read as the
// ending balance.
func ExtractAccounts(text string) []model.AccountInfo {
	var accounts []model.AccountInfo
	index := map[string]int{}

	for _, line := range splitLines(text) {
		if datedLineRe.MatchString(line) {
			continue
		}
		m := accountLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number := m[2]
		i, seen := index[number]
		if !seen {
			accounts = append(accounts, model.AccountInfo{
				Name:          strings.TrimSpace(m[1]),
				AccountNumber: number,
			})
			i = len(accounts) - 1
			index[number] = i
		}

		acc := &accounts[i]
		switch {
		case m[3] != "" && m[4] != "":
			if begin, ok := parseMoney(m[3]); ok && acc.BeginningBalance == nil {
				acc.BeginningBalance = &begin
			}
			if end, ok := parseMoney(m[4]); ok && acc.EndingBalance == nil {
				acc.EndingBalance = &end
			}
		case m[3] != "":
			if end, ok := parseMoney(m[3]); ok && acc.EndingBalance == nil {
				acc.EndingBalance = &end
			}
		}
	}
	return accounts
}
