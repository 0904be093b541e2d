package strategy

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

var (
	wfLineRe    = regexp.MustCompile(`^(\d{1,2}/\d{1,2})\s+(.+)$`)
	wfAmountsRe = regexp.MustCompile(`(?i)` + amountPattern)
)

var wfStops = []string{"ENDING BALANCE ON", "TOTALS", "THE ENDING DAILY BALANCE", "MONTHLY SERVICE FEE SUMMARY"}

const (
	wfDepositHeading  = "deposits/"
	wfWithdrawHeading = "withdrawals/"
	// headings closer than this were joined by the extractor, not laid out
	wfMinHeadingGap = 2
	// how far a right-aligned amount may end from its heading
	wfColumnSlack = 4
)

// WellsFargoChecking parses the "Transaction history" table. A row holds the
// transaction amount followed by an optional ending daily balance; wrapped
// descriptions continue on the following undated lines. When the text keeps
// its column layout, an amount ending under the Deposits or Withdrawals
// heading takes that direction. Single-spaced text falls back to sign and
// keyword rules.
type WellsFargoChecking struct {
	logger *slog.Logger
}

func NewWellsFargoChecking(logger *slog.Logger) *WellsFargoChecking {
	return &WellsFargoChecking{logger: logger}
}

type wfRow struct {
	tx        model.ParsedTransaction
	amount    parsedAmount
	end       int
	continued int
}

// wfColumns holds where the amount headings end on the header line.
type wfColumns struct {
	depositEnd  int
	withdrawEnd int
}

func wfHeaderColumns(raw string) (wfColumns, bool) {
	lower := strings.ToLower(raw)
	d := strings.Index(lower, wfDepositHeading)
	w := strings.Index(lower, wfWithdrawHeading)
	if d < 0 || w < 0 || w-(d+len(wfDepositHeading)) < wfMinHeadingGap {
		return wfColumns{}, false
	}
	return wfColumns{depositEnd: d + len(wfDepositHeading), withdrawEnd: w + len(wfWithdrawHeading)}, true
}

func (s *WellsFargoChecking) Parse(text string, hint model.AccountType) []model.ParsedTransaction {
	ref := referenceDate(text)

	var rows []*wfRow
	inHistory := false
	var cols wfColumns
	hasCols := false

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if strings.Contains(lower, "transaction history") {
			inHistory = true
			continue
		}
		if !inHistory {
			continue
		}
		if strings.Contains(lower, wfDepositHeading) || strings.Contains(lower, wfWithdrawHeading) {
			cols, hasCols = wfHeaderColumns(raw)
			continue
		}
		if hasPrefixFold(line, wfStops) {
			inHistory = false
			continue
		}

		m := wfLineRe.FindStringSubmatch(line)
		if m == nil {
			// continuation of the previous description
			if n := len(rows); n > 0 && rows[n-1].continued < maxContinuationLines && !amountTail(line) {
				rows[n-1].tx.Description += " " + line
				rows[n-1].continued++
			}
			continue
		}

		date, ok := parseDateToken(m[1], ref)
		if !ok {
			continue
		}
		locs := wfAmountsRe.FindAllStringIndex(m[2], -1)
		if len(locs) == 0 {
			continue
		}
		// amount, then an optional ending daily balance
		first := locs[0]
		if len(locs) > 2 {
			first = locs[len(locs)-2]
		}
		amt, ok := parseAmountToken(m[2][first[0]:first[1]])
		if !ok {
			continue
		}
		desc := strings.TrimSpace(m[2][:first[0]])
		rows = append(rows, &wfRow{
			tx:     model.ParsedTransaction{Date: date, Description: desc},
			amount: amt,
			end:    strings.Index(raw, m[2]) + first[1],
		})
	}

	out := make([]model.ParsedTransaction, 0, len(rows))
	for _, r := range rows {
		dir := signedDirection(r.amount, r.tx.Description, hint)
		if hasCols {
			dir = wfDirection(r, cols, dir)
		}
		if tx, ok := newTransaction(r.tx.Date, r.tx.Description, r.amount.magnitude, dir, ""); ok {
			out = append(out, tx)
		}
	}
	return out
}

func wfDirection(r *wfRow, cols wfColumns, fallback model.Direction) model.Direction {
	if r.amount.negative || r.amount.credit {
		return fallback
	}
	switch {
	case abs(r.end-cols.depositEnd) <= wfColumnSlack:
		return model.DirectionIncome
	case abs(r.end-cols.withdrawEnd) <= wfColumnSlack:
		return model.DirectionExpense
	}
	return fallback
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
