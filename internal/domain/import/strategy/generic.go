package strategy

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

// lineShape is one line-level pattern the generic parser tries. Shapes are
// tried in order and the first that yields a transaction wins.
type lineShape struct {
	name   string
	re     *regexp.Regexp
	date   int // submatch index of the transaction date, 0 when the line has none
	desc   int
	amount int
}

var genericShapes = []lineShape{
	{
		name:   "date_description_amount",
		re:     regexp.MustCompile(`(?i)^(` + datePattern + `)\s+(.+?)\s+(` + amountPattern + `)(?:\s+` + amountPattern + `)?$`),
		date:   1,
		desc:   2,
		amount: 3,
	},
	{
		name:   "date_date_description_amount",
		re:     regexp.MustCompile(`(?i)^(` + datePattern + `)\s+` + datePattern + `\s+(.+?)\s+(` + amountPattern + `)(?:\s+` + amountPattern + `)?$`),
		date:   1,
		desc:   2,
		amount: 3,
	},
	{
		name:   "description_amount",
		re:     regexp.MustCompile(`(?i)^([A-Za-z].*?)\s+(` + amountPattern + `)$`),
		desc:   1,
		amount: 2,
	},
}

// Phrases that mark summary and boilerplate lines rather than activity.
var boilerplate = []string{
	"balance", "summary", "subtotal", "total", "fees charged", "total fees",
	"fee summary", "interest charged", "interest rate", "annual percentage",
	"minimum payment", "payment due", "credit limit", "available credit",
	"statement period", "account number", "page ", "continued",
	"year-to-date", "average daily", "days in billing",
}

var pageNumberRe = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)

// Generic is the fallback parser for unknown layouts.
type Generic struct {
	logger *slog.Logger
}

func NewGeneric(logger *slog.Logger) *Generic {
	return &Generic{logger: logger}
}

func (s *Generic) Parse(text string, hint model.AccountType) []model.ParsedTransaction {
	ref := referenceDate(text)

	var (
		out      []model.ParsedTransaction
		lastDate time.Time
	)
	for _, line := range splitLines(text) {
		if pageNumberRe.MatchString(line) || containsFold(line, boilerplate) {
			continue
		}
		// A line holding only a date sets the context for undated rows below.
		if dateOnlyRe.MatchString(line) {
			if d, ok := parseDateToken(line, ref); ok {
				lastDate = d
			}
			continue
		}
		if tx, ok := s.parseLine(line, ref, lastDate, hint); ok {
			out = append(out, tx)
			lastDate = tx.Date
		}
	}
	return out
}

func (s *Generic) parseLine(line string, ref, lastDate time.Time, hint model.AccountType) (model.ParsedTransaction, bool) {
	for _, shape := range genericShapes {
		m := shape.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := m[shape.desc]
		// a description opening with a date belongs to the two-date shape
		if shape.date != 0 && leadingDate.MatchString(desc) && shape.name == "date_description_amount" {
			continue
		}

		date := lastDate
		if shape.date != 0 {
			d, ok := parseDateToken(m[shape.date], ref)
			if !ok {
				continue
			}
			date = d
		}
		if date.IsZero() {
			continue
		}
		amt, ok := parseAmountToken(m[shape.amount])
		if !ok {
			continue
		}
		if tx, ok := newTransaction(date, desc, amt.magnitude, signedDirection(amt, desc, hint), ""); ok {
			return tx, true
		}
	}
	return model.ParsedTransaction{}, false
}
