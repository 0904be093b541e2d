package strategy

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

// cardLayout describes where a card issuer prints its transaction table.
type cardLayout struct {
	name string
	// starts open the table when a line contains one of them (lower case).
	starts []string
	// ends close the table when a line starts with one of them (upper case).
	ends []string
	// sections are sub-headings inside the table that fix the direction of
	// unsigned amounts below them.
	sections map[string]model.Direction
}

var (
	tdCardLayout = cardLayout{
		name:   "td_credit_card",
		starts: []string{"transactions", "trans date", "transaction date"},
		ends:   []string{"TOTAL NEW BALANCE", "INTEREST CHARGE CALCULATION", "FEES CHARGED", "TOTAL INTEREST"},
		sections: map[string]model.Direction{
			"payments":                  model.DirectionIncome,
			"payments and credits":      model.DirectionIncome,
			"purchases":                 model.DirectionExpense,
			"purchases and adjustments": model.DirectionExpense,
		},
	}

	chaseCardLayout = cardLayout{
		name:   "chase_credit_card",
		starts: []string{"account activity"},
		ends:   []string{"TOTALS YEAR-TO-DATE", "YEAR-TO-DATE TOTALS", "INTEREST CHARGES"},
		sections: map[string]model.Direction{
			"payments and other credits": model.DirectionIncome,
			"purchase":                   model.DirectionExpense,
			"purchases":                  model.DirectionExpense,
			"cash advances":              model.DirectionExpense,
			"balance transfers":          model.DirectionExpense,
			"fees charged":               model.DirectionExpense,
			"interest charged":           model.DirectionExpense,
		},
	}
)

var (
	cardInlineRe = regexp.MustCompile(`(?i)^(` + datePattern + `)\s+(?:(` + datePattern + `)\s+)?(?:(\d[A-Z0-9]{9,})\s+)?(.+?)\s+(` + amountPattern + `)$`)
	cardHeaderRe = regexp.MustCompile(`(?i)\bdate\b.*\b(description|amount|merchant)\b`)
)

// CreditCard parses card statements. The transaction table comes either as
// one line per transaction or as repeating groups of
//
//	transaction date, post date, reference number, description lines
//
// followed by a trailing block of amounts in the same order. Groups and
// amounts are collected separately and zipped by position.
type CreditCard struct {
	layout cardLayout
	logger *slog.Logger
}

func NewTDCreditCard(logger *slog.Logger) *CreditCard {
	return &CreditCard{layout: tdCardLayout, logger: logger}
}

func NewChaseCreditCard(logger *slog.Logger) *CreditCard {
	return &CreditCard{layout: chaseCardLayout, logger: logger}
}

type cardGroup struct {
	date     time.Time
	postDate bool
	lines    []string
}

func (s *CreditCard) Parse(text string, hint model.AccountType) []model.ParsedTransaction {
	if !hint.IsCredit() {
		hint = model.AccountCreditCard
	}
	ref := referenceDate(text)

	var (
		out     []model.ParsedTransaction
		inTable bool
		section model.Direction
		groups  []*cardGroup
		amounts []parsedAmount
	)

	emit := func(date time.Time, desc string, a parsedAmount) {
		dir := section
		switch {
		case a.negative || a.credit:
			dir = model.DirectionIncome
		case dir == "":
			dir = signedDirection(a, desc, hint)
		}
		if tx, ok := newTransaction(date, desc, a.magnitude, dir, ""); ok {
			out = append(out, tx)
		}
	}

	flush := func() {
		if len(groups) == 0 && len(amounts) == 0 {
			return
		}
		var streams ColumnStreams
		for _, g := range groups {
			streams.PushDate(g.date)
			streams.PushDescription(strings.Join(g.lines, " "))
		}
		for _, a := range amounts {
			streams.pushAmount(a)
		}
		rows, dropped := streams.Rows()
		if dropped > 0 {
			s.logger.Debug("card groups and amounts out of step",
				slog.String("layout", s.layout.name),
				slog.Int("groups", len(groups)), slog.Int("amounts", len(amounts)))
		}
		for _, r := range rows {
			emit(r.Date, r.Description, r.Amount)
		}
		groups, amounts = nil, nil
	}

	for _, line := range splitLines(text) {
		lower := strings.ToLower(line)

		if !inTable {
			if containsFold(line, s.layout.starts) {
				inTable = true
			}
			continue
		}
		if hasPrefixFold(line, s.layout.ends) {
			flush()
			inTable = false
			section = ""
			continue
		}
		if dir, ok := s.layout.sections[strings.TrimSuffix(lower, ":")]; ok {
			flush()
			section = dir
			continue
		}
		if strings.HasPrefix(lower, "total") {
			flush()
			continue
		}
		if cardHeaderRe.MatchString(line) && !amountTail(line) {
			continue
		}

		if m := cardInlineRe.FindStringSubmatch(line); m != nil {
			date, okDate := parseDateToken(m[1], ref)
			amt, okAmt := parseAmountToken(m[5])
			if okDate && okAmt {
				emit(date, m[4], amt)
				continue
			}
		}

		var current *cardGroup
		if len(groups) > 0 {
			current = groups[len(groups)-1]
		}

		switch {
		case dateOnlyRe.MatchString(line):
			d, ok := parseDateToken(line, ref)
			if !ok {
				continue
			}
			if len(amounts) > 0 {
				// a new run of groups after an amount block
				flush()
				current = nil
			}
			if current != nil && !current.postDate && len(current.lines) == 0 {
				current.postDate = true
				continue
			}
			groups = append(groups, &cardGroup{date: d})
		case amountOnlyRe.MatchString(line):
			if a, ok := parseAmountToken(line); ok {
				amounts = append(amounts, a)
			}
		case isReference(line) && current != nil && len(current.lines) == 0:
			// reference number
		default:
			if current != nil && len(amounts) == 0 {
				current.lines = append(current.lines, line)
			}
		}
	}
	flush()

	return out
}

func amountTail(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	_, ok := parseAmountToken(fields[len(fields)-1])
	return ok
}

// isReference matches the long alphanumeric reference printed after the post
// date. It must carry digits so merchant names are not mistaken for one.
func isReference(line string) bool {
	if !referenceRe.MatchString(line) {
		return false
	}
	digits := 0
	for _, r := range line {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6
}
