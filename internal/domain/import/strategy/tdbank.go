package strategy

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

// tdSection is a named activity block on a TD Bank checking statement.
type tdSection struct {
	title     string
	direction model.Direction
}

var tdSections = []tdSection{
	{"electronic deposits", model.DirectionIncome},
	{"other credits", model.DirectionIncome},
	{"deposits", model.DirectionIncome},
	{"checks paid", model.DirectionExpense},
	{"electronic payments", model.DirectionExpense},
	{"other withdrawals", model.DirectionExpense},
	{"service charges", model.DirectionExpense},
}

// Lines that end the current section without opening another.
var tdSectionEnds = []string{
	"SUBTOTAL", "TOTAL ", "DAILY BALANCE SUMMARY", "ACCOUNT SUMMARY",
	"INTEREST SUMMARY", "DAILY ACCOUNT ACTIVITY",
}

// Transaction codes that always open a new description.
var tdTransactionCodes = []string{
	"ACH", "POS", "DEBIT", "DBCRD", "CCD", "PPD", "WEB", "ELECTRONIC PMT",
	"ELECTRONIC DEP", "TRANSFER", "ONLINE TRANSFER", "TD ZELLE", "ZELLE",
	"ATM", "VISA DDA", "MAINTENANCE FEE", "CHECK", "WIRE", "INTEREST",
}

var (
	tdInlineRe     = regexp.MustCompile(`(?i)^(` + datePattern + `)\s+(.+?)\s+(` + amountPattern + `)$`)
	tdColumnHeader = regexp.MustCompile(`(?i)^(posting date|date)\b.*\b(description|amount|check)`)
	digitsOnlyRe   = regexp.MustCompile(`^\d+$`)
)

// TDChecking parses TD Bank checking statements. Inside each named section
// the text either carries full lines ("01/02 CCD DEPOSIT 1,250.00") or, more
// often after PDF extraction, separate runs of dates, descriptions and
// amounts that are reassembled with ColumnStreams.
type TDChecking struct {
	logger *slog.Logger
}

func NewTDChecking(logger *slog.Logger) *TDChecking {
	return &TDChecking{logger: logger}
}

func (s *TDChecking) Parse(text string, hint model.AccountType) []model.ParsedTransaction {
	ref := referenceDate(text)
	var (
		out     []model.ParsedTransaction
		current *tdSection
		streams ColumnStreams
	)

	flush := func() {
		if current == nil || streams.Empty() {
			streams.Reset()
			return
		}
		streams.RegroupDescriptions(startsTDTransaction)
		rows, dropped := streams.Rows()
		if dropped > 0 {
			d, desc, a := streams.Counts()
			s.logger.Debug("td section streams out of step",
				slog.String("section", current.title),
				slog.Int("dates", d), slog.Int("descriptions", desc), slog.Int("amounts", a))
		}
		for _, r := range rows {
			if tx, ok := newTransaction(r.Date, tdDescription(current, r.Description), r.Amount.magnitude, current.direction, ""); ok {
				out = append(out, tx)
			}
		}
		streams.Reset()
	}

	for _, line := range splitLines(text) {
		if sec := matchTDSection(line); sec != nil {
			flush()
			current = sec
			continue
		}
		if current == nil {
			continue
		}
		if hasPrefixFold(line, tdSectionEnds) {
			flush()
			current = nil
			continue
		}
		if tdColumnHeader.MatchString(line) {
			continue
		}

		if m := tdInlineRe.FindStringSubmatch(line); m != nil {
			date, okDate := parseDateToken(m[1], ref)
			amt, okAmt := parseAmountToken(m[3])
			if okDate && okAmt {
				if tx, ok := newTransaction(date, tdDescription(current, m[2]), amt.magnitude, current.direction, ""); ok {
					out = append(out, tx)
				}
				continue
			}
		}

		switch {
		case dateOnlyRe.MatchString(line):
			if d, ok := parseDateToken(line, ref); ok {
				streams.PushDate(d)
			}
		case amountOnlyRe.MatchString(line):
			if a, ok := parseAmountToken(line); ok {
				streams.pushAmount(a)
			}
		default:
			streams.PushDescription(line)
		}
	}
	flush()

	return out
}

func matchTDSection(line string) *tdSection {
	lower := strings.ToLower(strings.TrimSpace(line))
	lower = strings.TrimSuffix(lower, ":")
	lower = strings.TrimSuffix(lower, " (continued)")
	for i := range tdSections {
		if lower == tdSections[i].title {
			return &tdSections[i]
		}
	}
	return nil
}

func startsTDTransaction(line string) bool {
	return hasPrefixFold(line, tdTransactionCodes)
}

// tdDescription labels bare check numbers from the Checks Paid block.
func tdDescription(sec *tdSection, desc string) string {
	desc = strings.TrimSpace(desc)
	if sec.title == "checks paid" && digitsOnlyRe.MatchString(desc) {
		return "Check " + desc
	}
	return desc
}
