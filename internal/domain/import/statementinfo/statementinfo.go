// Package statementinfo recovers statement level facts from extracted text:
// statement date, period and beginning/ending balances, plus the account
// sub-tables of multi-account statements.
package statementinfo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
)

// Source records which rule produced a field.
type Source string

const (
	SourceNone         Source = ""
	SourceLabel        Source = "label"
	SourceSummary      Source = "account_summary"
	SourceLayout       Source = "layout"
	SourceTransactions Source = "transactions"
)

// Info is the best-effort statement summary. Nil fields were not found.
type Info struct {
	StatementDate    *time.Time
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	BeginningBalance *decimal.Decimal
	EndingBalance    *decimal.Decimal

	StatementDateSource Source
	PeriodSource        Source
	BeginningSource     Source
	EndingSource        Source

	NeedsReview   bool
	ReviewReasons []string
}

func (i *Info) flag(reason string) {
	i.NeedsReview = true
	i.ReviewReasons = append(i.ReviewReasons, reason)
}

const (
	fullDate = `(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`
	money    = `\(?-?\$?\s?-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?`
	rangeSep = `\s*(?:-|–|to|through|thru)\s*`

	// "on January 31, 2024" or "as of 1/31"
	dateQualifier = `(?:\s+(?:on|as of)\s+(?:` + fullDate + `|\S+))?`

	beginningLabel = `(?:beginning|opening|previous|starting)\s+balance`
	endingLabel    = `(?:ending|closing|new)\s+balance`
)

var (
	statementDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)statement\s+(?:closing\s+)?date\s*:?\s*(` + fullDate + `)`),
		regexp.MustCompile(`(?i)closing\s+date\s*:?\s*(` + fullDate + `)`),
	}

	periodRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)statement\s+period\s*:?\s*(` + fullDate + `)` + rangeSep + `(` + fullDate + `)`),
		regexp.MustCompile(`(?i)(?:for the period|period covered|billing period|opening/closing date|statement from)\s*:?\s*(` + fullDate + `)` + rangeSep + `(` + fullDate + `)`),
		regexp.MustCompile(`(?i)\b(` + fullDate + `)` + rangeSep + `(` + fullDate + `)\b`),
	}

	beginningSameLine = regexp.MustCompile(`(?i)\b` + beginningLabel + `\b` + dateQualifier + `\s*:?\s*(` + money + `)`)
	endingSameLine    = regexp.MustCompile(`(?i)\b` + endingLabel + `\b` + dateQualifier + `\s*:?\s*(` + money + `)`)
	beginningAlone    = regexp.MustCompile(`(?i)^` + beginningLabel + `\s*:?$`)
	endingAlone       = regexp.MustCompile(`(?i)^` + endingLabel + `\s*:?$`)
	amountOnly        = regexp.MustCompile(`^` + money + `$`)

	summaryStart = regexp.MustCompile(`(?i)^account\s+summary\b`)
	// Headings that end the account summary block.
	sectionBoundary = regexp.MustCompile(`(?i)^(daily account activity|account activity|transaction history|transactions|activity|electronic deposits|deposits|other credits|checks paid|interest summary|daily balance summary)\s*:?$`)
)

// layoutWindow bounds how far below a lone label amounts are collected.
const layoutWindow = 8

// Extract applies the layered rules; the first rule that yields a value wins
// per field. transactions feed the period fallback.
func Extract(text string, transactions []model.ParsedTransaction) Info {
	var info Info
	lines := splitLines(text)

	if d, ok := firstDate(text, statementDateRes); ok {
		info.StatementDate, info.StatementDateSource = &d, SourceLabel
	}

	if start, end, ok := firstPeriod(text); ok {
		info.PeriodStart, info.PeriodEnd, info.PeriodSource = &start, &end, SourceLabel
	}

	info.BeginningBalance, info.BeginningSource = balance(&info, lines, balanceRule{
		name: "beginning", sameLine: beginningSameLine, alone: beginningAlone, position: 0,
	})
	info.EndingBalance, info.EndingSource = balance(&info, lines, balanceRule{
		name: "ending", sameLine: endingSameLine, alone: endingAlone, position: 1,
	})

	if info.PeriodStart == nil && len(transactions) > 0 {
		start, end := transactions[0].Date, transactions[0].Date
		for _, tx := range transactions[1:] {
			if tx.Date.Before(start) {
				start = tx.Date
			}
			if tx.Date.After(end) {
				end = tx.Date
			}
		}
		info.PeriodStart, info.PeriodEnd, info.PeriodSource = &start, &end, SourceTransactions
	}

	return info
}

func firstDate(text string, res []*regexp.Regexp) (time.Time, bool) {
	for _, re := range res {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if d, err := parseDate(m[1]); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func firstPeriod(text string) (time.Time, time.Time, bool) {
	for _, re := range periodRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			start, err := parseDate(m[1])
			if err != nil {
				continue
			}
			end, err := parseDate(m[2])
			if err != nil || end.Before(start) {
				continue
			}
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}

func parseDate(s string) (time.Time, error) {
	return normalizer.ParseFlexibleDate(strings.ReplaceAll(s, ".", ""))
}

// balanceRule configures the balance layers for one label. position picks
// which amount of a run below a lone label is the balance.
type balanceRule struct {
	name     string
	sameLine *regexp.Regexp
	alone    *regexp.Regexp
	position int
}

// balance runs the three balance layers for one label.
func balance(info *Info, lines []string, rule balanceRule) (*decimal.Decimal, Source) {
	sameLine, alone := rule.sameLine, rule.alone
	// 1. label and amount on one line
	for _, l := range lines {
		if m := sameLine.FindStringSubmatch(l); m != nil {
			if v, ok := parseMoney(m[1]); ok {
				return &v, SourceLabel
			}
		}
	}

	// 2. inside the account summary, a lone label directly followed by a
	// single amount line
	summary := summaryBlock(lines)
	for i, l := range summary {
		if !alone.MatchString(l) || i+1 >= len(summary) {
			continue
		}
		next := summary[i+1]
		following := ""
		if i+2 < len(summary) {
			following = summary[i+2]
		}
		if amountOnly.MatchString(next) && !amountOnly.MatchString(following) {
			if v, ok := parseMoney(next); ok {
				return &v, SourceSummary
			}
		}
	}

	// 3. lone label followed by a run of amounts, picked by position. The
	// result is always flagged since the position comes from observed layouts.
	for i, l := range lines {
		if !alone.MatchString(l) {
			continue
		}
		var amounts []decimal.Decimal
		for j := i + 1; j < len(lines) && j <= i+layoutWindow && len(amounts) <= rule.position; j++ {
			if amountOnly.MatchString(lines[j]) {
				if v, ok := parseMoney(lines[j]); ok {
					amounts = append(amounts, v)
				}
			}
		}
		switch {
		case len(amounts) == 0:
			continue
		case len(amounts) > rule.position:
			info.flag(fmt.Sprintf("%s balance taken from amount %d after its label", rule.name, rule.position+1))
			return &amounts[rule.position], SourceLayout
		default:
			info.flag(fmt.Sprintf("%s balance taken from the only amount after its label", rule.name))
			return &amounts[len(amounts)-1], SourceLayout
		}
	}
	return nil, SourceNone
}

// summaryBlock returns the lines from "Account Summary" up to the next
// section heading.
func summaryBlock(lines []string) []string {
	start := -1
	for i, l := range lines {
		if summaryStart.MatchString(l) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if sectionBoundary.MatchString(lines[i]) {
			end = i
			break
		}
	}
	return lines[start:end]
}

func parseMoney(s string) (decimal.Decimal, bool) {
	v, err := normalizer.ParseAmountFormat(s, false)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
