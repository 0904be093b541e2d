package strategy

import (
	"strings"
	"time"
)

// maxContinuationLines caps how many extra lines one description absorbs.
const maxContinuationLines = 2

// ColumnStreams reassembles transactions from layouts that print dates,
// descriptions and amounts as separate runs. Values are pushed in reading
// order and zipped back by position.
type ColumnStreams struct {
	dates        []time.Time
	descriptions []string
	amounts      []parsedAmount
}

// StreamRow is one zipped transaction.
type StreamRow struct {
	Date        time.Time
	Description string
	Amount      parsedAmount
}

func (c *ColumnStreams) PushDate(t time.Time)      { c.dates = append(c.dates, t) }
func (c *ColumnStreams) PushDescription(s string)  { c.descriptions = append(c.descriptions, s) }
func (c *ColumnStreams) pushAmount(a parsedAmount) { c.amounts = append(c.amounts, a) }

// AppendToDescription extends the most recent description.
func (c *ColumnStreams) AppendToDescription(s string) {
	if len(c.descriptions) == 0 {
		c.PushDescription(s)
		return
	}
	last := len(c.descriptions) - 1
	c.descriptions[last] = c.descriptions[last] + " " + s
}

// Counts returns the length of each stream.
func (c *ColumnStreams) Counts() (dates, descriptions, amounts int) {
	return len(c.dates), len(c.descriptions), len(c.amounts)
}

func (c *ColumnStreams) Empty() bool {
	return len(c.dates) == 0 && len(c.descriptions) == 0 && len(c.amounts) == 0
}

func (c *ColumnStreams) Reset() {
	c.dates = c.dates[:0]
	c.descriptions = c.descriptions[:0]
	c.amounts = c.amounts[:0]
}

// RegroupDescriptions merges raw description lines into one entry per date.
// A new entry starts when a line opens with a transaction code, when the
// current entry already absorbed maxContinuationLines, or when the remaining
// lines are only just enough to give every remaining date a description.
func (c *ColumnStreams) RegroupDescriptions(startsEntry func(string) bool) {
	c.descriptions = GroupDescriptions(c.descriptions, len(c.dates), startsEntry)
}

// GroupDescriptions is the grouping used by RegroupDescriptions. want <= 0
// disables the count constraints.
func GroupDescriptions(lines []string, want int, startsEntry func(string) bool) []string {
	groups := make([]string, 0, len(lines))
	merged := 0
	for i, line := range lines {
		remainingLines := len(lines) - i
		missing := want - len(groups)

		newEntry := len(groups) == 0
		if !newEntry {
			switch {
			case want > 0 && missing <= 0:
				newEntry = false
			case want > 0 && remainingLines <= missing:
				newEntry = true
			case startsEntry != nil && startsEntry(line):
				newEntry = true
			case merged >= maxContinuationLines:
				newEntry = true
			}
		}

		if newEntry {
			groups = append(groups, line)
			merged = 0
			continue
		}
		groups[len(groups)-1] += " " + line
		merged++
	}
	return groups
}

// Rows zips the streams by position. dropped counts values left over in the
// longer streams.
func (c *ColumnStreams) Rows() (rows []StreamRow, dropped int) {
	n := min(len(c.dates), len(c.descriptions), len(c.amounts))
	longest := max(len(c.dates), len(c.descriptions), len(c.amounts))
	rows = make([]StreamRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, StreamRow{
			Date:        c.dates[i],
			Description: strings.TrimSpace(c.descriptions[i]),
			Amount:      c.amounts[i],
		})
	}
	return rows, longest - n
}
