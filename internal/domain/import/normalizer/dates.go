package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	minYear = 1900
	maxYear = 2100
)

var ErrInvalidDate = errors.New("invalid date")

// Layouts are tried in order. Month-first wins over day-first for ambiguous
// slash dates because the supported banks are US institutions.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"1-2-2006",
	"1-2-06",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"2/1/2006",
	"02.01.2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
}

// ParseFlexibleDate parses a statement date in any of the supported layouts.
// Dates outside 1900-2100 are rejected so a stray number never becomes an
// absurd date.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	s = strings.Join(strings.Fields(s), " ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !ValidYear(t.Year()) {
				continue
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseShortDate parses a yearless "MM/DD" token, taking the year from ref.
// A month after ref's month is assumed to belong to the previous year, which
// covers statements that straddle new year.
func ParseShortDate(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("1/2", s)
	if err != nil {
		t, err = time.Parse("1-2", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
	}
	year := ref.Year()
	if ref.IsZero() {
		year = time.Now().Year()
	} else if t.Month() > ref.Month() {
		year--
	}
	d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if d.Month() != t.Month() {
		// Feb 29 on a non leap year
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ValidYear reports whether y is inside the accepted statement year range.
func ValidYear(y int) bool {
	return y >= minYear && y <= maxYear
}
