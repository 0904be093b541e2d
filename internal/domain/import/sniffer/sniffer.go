// Package sniffer inspects raw statement text: it detects CSV delimiters,
// identifies the issuing bank and picks the line parsing strategy.
package sniffer

import (
	"strings"
)

var delimiters = []rune{';', '\t', ',', '|'}

// DetectDelimiter returns the delimiter that splits the header line into the
// most columns. Comma wins when nothing matches.
func DetectDelimiter(line string) rune {
	d, count := detectDelimiter(cleanLine(line))
	if count == 0 {
		return ','
	}
	return d
}

func detectDelimiter(line string) (rune, int) {
	best := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best, bestCount
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, "\uFEFF")
	return strings.TrimSpace(line)
}
