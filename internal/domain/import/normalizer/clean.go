package normalizer

import (
	"strings"
	"unicode"
)

// MaxDescriptionLength bounds stored descriptions, in runes.
const MaxDescriptionLength = 255

const safePunctuation = "&'.,#/-*()@:+$%"

// CleanDescription strips characters outside the safe set, collapses
// whitespace and clips the result to MaxDescriptionLength runes.
func CleanDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		case strings.ContainsRune(safePunctuation, r):
			return r
		}
		return -1
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > MaxDescriptionLength {
		s = strings.TrimSpace(string(runes[:MaxDescriptionLength]))
	}
	return s
}
