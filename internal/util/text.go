package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Fold upper-cases the input, strips diacritics and collapses whitespace, so
// "Canindé  de São Francisco" and "CANINDE DE SAO FRANCISCO" compare equal.
func Fold(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, input)
	if err != nil {
		s = input
	}
	s = strings.ToUpper(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
