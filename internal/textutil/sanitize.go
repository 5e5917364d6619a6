package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lowerCaser = cases.Lower(language.Und)

// stripMarks decomposes runes and removes combining marks so "Café" folds to "Cafe".
func stripMarks(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// SanitizeTitle converts a scene title into a filename token. The title is
// lower-cased, diacritics are stripped, and every rune outside [a-z0-9] becomes
// an underscore. Underscores are not collapsed, so distinct titles of equal
// length stay distinct.
func SanitizeTitle(title string) string {
	folded := lowerCaser.String(stripMarks(strings.TrimSpace(title)))
	if folded == "" {
		return "untitled"
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FoldKey normalizes a title for case-insensitive comparison, as used by the
// heading denylist.
func FoldKey(title string) string {
	return cases.Fold().String(strings.Join(strings.Fields(title), " "))
}
