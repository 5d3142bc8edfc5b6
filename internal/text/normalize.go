package text

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s case-folded for caseless matching
func Fold(s string) string {
	// Casers keep state, so one per call.
	return cases.Fold().String(s)
}

// StripDiacritics removes combining marks: "příliš" becomes "prilis".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// HasDiacritics reports whether s contains any letter carrying a combining mark
func HasDiacritics(s string) bool {
	return StripDiacritics(s) != norm.NFC.String(s)
}

// Key normalizes a word for dictionary lookups: folded and without diacritics
func Key(word string) string {
	return StripDiacritics(Fold(word))
}
