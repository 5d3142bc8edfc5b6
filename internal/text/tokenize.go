package text

import (
	"strings"
	"unicode"
)

// DefaultDelimiters separates tokens when no delimiter set is given
const DefaultDelimiters = " \t\n"

// Tokenize splits s on any rune in delimiters. Empty tokens are dropped.
// An empty delimiter set means DefaultDelimiters.
func Tokenize(s, delimiters string) []string {
	if delimiters == "" {
		delimiters = DefaultDelimiters
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})
}

// Words tokenizes s on whitespace, trims surrounding punctuation and
// case-folds every token. Tokens that are only punctuation are dropped.
func Words(s string) []string {
	raw := strings.FieldsFunc(s, unicode.IsSpace)
	words := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok == "" {
			continue
		}
		words = append(words, Fold(tok))
	}
	return words
}
