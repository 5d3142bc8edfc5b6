package text

import (
	"strconv"
	"strings"
)

// TokenType is the lexical class of a token
type TokenType int

const (
	TokenNumber TokenType = iota
	TokenOperator
	TokenIdentifier
)

func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	default:
		return "identifier"
	}
}

var operators = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "=": {},
	"==": {}, "!=": {}, "<": {}, ">": {}, "<=": {}, ">=": {},
}

// Token is a classified token
type Token struct {
	Text string
	Type TokenType
}

// Classify returns the lexical class of tok. Operators are matched before
// numbers so "-" alone is an operator while "-3" is a number.
func Classify(tok string) TokenType {
	if _, ok := operators[tok]; ok {
		return TokenOperator
	}
	if isNumber(tok) {
		return TokenNumber
	}
	return TokenIdentifier
}

// isNumber follows C strtod: decimal or hexadecimal, consumed in full,
// in range. Hex needs no binary exponent and digit separators are invalid.
func isNumber(tok string) bool {
	if strings.ContainsRune(tok, '_') {
		return false
	}
	if hasHexPrefix(tok) && !strings.ContainsAny(tok, "pP") {
		tok += "p0"
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

func hasHexPrefix(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Parse classifies every token in order
func Parse(tokens []string) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		out[i] = Token{Text: tok, Type: Classify(tok)}
	}
	return out
}
