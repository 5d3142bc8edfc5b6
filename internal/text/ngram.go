package text

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidN is returned when an n-gram size is not positive
var ErrInvalidN = errors.New("n-gram size must be positive")

// NGram is a run of n consecutive tokens
type NGram []string

func (g NGram) String() string {
	return strings.Join(g, " ")
}

// NGrams returns every run of n consecutive tokens, in order. Fewer than n
// tokens yield no n-grams. The n-grams share the backing array of tokens.
func NGrams(tokens []string, n int) ([]NGram, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidN, n)
	}
	if len(tokens) < n {
		return nil, nil
	}

	grams := make([]NGram, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, NGram(tokens[i:i+n:i+n]))
	}
	return grams, nil
}
