package utils

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxNameLength bounds module names
const MaxNameLength = 64

// SafeNamePattern allows alphanumeric, dots, hyphens, underscores. Names
// appear in URL paths and metric labels.
var SafeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ErrInvalidName is returned for names that fail ValidateName
var ErrInvalidName = errors.New("invalid name")

// ValidateName checks a module name
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, MaxNameLength)
	}
	if !SafeNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '-' and '_'", ErrInvalidName, name)
	}
	return nil
}
