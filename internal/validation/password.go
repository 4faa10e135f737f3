// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted by the hardened policy.
const MinPasswordLength = 8

var (
	lowerRe = regexp.MustCompile(`[a-z]`)
	upperRe = regexp.MustCompile(`[A-Z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// Policy selects how strictly credentials are checked.
type Policy int

const (
	// PolicyBasic only requires non-empty fields.
	PolicyBasic Policy = iota
	// PolicyHardened additionally requires a strong password.
	PolicyHardened
)

func (p Policy) String() string {
	if p == PolicyHardened {
		return "hardened"
	}
	return "basic"
}

// IsNonEmpty reports whether text has any non-whitespace content.
func IsNonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

// IsStrongPassword reports whether password is at least 8 characters long and
// contains a lowercase letter, an uppercase letter and a digit.
func IsStrongPassword(password string) bool {
	return ValidatePassword(password) == nil
}

// ValidatePassword checks if a password meets strength requirements
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	if !lowerRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if !upperRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}

	if !digitRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}

	return nil
}
