package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	projectCodeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9\-]{1,31}$`)
	controlRegex     = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateProjectCode accepts upper-case codes such as "PRJ-2024"
func ValidateProjectCode(code string) error {
	if !projectCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid project code: %q", code)
	}
	return nil
}

// ValidateAmount requires a positive amount with at most two decimal places
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than two decimal places: %s", amount.String())
	}
	return nil
}

// SanitizeString removes control characters except newlines and tabs, and trims space
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}
