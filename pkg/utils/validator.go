package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	countryCodeRegex  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ValidateCurrencyCode checks for an ISO 4217 alpha-3 code.
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid currency code: %q", code)
	}
	return nil
}

// ValidateCountryCode checks for an ISO 3166-1 alpha-2 code.
func ValidateCountryCode(code string) error {
	if !countryCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid country code: %q", code)
	}
	return nil
}

// ValidateAmount rejects negative amounts.
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative: %.2f", amount)
	}
	return nil
}

// ValidateShare checks that a share lies in [0, 1].
func ValidateShare(share float64) error {
	if share < 0 || share > 1 {
		return fmt.Errorf("share must be between 0 and 1: %v", share)
	}
	return nil
}

// NormalizeCode upper-cases and trims an ISO code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
