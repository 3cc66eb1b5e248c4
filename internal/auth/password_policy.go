// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// MinPasswordLength is the shortest password accepted by ValidatePassword.
const MinPasswordLength = 8

const (
	msgPasswordTooShort = "password minimum number of characters required is 8 chars"
	msgPasswordWeak     = "password must contain uppercase letter, lowercase letter, digit, and symbols"
)

// ValidatePassword checks a candidate password against the composition rules.
// Rules are checked in order and the first failure wins:
//   - fewer than MinPasswordLength runes
//   - missing an uppercase letter, lowercase letter, digit, or symbol
//
// A symbol is any rune that is neither a letter nor a digit.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code("PASSWORD_TOO_SHORT").
			With("min_length", MinPasswordLength).
			Wrap(&PolicyError{Field: "password", Rule: RuleTooShort, Reason: msgPasswordTooShort})
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return oops.Code("PASSWORD_WEAK_COMPOSITION").
			With("has_upper", upper).
			With("has_lower", lower).
			With("has_digit", digit).
			With("has_symbol", symbol).
			Wrap(&PolicyError{Field: "password", Rule: RuleWeakComposition, Reason: msgPasswordWeak})
	}

	return nil
}
