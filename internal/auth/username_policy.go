// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 5
	MaxUsernameLength = 30
)

const (
	msgUsernameTooShort = "username minimum number of characters required is 5 chars"
	msgUsernameTooLong  = "username maximum number of characters allowed is 30 chars"
	msgUsernameCharset  = "username must be lowercase and can only contain letters, digits, underscores, and periods (._)"
	msgUsernameEdge     = "username cannot begin or end with special characters (._)"
)

// NormalizeUsername coerces v to its string form and validates it.
// Scalars such as numbers are accepted and stringified rather than rejected.
func NormalizeUsername(v any) (string, error) {
	switch u := v.(type) {
	case string:
		return ValidateUsername(u)
	case fmt.Stringer:
		return ValidateUsername(u.String())
	case nil:
		return ValidateUsername("")
	default:
		return ValidateUsername(fmt.Sprint(u))
	}
}

// ValidateUsername validates a username and returns its normalized form.
// Rules are checked in order and the first failure wins:
//   - length between MinUsernameLength and MaxUsernameLength runes
//   - lowercase letters, digits, '.' and '_' only, with at least one letter
//   - no '.' or '_' as first or last character
func ValidateUsername(username string) (string, error) {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return "", oops.Code("USERNAME_TOO_SHORT").
			With("min_length", MinUsernameLength).
			Wrap(&PolicyError{Field: "username", Rule: RuleTooShort, Reason: msgUsernameTooShort})
	}
	if n > MaxUsernameLength {
		return "", oops.Code("USERNAME_TOO_LONG").
			With("max_length", MaxUsernameLength).
			Wrap(&PolicyError{Field: "username", Rule: RuleTooLong, Reason: msgUsernameTooLong})
	}

	hasLetter := false
	for _, r := range username {
		if !isUsernameRune(r) {
			return "", invalidCharset()
		}
		if r >= 'a' && r <= 'z' {
			hasLetter = true
		}
	}
	// A username with no cased letter does not count as lowercase.
	if !hasLetter {
		return "", invalidCharset()
	}

	if isUsernameSymbol(username[0]) || isUsernameSymbol(username[len(username)-1]) {
		return "", oops.Code("USERNAME_EDGE_SYMBOL").
			Wrap(&PolicyError{Field: "username", Rule: RuleEdgeSymbol, Reason: msgUsernameEdge})
	}

	return strings.ToLower(username), nil
}

func invalidCharset() error {
	return oops.Code("USERNAME_INVALID_CHARSET").
		Wrap(&PolicyError{Field: "username", Rule: RuleInvalidCharset, Reason: msgUsernameCharset})
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_'
}

func isUsernameSymbol(b byte) bool {
	return b == '.' || b == '_'
}
