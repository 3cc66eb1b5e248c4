// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Outcome sentinels. Services wrap these with oops codes; transports match
// them with errors.Is.
var (
	ErrPolicyViolation    = errors.New("policy violation")
	ErrUsernameTaken      = errors.New("account with username exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid auth_token")
	ErrRevokedToken       = errors.New("revoked auth_token")
	ErrExpiredToken       = errors.New("expired auth_token")
)

// Outcome names the result of a directory or authenticator call as seen by a
// transport.
type Outcome string

// Outcomes produced by this package.
const (
	OutcomeCreated            Outcome = "created"
	OutcomeAuthenticated      Outcome = "authenticated"
	OutcomeAuthorized         Outcome = "authorized"
	OutcomeRevoked            Outcome = "revoked"
	OutcomeUsernameTaken      Outcome = "username_taken"
	OutcomePolicyViolation    Outcome = "policy_violation"
	OutcomeStorageUnavailable Outcome = "storage_unavailable"
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	OutcomeInvalidToken       Outcome = "invalid_token"
	OutcomeRevokedToken       Outcome = "revoked_token"
	OutcomeExpiredToken       Outcome = "expired_token"
	OutcomeNotFound           Outcome = "not_found"
	OutcomeInternal           Outcome = "internal"
)

// OutcomeOf classifies err. A nil error classifies as OutcomeAuthorized; the
// caller picks the success outcome that fits its operation.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAuthorized
	case errors.Is(err, ErrPolicyViolation):
		return OutcomePolicyViolation
	case errors.Is(err, ErrUsernameTaken):
		return OutcomeUsernameTaken
	case errors.Is(err, ErrStorageUnavailable):
		return OutcomeStorageUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrInvalidToken):
		return OutcomeInvalidToken
	case errors.Is(err, ErrRevokedToken):
		return OutcomeRevokedToken
	case errors.Is(err, ErrExpiredToken):
		return OutcomeExpiredToken
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeInternal
	}
}

// PolicyRule identifies the username or password rule a candidate failed.
type PolicyRule string

// Policy rules, checked in declaration order by the validators.
const (
	RuleTooShort        PolicyRule = "too_short"
	RuleTooLong         PolicyRule = "too_long"
	RuleWeakComposition PolicyRule = "weak_composition"
	RuleInvalidCharset  PolicyRule = "invalid_charset"
	RuleEdgeSymbol      PolicyRule = "edge_symbol"
)

// PolicyError reports a username or password policy violation. Reason is
// safe to show to the end user verbatim.
type PolicyError struct {
	Field  string
	Rule   PolicyRule
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// Is reports whether target is ErrPolicyViolation.
func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// PolicyReason extracts the user-facing reason from a policy violation.
// Returns false when err is not a policy violation.
func PolicyReason(err error) (string, bool) {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}
