// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// dummyPassword is hashed by NewAuthenticator to produce the comparison target for logins
// that name a missing account.
//
//nolint:gosec // G101: not a credential, never matches a stored account.
const dummyPassword = "stockctrl-missing-account-Pw1!"

// LoginResult is returned on a successful login. ExpiresAt is zero for
// profile sessions stored in the embedded model.
type LoginResult struct {
	Token     string
	AccountID ulid.ULID
	Kind      AccountKind
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Authenticator verifies credentials and manages session tokens.
type Authenticator struct {
	accounts        AccountRepositories
	sessions        SessionTokenRepository
	profileSessions ProfileSessionStore
	hasher          PasswordHasher
	issuer          *TokenIssuer
	opts            options
}

// NewAuthenticator creates an Authenticator. profileSessions is only
// required when the embedded profile session model is selected.
func NewAuthenticator(
	accounts AccountRepositories,
	sessions SessionTokenRepository,
	profileSessions ProfileSessionStore,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	opts ...Option,
) (*Authenticator, error) {
	if len(accounts) == 0 {
		return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").Errorf("account repositories are required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").Errorf("token issuer is required")
	}

	o := newOptions(opts)
	switch o.sessionModel {
	case SessionModelRecord:
	case SessionModelEmbedded:
		if profileSessions == nil {
			return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").
				Errorf("profile session store is required for the embedded session model")
		}
	default:
		return nil, oops.Code("AUTHENTICATOR_INVALID_CONFIG").
			With("session_model", o.sessionModel).
			Errorf("unknown session model %q", o.sessionModel)
	}

	if o.dummyHash == "" {
		hash, err := hasher.Hash(dummyPassword)
		if err != nil {
			return nil, oops.Code("AUTHENTICATOR_DUMMY_HASH_FAILED").Wrap(err)
		}
		o.dummyHash = hash
	}

	return &Authenticator{
		accounts:        accounts,
		sessions:        sessions,
		profileSessions: profileSessions,
		hasher:          hasher,
		issuer:          issuer,
		opts:            o,
	}, nil
}

// Login verifies a username and password and issues a session token.
//
// A missing account and a wrong password produce the same error after the
// same failure delay, and both run a password verification.
func (a *Authenticator) Login(ctx context.Context, kind AccountKind, username, password string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticator.Login",
		trace.WithAttributes(attribute.String("account.kind", string(kind))))
	defer func() {
		outcome := OutcomeAuthenticated
		if err != nil {
			outcome = OutcomeOf(err)
		}
		a.opts.metrics.login(kind, outcome)
		endSpan(span, err)
	}()

	repo, ok := a.accounts[kind]
	if !ok {
		return nil, oops.Code("AUTH_INVALID_KIND").With("kind", kind).Errorf("unsupported account kind %q", kind)
	}

	account, lookupErr := repo.GetByUsername(ctx, strings.ToLower(username))

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		account = nil
		targetHash = a.opts.dummyHash
	default:
		return nil, a.opts.storageFailure(ctx, "AUTH_STORAGE_UNAVAILABLE", "lookup account", lookupErr)
	}

	valid, verifyErr := verifyPassword(ctx, a.hasher, password, targetHash)
	if verifyErr != nil && ctx.Err() != nil {
		return nil, oops.Code("AUTH_LOGIN_CANCELLED").Wrap(verifyErr)
	}
	if verifyErr != nil && account != nil {
		a.opts.logger.WarnContext(ctx, "stored password hash could not be verified",
			"account_id", account.ID.String(),
			"error", verifyErr,
		)
	}

	if account == nil || !valid || verifyErr != nil {
		if sleepErr := a.opts.sleep(ctx, a.opts.failureDelay); sleepErr != nil {
			a.opts.logger.DebugContext(ctx, "login failure delay interrupted", "error", sleepErr)
		}
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	a.upgradeHash(ctx, repo, account, password)

	issued, err := a.issuer.Issue(a.opts.sessionTTL)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue token").Wrap(err)
	}

	result = &LoginResult{
		Token:     issued.Token,
		AccountID: account.ID,
		Kind:      account.Kind,
		Username:  account.Username,
		IsAdmin:   account.IsAdmin,
	}

	if a.embedded(kind) {
		if err := a.profileSessions.AddSession(ctx, account.ID, issued.TokenHash); err != nil {
			return nil, a.opts.storageFailure(ctx, "AUTH_STORAGE_UNAVAILABLE", "add profile session", err)
		}
	} else {
		session, err := NewSessionToken(account, issued)
		if err != nil {
			return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "create session token").Wrap(err)
		}
		if err := a.sessions.Create(ctx, session); err != nil {
			return nil, a.opts.storageFailure(ctx, "AUTH_STORAGE_UNAVAILABLE", "insert session", err)
		}
		result.ExpiresAt = session.ExpiresAt
	}

	a.opts.logger.InfoContext(ctx, "login succeeded",
		"kind", account.Kind,
		"account_id", account.ID.String(),
	)
	return result, nil
}

// Authenticate resolves a bearer token to its principal. It runs against
// storage on every call.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (principal *Principal, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticator.Authenticate")
	defer func() {
		outcome := OutcomeAuthorized
		if err != nil {
			outcome = OutcomeOf(err)
		}
		a.opts.metrics.tokenCheck(outcome)
		endSpan(span, err)
	}()

	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
	}

	session, err := a.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
		}
		return nil, a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "lookup session", err)
	}

	switch session.StateAt(a.opts.now()) {
	case SessionRevoked:
		return nil, oops.Code("SESSION_REVOKED").
			With("session_id", session.ID.String()).
			Wrap(ErrRevokedToken)
	case SessionExpired:
		return nil, oops.Code("SESSION_EXPIRED").
			With("session_id", session.ID.String()).
			With("expired_at", session.ExpiresAt).
			Wrap(ErrExpiredToken)
	}

	expiresAt := session.ExpiresAt
	return &Principal{
		AccountID: session.AccountID,
		Kind:      session.AccountKind,
		IsAdmin:   session.IsAdmin,
		ExpiresAt: &expiresAt,
	}, nil
}

// AuthenticateProfile resolves the username and token pair carried by a
// profile session cookie.
func (a *Authenticator) AuthenticateProfile(ctx context.Context, username, token string) (*Principal, error) {
	username = strings.ToLower(username)
	if username == "" || token == "" {
		a.opts.metrics.tokenCheck(OutcomeInvalidToken)
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
	}

	if !a.embedded(AccountKindProfile) {
		principal, err := a.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		if principal.Kind != AccountKindProfile {
			return nil, oops.Code("SESSION_INVALID").With("kind", principal.Kind).Wrap(ErrInvalidToken)
		}
		account, err := a.accounts[AccountKindProfile].GetByID(ctx, principal.AccountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
			}
			return nil, a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "lookup profile", err)
		}
		if account.Username != username {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
		}
		principal.Username = account.Username
		return principal, nil
	}

	account, err := a.profileSessions.FindBySession(ctx, username, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.opts.metrics.tokenCheck(OutcomeInvalidToken)
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
		}
		a.opts.metrics.tokenCheck(OutcomeStorageUnavailable)
		return nil, a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "lookup profile session", err)
	}

	a.opts.metrics.tokenCheck(OutcomeAuthorized)
	return &Principal{
		AccountID: account.ID,
		Kind:      AccountKindProfile,
		Username:  account.Username,
	}, nil
}

// Revoke marks the session for token revoked. Revoking twice succeeds.
// Returns an error matching ErrNotFound for an unknown token.
func (a *Authenticator) Revoke(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticator.Revoke")
	defer func() {
		outcome := OutcomeRevoked
		if err != nil {
			outcome = OutcomeOf(err)
		}
		a.opts.metrics.revocation(outcome)
		endSpan(span, err)
	}()

	if token == "" {
		return oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}

	if err := a.sessions.Revoke(ctx, HashToken(token), a.opts.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
		}
		return a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "revoke session", err)
	}
	return nil
}

// RevokeProfile ends a profile session identified by its cookie pair.
func (a *Authenticator) RevokeProfile(ctx context.Context, username, token string) error {
	if !a.embedded(AccountKindProfile) {
		return a.Revoke(ctx, token)
	}

	err := a.profileSessions.RemoveSession(ctx, strings.ToLower(username), HashToken(token))
	switch {
	case err == nil:
		a.opts.metrics.revocation(OutcomeRevoked)
		return nil
	case errors.Is(err, ErrNotFound):
		a.opts.metrics.revocation(OutcomeNotFound)
		return oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	default:
		a.opts.metrics.revocation(OutcomeStorageUnavailable)
		return a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "remove profile session", err)
	}
}

// RevokeAll revokes every active session record of an account.
func (a *Authenticator) RevokeAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := a.sessions.RevokeByAccount(ctx, accountID, a.opts.now().UTC())
	if err != nil {
		return 0, a.opts.storageFailure(ctx, "SESSION_STORAGE_UNAVAILABLE", "revoke account sessions", err)
	}
	a.opts.logger.InfoContext(ctx, "account sessions revoked",
		"account_id", accountID.String(),
		"count", n,
	)
	return n, nil
}

func (a *Authenticator) embedded(kind AccountKind) bool {
	return kind == AccountKindProfile && a.opts.sessionModel == SessionModelEmbedded
}

// upgradeHash rehashes the password when the stored hash uses an outdated
// algorithm or cost. Failures are logged; login proceeds regardless.
func (a *Authenticator) upgradeHash(ctx context.Context, repo AccountRepository, account *Account, password string) {
	if !a.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	hash, err := hashPassword(ctx, a.hasher, password)
	if err != nil {
		a.opts.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(),
			"error", err,
		)
		return
	}
	if err := repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		a.opts.logger.WarnContext(ctx, "password hash upgrade not persisted",
			"account_id", account.ID.String(),
			"error", err,
		)
		return
	}
	account.PasswordHash = hash
}
