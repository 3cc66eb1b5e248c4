// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionState is the lifecycle position of a session token.
type SessionState string

// Session states. Active is the only state that authenticates.
const (
	SessionActive  SessionState = "active"
	SessionExpired SessionState = "expired"
	SessionRevoked SessionState = "revoked"
)

// SessionModel selects where profile sessions are recorded.
type SessionModel string

// Session models.
const (
	// SessionModelRecord stores an expiring SessionToken row per login.
	SessionModelRecord SessionModel = "record"
	// SessionModelEmbedded stores token digests in the profile's sessions
	// set, with no expiry.
	SessionModelEmbedded SessionModel = "embedded"
)

// SessionToken is a standalone session record.
type SessionToken struct {
	ID          ulid.ULID
	TokenHash   string
	AccountID   ulid.ULID
	AccountKind AccountKind
	IsAdmin     bool
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Revoked     bool
	RevokedAt   *time.Time
}

// NewSessionToken creates a validated SessionToken for an issued token.
func NewSessionToken(account *Account, issued IssuedToken) (*SessionToken, error) {
	if account == nil || account.ID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if issued.TokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if issued.ExpiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &SessionToken{
		ID:          ulid.Make(),
		TokenHash:   issued.TokenHash,
		AccountID:   account.ID,
		AccountKind: account.Kind,
		IsAdmin:     account.IsAdmin,
		CreatedAt:   issued.IssuedAt,
		ExpiresAt:   issued.ExpiresAt,
	}, nil
}

// StateAt returns the session state at t. Expiry is compared in UTC; a
// timestamp stored without a zone is read as UTC.
func (s *SessionToken) StateAt(t time.Time) SessionState {
	if s.Revoked {
		return SessionRevoked
	}
	if s.ExpiresAt.UTC().Before(t.UTC()) {
		return SessionExpired
	}
	return SessionActive
}

// Principal identifies the account behind an authenticated token.
type Principal struct {
	AccountID ulid.ULID
	Kind      AccountKind
	Username  string
	IsAdmin   bool
	ExpiresAt *time.Time
}

// SessionTokenRepository manages standalone session records.
type SessionTokenRepository interface {
	// Create stores a new session token.
	Create(ctx context.Context, session *SessionToken) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*SessionToken, error)

	// Revoke marks a session revoked. Revoking an already revoked session
	// succeeds and keeps the original revocation time. Returns ErrNotFound
	// when no session has the hash.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error

	// RevokeByAccount revokes every active session of an account and
	// returns the count revoked.
	RevokeByAccount(ctx context.Context, accountID ulid.ULID, at time.Time) (int64, error)

	// DeleteExpired removes sessions that expired, or were revoked, before
	// cutoff and returns the count deleted.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProfileSessionStore manages the sessions set embedded in profile accounts.
type ProfileSessionStore interface {
	// AddSession adds tokenHash to the account's set. Adding a present
	// hash is a no-op.
	AddSession(ctx context.Context, accountID ulid.ULID, tokenHash string) error

	// FindBySession returns the profile with username whose set contains
	// tokenHash, or ErrNotFound.
	FindBySession(ctx context.Context, username, tokenHash string) (*Account, error)

	// RemoveSession removes tokenHash from the set of the profile with
	// username. Removing an absent hash is a no-op; an unknown username
	// returns ErrNotFound.
	RemoveSession(ctx context.Context, username, tokenHash string) error
}
