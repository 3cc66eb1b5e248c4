// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/internal/auth"
)

const sessionColumns = `id, token_hash, account_id, account_kind, is_admin, created_at, expires_at, revoked, revoked_at`

// SessionTokenRepository implements auth.SessionTokenRepository.
type SessionTokenRepository struct {
	pool poolIface
}

// NewSessionTokenRepository creates a SessionTokenRepository.
func NewSessionTokenRepository(pool poolIface) *SessionTokenRepository {
	return &SessionTokenRepository{pool: pool}
}

// Create stores a new session token.
func (r *SessionTokenRepository) Create(ctx context.Context, s *auth.SessionToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_tokens (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		s.ID.String(),
		s.TokenHash,
		s.AccountID.String(),
		string(s.AccountKind),
		s.IsAdmin,
		s.CreatedAt,
		s.ExpiresAt,
		s.Revoked,
		s.RevokedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session token").
			With("account_id", s.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.SessionToken, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM session_tokens WHERE token_hash = $1`, tokenHash)

	var (
		idStr, accountIDStr, kind string
		s                         auth.SessionToken
	)
	err := row.Scan(&idStr, &s.TokenHash, &accountIDStr, &kind, &s.IsAdmin,
		&s.CreatedAt, &s.ExpiresAt, &s.Revoked, &s.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if s.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if s.AccountID, err = ulid.Parse(accountIDStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
	}
	s.AccountKind = auth.AccountKind(kind)
	return &s, nil
}

// Revoke marks the session revoked, keeping the first revocation time.
func (r *SessionTokenRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_tokens
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1
	`, tokenHash, at)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").With("operation", "revoke session").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// RevokeByAccount revokes every unrevoked session of an account.
func (r *SessionTokenRepository) RevokeByAccount(ctx context.Context, accountID ulid.ULID, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE session_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE account_id = $1 AND NOT revoked
	`, accountID.String(), at)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke account sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired or were revoked before cutoff.
func (r *SessionTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM session_tokens
		WHERE expires_at < $1 OR (revoked AND revoked_at < $1)
	`, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("cutoff", cutoff).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

var _ auth.SessionTokenRepository = (*SessionTokenRepository)(nil)
