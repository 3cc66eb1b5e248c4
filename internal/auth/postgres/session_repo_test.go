// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

var sessionRowColumns = []string{
	"id", "token_hash", "account_id", "account_kind", "is_admin",
	"created_at", "expires_at", "revoked", "revoked_at",
}

func TestSessionTokenRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := &auth.SessionToken{
		ID:          ulid.Make(),
		TokenHash:   auth.HashToken("tok"),
		AccountID:   ulid.Make(),
		AccountKind: auth.AccountKindAdmin,
		IsAdmin:     true,
		CreatedAt:   now,
		ExpiresAt:   now.Add(auth.DefaultSessionTTL),
	}

	mock.ExpectExec(`INSERT INTO session_tokens`).
		WithArgs(s.ID.String(), s.TokenHash, s.AccountID.String(), "admin", true,
			s.CreatedAt, s.ExpiresAt, false, s.RevokedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewSessionTokenRepository(mock).Create(context.Background(), s))
}

func TestSessionTokenRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	hash := auth.HashToken("tok")
	id, accountID := ulid.Make(), ulid.Make()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	revokedAt := now.Add(time.Hour)

	t.Run("revoked record", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM session_tokens WHERE token_hash = \$1`).
			WithArgs(hash).
			WillReturnRows(pgxmock.NewRows(sessionRowColumns).AddRow(
				id.String(), hash, accountID.String(), "profile", false,
				now, now.Add(auth.DefaultSessionTTL), true, &revokedAt))

		got, err := NewSessionTokenRepository(mock).GetByTokenHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, accountID, got.AccountID)
		assert.Equal(t, auth.AccountKindProfile, got.AccountKind)
		assert.True(t, got.Revoked)
		require.NotNil(t, got.RevokedAt)
		assert.Equal(t, auth.SessionRevoked, got.StateAt(now))
	})

	t.Run("unknown hash", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM session_tokens`).WithArgs(hash).
			WillReturnRows(pgxmock.NewRows(sessionRowColumns))

		_, err := NewSessionTokenRepository(mock).GetByTokenHash(ctx, hash)
		assert.True(t, errors.Is(err, auth.ErrNotFound))
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM session_tokens`).WithArgs(hash).
			WillReturnError(errors.New("connection reset"))

		_, err := NewSessionTokenRepository(mock).GetByTokenHash(ctx, hash)
		assert.False(t, errors.Is(err, auth.ErrNotFound))
		errutil.AssertErrorCode(t, err, "SESSION_GET_FAILED")
	})
}

func TestSessionTokenRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "revokes",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE session_tokens\s+SET revoked = TRUE, revoked_at = COALESCE\(revoked_at, \$2\)`).
					WithArgs("h", at).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "unknown",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE session_tokens`).WithArgs("h", at).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: auth.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setup(mock)
			err := NewSessionTokenRepository(mock).Revoke(ctx, "h", at)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestSessionTokenRepository_RevokeByAccount(t *testing.T) {
	mock := newMockPool(t)
	id := ulid.Make()
	at := time.Now().UTC()

	mock.ExpectExec(`WHERE account_id = \$1 AND NOT revoked`).
		WithArgs(id.String(), at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewSessionTokenRepository(mock).RevokeByAccount(context.Background(), id, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSessionTokenRepository_DeleteExpired(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("deletes", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM session_tokens`).
			WithArgs(cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 7))

		n, err := NewSessionTokenRepository(mock).DeleteExpired(context.Background(), cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
	})

	t.Run("error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM session_tokens`).
			WithArgs(cutoff).
			WillReturnError(errors.New("lock timeout"))

		_, err := NewSessionTokenRepository(mock).DeleteExpired(context.Background(), cutoff)
		errutil.AssertErrorCode(t, err, "SESSION_DELETE_EXPIRED_FAILED")
	})
}
