// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// ProfileSessionStore implements auth.ProfileSessionStore on the sessions
// array column of the accounts table.
type ProfileSessionStore struct {
	pool     poolIface
	accounts *AccountRepository
}

// NewProfileSessionStore creates a ProfileSessionStore.
func NewProfileSessionStore(pool poolIface) *ProfileSessionStore {
	return &ProfileSessionStore{
		pool:     pool,
		accounts: NewAccountRepository(pool, auth.AccountKindProfile),
	}
}

// AddSession adds tokenHash to the profile's sessions set.
func (s *ProfileSessionStore) AddSession(ctx context.Context, accountID ulid.ULID, tokenHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET sessions = array_append(array_remove(sessions, $2), $2), updated_at = NOW()
		WHERE id = $1
	`, accountID.String(), tokenHash)
	if err != nil {
		return oops.Code("PROFILE_SESSION_ADD_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", accountID.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// FindBySession returns the profile named username holding tokenHash.
func (s *ProfileSessionStore) FindBySession(ctx context.Context, username, tokenHash string) (*auth.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+s.accounts.columns+` FROM accounts WHERE username = $1 AND $2 = ANY(sessions)`,
		username, tokenHash)

	account, err := s.accounts.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_SESSION_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_SESSION_GET_FAILED").With("username", username).Wrap(err)
	}
	return account, nil
}

// RemoveSession removes tokenHash from the profile's sessions set.
func (s *ProfileSessionStore) RemoveSession(ctx context.Context, username, tokenHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET sessions = array_remove(sessions, $2) WHERE username = $1
	`, username, tokenHash)
	if err != nil {
		return oops.Code("PROFILE_SESSION_REMOVE_FAILED").With("username", username).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.ProfileSessionStore = (*ProfileSessionStore)(nil)
