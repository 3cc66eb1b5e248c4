// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// accountTable describes where accounts of one kind live.
type accountTable struct {
	name      string
	orgColumn string
}

var accountTables = map[auth.AccountKind]accountTable{
	auth.AccountKindProfile: {name: "accounts", orgColumn: "organization"},
	auth.AccountKindAdmin:   {name: "admin_accounts", orgColumn: "NULL::jsonb"},
}

// AccountRepository implements auth.AccountRepository for one account kind.
type AccountRepository struct {
	pool    poolIface
	kind    auth.AccountKind
	table   accountTable
	columns string
}

// NewAccountRepository creates a repository for kind. It panics on an
// unknown kind, which is a programming error.
func NewAccountRepository(pool poolIface, kind auth.AccountKind) *AccountRepository {
	table, ok := accountTables[kind]
	if !ok {
		panic(fmt.Sprintf("postgres: no table for account kind %q", kind))
	}
	return &AccountRepository{
		pool:  pool,
		kind:  kind,
		table: table,
		columns: "id, username, email, password_hash, name, phone_number, " +
			table.orgColumn + ", is_admin, created_at, updated_at",
	}
}

// NewAccountRepositories returns a repository for every account kind.
func NewAccountRepositories(pool poolIface) auth.AccountRepositories {
	return auth.AccountRepositories{
		auth.AccountKindProfile: NewAccountRepository(pool, auth.AccountKindProfile),
		auth.AccountKindAdmin:   NewAccountRepository(pool, auth.AccountKindAdmin),
	}
}

// Create inserts account. A duplicate username returns auth.ErrUsernameTaken.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	var org []byte
	if account.Organization != nil && r.kind == auth.AccountKindProfile {
		var err error
		if org, err = json.Marshal(account.Organization); err != nil {
			return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "marshal organization").Wrap(err)
		}
	}

	var err error
	if r.kind == auth.AccountKindProfile {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, name, phone_number, organization, is_admin, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, account.ID.String(), account.Username, account.Email, account.PasswordHash, account.Name,
			account.PhoneNumber, org, account.IsAdmin, account.CreatedAt, account.UpdatedAt)
	} else {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO admin_accounts (id, username, email, password_hash, name, phone_number, is_admin, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, account.ID.String(), account.Username, account.Email, account.PasswordHash, account.Name,
			account.PhoneNumber, account.IsAdmin, account.CreatedAt, account.UpdatedAt)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_USERNAME_TAKEN").
				With("kind", r.kind).
				With("username", account.Username).
				Wrap(auth.ErrUsernameTaken)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("kind", r.kind).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves an account by its normalized username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+r.columns+` FROM `+r.table.name+` WHERE username = $1`, username)

	account, err := r.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by username").
			With("kind", r.kind).
			Wrap(err)
	}
	return account, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+r.columns+` FROM `+r.table.name+` WHERE id = $1`, id.String())

	account, err := r.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("kind", r.kind).
			Wrap(err)
	}
	return account, nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE `+r.table.name+` SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scan reads one account row. pgx.ErrNoRows is returned unwrapped.
func (r *AccountRepository) scan(row pgx.Row) (*auth.Account, error) {
	var (
		idStr string
		org   []byte
		a     = &auth.Account{Kind: r.kind}
	)
	if err := row.Scan(&idStr, &a.Username, &a.Email, &a.PasswordHash, &a.Name,
		&a.PhoneNumber, &org, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").With("id", idStr).Wrap(err)
	}
	a.ID = id

	if len(org) > 0 {
		a.Organization = &auth.Organization{}
		if err := json.Unmarshal(org, a.Organization); err != nil {
			return nil, oops.Code("ACCOUNT_INVALID_ORGANIZATION").With("id", idStr).Wrap(err)
		}
	}
	return a, nil
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
