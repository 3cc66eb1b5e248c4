// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccountKind distinguishes end-user profiles from administrators.
type AccountKind string

// Account kinds.
const (
	AccountKindProfile AccountKind = "profile"
	AccountKindAdmin   AccountKind = "admin"
)

// Valid reports whether k is a known kind.
func (k AccountKind) Valid() bool {
	return k == AccountKindProfile || k == AccountKindAdmin
}

// Organization is the tenant a profile account belongs to.
type Organization struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Industry string  `json:"industry"`
	Logo     *string `json:"logo,omitempty"`
}

// Account is a persisted identity.
type Account struct {
	ID           ulid.ULID     `json:"id"`
	Kind         AccountKind   `json:"kind"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Name         string        `json:"name"`
	PhoneNumber  *string       `json:"phone_number,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
	IsAdmin      bool          `json:"is_admin"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AccountCandidate is a signup request that has passed input shape
// validation. Password is the raw password and is never stored.
type AccountCandidate struct {
	Kind         AccountKind
	Username     any
	Email        string
	Password     string
	Name         string
	PhoneNumber  *string
	Organization *Organization
}

// NewAccount assembles a validated Account for persistence.
func NewAccount(kind AccountKind, username, email, passwordHash, name string) (*Account, error) {
	if !kind.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_KIND").With("kind", kind).Errorf("unknown account kind")
	}
	if username == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Kind:         kind,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		IsAdmin:      kind == AccountKindAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AccountRepository manages accounts of a single kind.
type AccountRepository interface {
	// Create stores a new account. Returns an error matching
	// ErrUsernameTaken when the username already exists.
	Create(ctx context.Context, account *Account) error

	// GetByUsername retrieves an account by normalized username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}

// AccountRepositories resolves the repository for each kind.
type AccountRepositories map[AccountKind]AccountRepository
