// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package authtest

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// Services bundles a Directory and Authenticator over one Store.
type Services struct {
	Store         *Store
	Directory     *auth.Directory
	Authenticator *auth.Authenticator
}

// NewServices wires real services to a fresh Store using a minimum-cost
// bcrypt hasher and no login failure delay. opts are applied after those
// defaults.
func NewServices(t testing.TB, opts ...auth.Option) *Services {
	t.Helper()
	return NewServicesFor(t, NewStore(), opts...)
}

// NewServicesFor is NewServices over an existing Store.
func NewServicesFor(t testing.TB, store *Store, opts ...auth.Option) *Services {
	t.Helper()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	opts = append([]auth.Option{auth.WithFailureDelay(0)}, opts...)

	dir, err := auth.NewDirectory(store.Accounts(), hasher, opts...)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	authn, err := auth.NewAuthenticator(store.Accounts(), store.Sessions(), store.ProfileSessions(),
		hasher, auth.NewTokenIssuer(), opts...)
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}

	return &Services{Store: store, Directory: dir, Authenticator: authn}
}
