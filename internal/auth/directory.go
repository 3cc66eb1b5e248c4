// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const msgPasswordTooLong = "password maximum length is 72 bytes"

// Directory creates accounts with uniqueness and policy checks.
type Directory struct {
	accounts AccountRepositories
	hasher   PasswordHasher
	opts     options
}

// NewDirectory creates a Directory. accounts must hold a repository for
// every kind the directory will be asked to create.
func NewDirectory(accounts AccountRepositories, hasher PasswordHasher, opts ...Option) (*Directory, error) {
	if len(accounts) == 0 {
		return nil, oops.Code("DIRECTORY_INVALID_CONFIG").Errorf("account repositories are required")
	}
	for kind, repo := range accounts {
		if repo == nil {
			return nil, oops.Code("DIRECTORY_INVALID_CONFIG").
				With("kind", kind).
				Errorf("%s account repository is required", kind)
		}
	}
	if hasher == nil {
		return nil, oops.Code("DIRECTORY_INVALID_CONFIG").Errorf("password hasher is required")
	}

	return &Directory{
		accounts: accounts,
		hasher:   hasher,
		opts:     newOptions(opts),
	}, nil
}

// CreateAccount validates and stores a new account.
//
// The username is checked before the password so a taken username is
// reported without hashing. The pre-insert lookup is a fast path only: a
// concurrent signup that wins the insert makes this call fail with
// ErrUsernameTaken from the storage unique constraint.
func (d *Directory) CreateAccount(ctx context.Context, c AccountCandidate) (account *Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Directory.CreateAccount",
		trace.WithAttributes(attribute.String("account.kind", string(c.Kind))))
	defer func() {
		outcome := OutcomeCreated
		if err != nil {
			outcome = OutcomeOf(err)
		}
		d.opts.metrics.signup(c.Kind, outcome)
		endSpan(span, err)
	}()

	repo, ok := d.accounts[c.Kind]
	if !ok {
		return nil, oops.Code("ACCOUNT_INVALID_KIND").
			With("kind", c.Kind).
			Errorf("unsupported account kind %q", c.Kind)
	}

	username, err := NormalizeUsername(c.Username)
	if err != nil {
		return nil, err
	}

	_, err = repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, oops.Code("ACCOUNT_USERNAME_TAKEN").
			With("username", username).
			Wrap(ErrUsernameTaken)
	case !errors.Is(err, ErrNotFound):
		return nil, d.opts.storageFailure(ctx, "ACCOUNT_STORAGE_UNAVAILABLE", "lookup account", err)
	}

	if err := ValidatePassword(c.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(ctx, d.hasher, c.Password)
	c.Password = ""
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, oops.Code("PASSWORD_TOO_LONG").
				Wrap(&PolicyError{Field: "password", Rule: RuleTooLong, Reason: msgPasswordTooLong})
		}
		return nil, oops.Code("ACCOUNT_HASH_FAILED").With("operation", "hash password").Wrap(err)
	}

	account, err = NewAccount(c.Kind, username, c.Email, hash, c.Name)
	if err != nil {
		return nil, err
	}
	account.PhoneNumber = c.PhoneNumber
	if c.Kind == AccountKindProfile {
		account.Organization = c.Organization
	}

	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, oops.Code("ACCOUNT_USERNAME_TAKEN").
				With("username", username).
				With("race", true).
				Wrap(ErrUsernameTaken)
		}
		return nil, d.opts.storageFailure(ctx, "ACCOUNT_STORAGE_UNAVAILABLE", "insert account", err)
	}

	d.opts.logger.InfoContext(ctx, "account created",
		"kind", account.Kind,
		"account_id", account.ID.String(),
		"username", account.Username,
	)
	return account, nil
}
