// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// ContextHasher is implemented by hashers that may block before doing work.
// Directory and Authenticator prefer these methods when available so a
// cancelled request stops waiting.
type ContextHasher interface {
	HashContext(ctx context.Context, password string) (string, error)
	VerifyContext(ctx context.Context, password, hash string) (bool, error)
}

func hashPassword(ctx context.Context, h PasswordHasher, password string) (string, error) {
	if ch, ok := h.(ContextHasher); ok {
		return ch.HashContext(ctx, password)
	}
	return h.Hash(password)
}

func verifyPassword(ctx context.Context, h PasswordHasher, password, hash string) (bool, error) {
	if ch, ok := h.(ContextHasher); ok {
		return ch.VerifyContext(ctx, password, hash)
	}
	return h.Verify(password, hash)
}

// LimitedHasher bounds the number of concurrent hash and verify calls made
// through the wrapped PasswordHasher. Callers beyond the limit wait.
type LimitedHasher struct {
	next PasswordHasher
	sem  *semaphore.Weighted
}

// NewLimitedHasher wraps next. A limit <= 0 uses GOMAXPROCS.
func NewLimitedHasher(next PasswordHasher, limit int) *LimitedHasher {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &LimitedHasher{next: next, sem: semaphore.NewWeighted(int64(limit))}
}

// Hash hashes password once a slot is free.
func (l *LimitedHasher) Hash(password string) (string, error) {
	return l.HashContext(context.Background(), password)
}

// HashContext hashes password once a slot is free, or returns when ctx ends.
func (l *LimitedHasher) HashContext(ctx context.Context, password string) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.Hash(password)
}

// Verify verifies password once a slot is free.
func (l *LimitedHasher) Verify(password, hash string) (bool, error) {
	return l.VerifyContext(context.Background(), password, hash)
}

// VerifyContext verifies password once a slot is free, or returns when ctx ends.
func (l *LimitedHasher) VerifyContext(ctx context.Context, password, hash string) (bool, error) {
	if err := l.acquire(ctx); err != nil {
		return false, err
	}
	defer l.sem.Release(1)
	return l.next.Verify(password, hash)
}

// NeedsUpgrade is cheap and not limited.
func (l *LimitedHasher) NeedsUpgrade(hash string) bool {
	return l.next.NeedsUpgrade(hash)
}

func (l *LimitedHasher) acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return oops.Code("HASHER_WAIT_CANCELLED").Wrap(err)
	}
	return nil
}
