// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package authtest provides in-memory auth repositories for tests.
package authtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// Store holds accounts and sessions in memory. Usernames are unique per
// account kind, as in the database schema.
type Store struct {
	mu       sync.Mutex
	accounts map[auth.AccountKind]map[string]*auth.Account // kind -> username -> account
	embedded map[ulid.ULID][]string                        // profile id -> token hashes
	sessions map[string]*auth.SessionToken                 // token hash -> session
	failure  error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: map[auth.AccountKind]map[string]*auth.Account{
			auth.AccountKindProfile: {},
			auth.AccountKindAdmin:   {},
		},
		embedded: make(map[ulid.ULID][]string),
		sessions: make(map[string]*auth.SessionToken),
	}
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Accounts returns a repository per account kind.
func (s *Store) Accounts() auth.AccountRepositories {
	return auth.AccountRepositories{
		auth.AccountKindProfile: &accountRepo{store: s, kind: auth.AccountKindProfile},
		auth.AccountKindAdmin:   &accountRepo{store: s, kind: auth.AccountKindAdmin},
	}
}

// Sessions returns the standalone session repository.
func (s *Store) Sessions() auth.SessionTokenRepository {
	return sessionRepo{store: s}
}

// ProfileSessions returns the embedded profile session store.
func (s *Store) ProfileSessions() auth.ProfileSessionStore {
	return profileSessions{store: s}
}

// SessionCount returns the number of stored session records.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type accountRepo struct {
	store *Store
	kind  auth.AccountKind
}

func (r *accountRepo) Create(_ context.Context, account *auth.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return r.store.failure
	}

	byName := r.store.accounts[r.kind]
	if _, ok := byName[account.Username]; ok {
		return auth.ErrUsernameTaken
	}
	stored := *account
	byName[account.Username] = &stored
	return nil
}

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return nil, r.store.failure
	}

	account, ok := r.store.accounts[r.kind][username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	found := *account
	return &found, nil
}

func (r *accountRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return nil, r.store.failure
	}

	account := r.store.byID(r.kind, id)
	if account == nil {
		return nil, auth.ErrNotFound
	}
	found := *account
	return &found, nil
}

func (r *accountRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return r.store.failure
	}

	account := r.store.byID(r.kind, id)
	if account == nil {
		return auth.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) byID(kind auth.AccountKind, id ulid.ULID) *auth.Account {
	for _, account := range s.accounts[kind] {
		if account.ID == id {
			return account
		}
	}
	return nil
}

type sessionRepo struct {
	store *Store
}

func (r sessionRepo) Create(_ context.Context, session *auth.SessionToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return r.store.failure
	}

	stored := *session
	r.store.sessions[session.TokenHash] = &stored
	return nil
}

func (r sessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.SessionToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return nil, r.store.failure
	}

	session, ok := r.store.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	found := *session
	return &found, nil
}

func (r sessionRepo) Revoke(_ context.Context, tokenHash string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return r.store.failure
	}

	session, ok := r.store.sessions[tokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	if !session.Revoked {
		session.Revoked = true
		session.RevokedAt = &at
	}
	return nil
}

func (r sessionRepo) RevokeByAccount(_ context.Context, accountID ulid.ULID, at time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return 0, r.store.failure
	}

	var n int64
	for _, session := range r.store.sessions {
		if session.AccountID == accountID && !session.Revoked {
			session.Revoked = true
			session.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r sessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failure != nil {
		return 0, r.store.failure
	}

	var n int64
	for hash, session := range r.store.sessions {
		revokedBefore := session.Revoked && session.RevokedAt != nil && session.RevokedAt.Before(cutoff)
		if session.ExpiresAt.Before(cutoff) || revokedBefore {
			delete(r.store.sessions, hash)
			n++
		}
	}
	return n, nil
}

type profileSessions struct {
	store *Store
}

func (p profileSessions) AddSession(_ context.Context, accountID ulid.ULID, tokenHash string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.store.failure != nil {
		return p.store.failure
	}

	if p.store.byID(auth.AccountKindProfile, accountID) == nil {
		return auth.ErrNotFound
	}
	hashes := p.store.embedded[accountID]
	if !slices.Contains(hashes, tokenHash) {
		p.store.embedded[accountID] = append(hashes, tokenHash)
	}
	return nil
}

func (p profileSessions) FindBySession(_ context.Context, username, tokenHash string) (*auth.Account, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.store.failure != nil {
		return nil, p.store.failure
	}

	account, ok := p.store.accounts[auth.AccountKindProfile][username]
	if !ok || !slices.Contains(p.store.embedded[account.ID], tokenHash) {
		return nil, auth.ErrNotFound
	}
	found := *account
	return &found, nil
}

func (p profileSessions) RemoveSession(_ context.Context, username, tokenHash string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.store.failure != nil {
		return p.store.failure
	}

	account, ok := p.store.accounts[auth.AccountKindProfile][username]
	if !ok {
		return auth.ErrNotFound
	}
	p.store.embedded[account.ID] = slices.DeleteFunc(p.store.embedded[account.ID], func(h string) bool {
		return h == tokenHash
	})
	return nil
}
