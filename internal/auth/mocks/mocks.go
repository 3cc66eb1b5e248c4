// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package mocks provides testify mocks for the auth repository and hasher
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks auth.AccountRepository.Create.
func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// GetByUsername mocks auth.AccountRepository.GetByUsername.
func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	args := m.Called(ctx, username)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

// GetByID mocks auth.AccountRepository.GetByID.
func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

// UpdatePassword mocks auth.AccountRepository.UpdatePassword.
func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockSessionTokenRepository is a mock of auth.SessionTokenRepository.
type MockSessionTokenRepository struct {
	mock.Mock
}

// NewMockSessionTokenRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionTokenRepository(t testingT) *MockSessionTokenRepository {
	m := &MockSessionTokenRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks auth.SessionTokenRepository.Create.
func (m *MockSessionTokenRepository) Create(ctx context.Context, session *auth.SessionToken) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// GetByTokenHash mocks auth.SessionTokenRepository.GetByTokenHash.
func (m *MockSessionTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.SessionToken, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*auth.SessionToken)
	return session, args.Error(1)
}

// Revoke mocks auth.SessionTokenRepository.Revoke.
func (m *MockSessionTokenRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	args := m.Called(ctx, tokenHash, at)
	return args.Error(0)
}

// RevokeByAccount mocks auth.SessionTokenRepository.RevokeByAccount.
func (m *MockSessionTokenRepository) RevokeByAccount(ctx context.Context, accountID ulid.ULID, at time.Time) (int64, error) {
	args := m.Called(ctx, accountID, at)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteExpired mocks auth.SessionTokenRepository.DeleteExpired.
func (m *MockSessionTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockProfileSessionStore is a mock of auth.ProfileSessionStore.
type MockProfileSessionStore struct {
	mock.Mock
}

// NewMockProfileSessionStore creates a mock that asserts its expectations on cleanup.
func NewMockProfileSessionStore(t testingT) *MockProfileSessionStore {
	m := &MockProfileSessionStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// AddSession mocks auth.ProfileSessionStore.AddSession.
func (m *MockProfileSessionStore) AddSession(ctx context.Context, accountID ulid.ULID, tokenHash string) error {
	args := m.Called(ctx, accountID, tokenHash)
	return args.Error(0)
}

// FindBySession mocks auth.ProfileSessionStore.FindBySession.
func (m *MockProfileSessionStore) FindBySession(ctx context.Context, username, tokenHash string) (*auth.Account, error) {
	args := m.Called(ctx, username, tokenHash)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

// RemoveSession mocks auth.ProfileSessionStore.RemoveSession.
func (m *MockProfileSessionStore) RemoveSession(ctx context.Context, username, tokenHash string) error {
	args := m.Called(ctx, username, tokenHash)
	return args.Error(0)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash mocks auth.PasswordHasher.Hash.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify mocks auth.PasswordHasher.Verify.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade mocks auth.PasswordHasher.NeedsUpgrade.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}
