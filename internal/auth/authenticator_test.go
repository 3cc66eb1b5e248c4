// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/auth/mocks"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

//nolint:gosec // test fixture
const testDummyHash = "$2a$10$dummydummydummydummydu.dummydummydummydummydummydummyd"

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type authFixture struct {
	admins   *mocks.MockAccountRepository
	profiles *mocks.MockAccountRepository
	sessions *mocks.MockSessionTokenRepository
	embedded *mocks.MockProfileSessionStore
	hasher   *mocks.MockPasswordHasher
	sleeper  *recordingSleeper
	metrics  *auth.Metrics
	now      time.Time
	authn    *auth.Authenticator
}

func newAuthFixture(t *testing.T, opts ...auth.Option) *authFixture {
	t.Helper()
	f := &authFixture{
		admins:   mocks.NewMockAccountRepository(t),
		profiles: mocks.NewMockAccountRepository(t),
		sessions: mocks.NewMockSessionTokenRepository(t),
		embedded: mocks.NewMockProfileSessionStore(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		sleeper:  &recordingSleeper{},
		metrics:  auth.NewMetrics(prometheus.NewRegistry()),
		now:      time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC),
	}

	base := []auth.Option{
		auth.WithSleeper(f.sleeper.Sleep),
		auth.WithDummyHash(testDummyHash),
		auth.WithClock(func() time.Time { return f.now }),
		auth.WithMetrics(f.metrics),
	}
	issuer := auth.NewTokenIssuer(auth.WithIssuerClock(func() time.Time { return f.now }))

	authn, err := auth.NewAuthenticator(
		auth.AccountRepositories{auth.AccountKindAdmin: f.admins, auth.AccountKindProfile: f.profiles},
		f.sessions, f.embedded, f.hasher, issuer,
		append(base, opts...)...,
	)
	require.NoError(t, err)
	f.authn = authn
	return f
}

func adminAccount() *auth.Account {
	return &auth.Account{
		ID:           ulid.Make(),
		Kind:         auth.AccountKindAdmin,
		Username:     "root.admin",
		PasswordHash: "$2a$10$storedhash",
		IsAdmin:      true,
	}
}

func TestNewAuthenticator_NilDependencies(t *testing.T) {
	accounts := auth.AccountRepositories{auth.AccountKindAdmin: mocks.NewMockAccountRepository(t)}
	sessions := mocks.NewMockSessionTokenRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	issuer := auth.NewTokenIssuer()

	tests := []struct {
		name        string
		build       func() (*auth.Authenticator, error)
		expectError string
	}{
		{
			name: "nil accounts",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(nil, sessions, nil, hasher, issuer)
			},
			expectError: "account repositories are required",
		},
		{
			name: "nil sessions",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(accounts, nil, nil, hasher, issuer)
			},
			expectError: "sessions repository is required",
		},
		{
			name: "nil hasher",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(accounts, sessions, nil, nil, issuer)
			},
			expectError: "password hasher is required",
		},
		{
			name: "nil issuer",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(accounts, sessions, nil, hasher, nil)
			},
			expectError: "token issuer is required",
		},
		{
			name: "embedded model without store",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(accounts, sessions, nil, hasher, issuer,
					auth.WithProfileSessionModel(auth.SessionModelEmbedded))
			},
			expectError: "profile session store is required",
		},
		{
			name: "unknown model",
			build: func() (*auth.Authenticator, error) {
				return auth.NewAuthenticator(accounts, sessions, nil, hasher, issuer,
					auth.WithProfileSessionModel("cookie-jar"))
			},
			expectError: "unknown session model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("correct credentials issue a seven day session", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()

		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.hasher.On("Verify", "Secret1!", account.PasswordHash).Return(true, nil)
		f.hasher.On("NeedsUpgrade", account.PasswordHash).Return(false)

		var stored *auth.SessionToken
		f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*auth.SessionToken")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.SessionToken) }).
			Return(nil)

		result, err := f.authn.Login(ctx, auth.AccountKindAdmin, "Root.Admin", "Secret1!")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, account.ID, result.AccountID)
		assert.True(t, result.IsAdmin)
		assert.Equal(t, f.now.Add(7*24*time.Hour), result.ExpiresAt)

		require.NotNil(t, stored)
		assert.Equal(t, auth.HashToken(result.Token), stored.TokenHash)
		assert.NotEqual(t, result.Token, stored.TokenHash, "plaintext token is never stored")
		assert.True(t, stored.IsAdmin)
		assert.Empty(t, f.sleeper.Delays(), "no delay on success")
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("admin", "authenticated")))
	})

	t.Run("wrong password and missing account are indistinguishable", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()

		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.admins.On("GetByUsername", mock.Anything, "ghost.admin").
			Return(nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound))
		f.hasher.On("Verify", "Wrong1!!", account.PasswordHash).Return(false, nil)
		f.hasher.On("Verify", "Wrong1!!", testDummyHash).Return(false, nil)

		_, wrongErr := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Wrong1!!")
		_, ghostErr := f.authn.Login(ctx, auth.AccountKindAdmin, "ghost.admin", "Wrong1!!")

		require.Error(t, wrongErr)
		require.Error(t, ghostErr)
		assert.True(t, errors.Is(wrongErr, auth.ErrInvalidCredentials))
		assert.True(t, errors.Is(ghostErr, auth.ErrInvalidCredentials))
		assert.Equal(t, wrongErr.Error(), ghostErr.Error())
		errutil.AssertErrorCode(t, wrongErr, "AUTH_INVALID_CREDENTIALS")
		errutil.AssertErrorCode(t, ghostErr, "AUTH_INVALID_CREDENTIALS")

		assert.Equal(t, []time.Duration{auth.DefaultLoginFailureDelay, auth.DefaultLoginFailureDelay}, f.sleeper.Delays())
		f.hasher.AssertNumberOfCalls(t, "Verify", 2)
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("corrupt stored hash is reported as invalid credentials", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()

		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.hasher.On("Verify", "Secret1!", account.PasswordHash).
			Return(false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format"))

		_, err := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
		assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
		assert.Len(t, f.sleeper.Delays(), 1)
	})

	t.Run("lookup failure is storage unavailable without delay", func(t *testing.T) {
		f := newAuthFixture(t)
		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(nil, errors.New("connection reset"))

		_, err := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
		assert.True(t, errors.Is(err, auth.ErrStorageUnavailable))
		assert.Empty(t, f.sleeper.Delays())
	})

	t.Run("session insert failure is storage unavailable", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()
		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.hasher.On("Verify", "Secret1!", account.PasswordHash).Return(true, nil)
		f.hasher.On("NeedsUpgrade", account.PasswordHash).Return(false)
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
		assert.True(t, errors.Is(err, auth.ErrStorageUnavailable))
	})

	t.Run("outdated hash is upgraded", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()
		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.hasher.On("Verify", "Secret1!", "$2a$10$storedhash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "$2a$10$storedhash").Return(true)
		f.hasher.On("Hash", "Secret1!").Return("$2a$12$newhash", nil)
		f.admins.On("UpdatePassword", mock.Anything, account.ID, "$2a$12$newhash").Return(nil)
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
		require.NoError(t, err)
		assert.Equal(t, "$2a$12$newhash", account.PasswordHash)
	})

	t.Run("upgrade persistence failure does not block login", func(t *testing.T) {
		f := newAuthFixture(t)
		account := adminAccount()
		f.admins.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
		f.hasher.On("Verify", "Secret1!", "$2a$10$storedhash").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "$2a$10$storedhash").Return(true)
		f.hasher.On("Hash", "Secret1!").Return("$2a$12$newhash", nil)
		f.admins.On("UpdatePassword", mock.Anything, account.ID, "$2a$12$newhash").Return(errors.New("timeout"))
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
		require.NoError(t, err)
	})

	t.Run("embedded profile session adds digest to set", func(t *testing.T) {
		f := newAuthFixture(t, auth.WithProfileSessionModel(auth.SessionModelEmbedded))
		profile := &auth.Account{ID: ulid.Make(), Kind: auth.AccountKindProfile, Username: "jane.doe", PasswordHash: "$2a$10$p"}

		f.profiles.On("GetByUsername", mock.Anything, "jane.doe").Return(profile, nil)
		f.hasher.On("Verify", "Secret1!", "$2a$10$p").Return(true, nil)
		f.hasher.On("NeedsUpgrade", "$2a$10$p").Return(false)

		var digest string
		f.embedded.On("AddSession", mock.Anything, profile.ID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { digest = args.String(2) }).
			Return(nil)

		result, err := f.authn.Login(ctx, auth.AccountKindProfile, "jane.doe", "Secret1!")
		require.NoError(t, err)
		assert.Equal(t, auth.HashToken(result.Token), digest)
		assert.True(t, result.ExpiresAt.IsZero())
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthenticator_Login_RealDelay(t *testing.T) {
	ctx := context.Background()
	const delay = 60 * time.Millisecond

	accounts := mocks.NewMockAccountRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	authn, err := auth.NewAuthenticator(
		auth.AccountRepositories{auth.AccountKindAdmin: accounts},
		mocks.NewMockSessionTokenRepository(t), nil, hasher, auth.NewTokenIssuer(),
		auth.WithFailureDelay(delay), auth.WithDummyHash(testDummyHash),
	)
	require.NoError(t, err)

	account := adminAccount()
	accounts.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)
	accounts.On("GetByUsername", mock.Anything, "ghost.admin").Return(nil, auth.ErrNotFound)
	hasher.On("Verify", mock.Anything, mock.Anything).Return(false, nil)

	measure := func(username string) time.Duration {
		start := time.Now()
		_, err := authn.Login(ctx, auth.AccountKindAdmin, username, "Wrong1!!")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		return time.Since(start)
	}

	wrong := measure("root.admin")
	ghost := measure("ghost.admin")

	assert.GreaterOrEqual(t, wrong, delay)
	assert.GreaterOrEqual(t, ghost, delay)
	assert.InDelta(t, float64(wrong), float64(ghost), float64(50*time.Millisecond))
}

func TestAuthenticator_Login_DelayHonoursCancellation(t *testing.T) {
	accounts := mocks.NewMockAccountRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	authn, err := auth.NewAuthenticator(
		auth.AccountRepositories{auth.AccountKindAdmin: accounts},
		mocks.NewMockSessionTokenRepository(t), nil, hasher, auth.NewTokenIssuer(),
		auth.WithFailureDelay(time.Hour), auth.WithDummyHash(testDummyHash),
	)
	require.NoError(t, err)

	accounts.On("GetByUsername", mock.Anything, "ghost.admin").Return(nil, auth.ErrNotFound)
	hasher.On("Verify", mock.Anything, testDummyHash).Return(false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = authn.Login(ctx, auth.AccountKindAdmin, "ghost.admin", "Wrong1!!")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewAuthenticator_PreparesDummyHash(t *testing.T) {
	t.Run("hashed once at construction", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", mock.Anything).Return("$2a$10$eagerdummy", nil).Once()

		authn, err := auth.NewAuthenticator(
			auth.AccountRepositories{auth.AccountKindAdmin: accounts},
			mocks.NewMockSessionTokenRepository(t), nil, hasher, auth.NewTokenIssuer(),
			auth.WithFailureDelay(0),
		)
		require.NoError(t, err)
		hasher.AssertNumberOfCalls(t, "Hash", 1)

		accounts.On("GetByUsername", mock.Anything, "ghost.admin").Return(nil, auth.ErrNotFound)
		hasher.On("Verify", "Wrong1!!", "$2a$10$eagerdummy").Return(false, nil).Twice()

		for range 2 {
			_, err = authn.Login(context.Background(), auth.AccountKindAdmin, "ghost.admin", "Wrong1!!")
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}
		hasher.AssertNumberOfCalls(t, "Hash", 1)
	})

	t.Run("hash failure fails construction", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", mock.Anything).Return("", errors.New("entropy unavailable"))

		authn, err := auth.NewAuthenticator(
			auth.AccountRepositories{auth.AccountKindAdmin: mocks.NewMockAccountRepository(t)},
			mocks.NewMockSessionTokenRepository(t), nil, hasher, auth.NewTokenIssuer(),
		)
		require.Error(t, err)
		assert.Nil(t, authn)
		errutil.AssertErrorCode(t, err, "AUTHENTICATOR_DUMMY_HASH_FAILED")
	})
}

func TestAuthenticator_Login_CancelledWhileWaitingForHasher(t *testing.T) {
	accounts := mocks.NewMockAccountRepository(t)
	sessions := mocks.NewMockSessionTokenRepository(t)
	inner := &gatedHasher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	limited := auth.NewLimitedHasher(inner, 1)
	sleeper := &recordingSleeper{}

	authn, err := auth.NewAuthenticator(
		auth.AccountRepositories{auth.AccountKindAdmin: accounts},
		sessions, nil, limited, auth.NewTokenIssuer(),
		auth.WithDummyHash(testDummyHash), auth.WithSleeper(sleeper.Sleep),
	)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = limited.Hash("held")
	}()
	<-inner.entered
	t.Cleanup(func() {
		close(inner.release)
		<-done
	})

	account := adminAccount()
	accounts.On("GetByUsername", mock.Anything, "root.admin").Return(account, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result, err := authn.Login(ctx, auth.AccountKindAdmin, "root.admin", "Secret1!")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Empty(t, sleeper.Delays())
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	tests := []struct {
		name    string
		token   string
		session func(now time.Time) (*auth.SessionToken, error)
		wantErr error
		code    string
	}{
		{
			name:  "fresh token is authorized",
			token: "fresh",
			session: func(now time.Time) (*auth.SessionToken, error) {
				return &auth.SessionToken{AccountID: accountID, AccountKind: auth.AccountKindAdmin, IsAdmin: true, ExpiresAt: now.Add(time.Hour)}, nil
			},
		},
		{
			name:  "unknown token",
			token: "unknown",
			session: func(time.Time) (*auth.SessionToken, error) {
				return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
			},
			wantErr: auth.ErrInvalidToken,
			code:    "SESSION_INVALID",
		},
		{
			name:  "revoked token",
			token: "revoked",
			session: func(now time.Time) (*auth.SessionToken, error) {
				at := now.Add(-time.Minute)
				return &auth.SessionToken{AccountID: accountID, ExpiresAt: now.Add(time.Hour), Revoked: true, RevokedAt: &at}, nil
			},
			wantErr: auth.ErrRevokedToken,
			code:    "SESSION_REVOKED",
		},
		{
			name:  "expired token",
			token: "expired",
			session: func(now time.Time) (*auth.SessionToken, error) {
				return &auth.SessionToken{AccountID: accountID, ExpiresAt: now.Add(-time.Second)}, nil
			},
			wantErr: auth.ErrExpiredToken,
			code:    "SESSION_EXPIRED",
		},
		{
			name:  "storage failure",
			token: "any",
			session: func(time.Time) (*auth.SessionToken, error) {
				return nil, errors.New("connection refused")
			},
			wantErr: auth.ErrStorageUnavailable,
			code:    "SESSION_STORAGE_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			s, err := tt.session(f.now)
			f.sessions.On("GetByTokenHash", mock.Anything, auth.HashToken(tt.token)).Return(s, err)

			principal, err := f.authn.Authenticate(ctx, tt.token)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, accountID, principal.AccountID)
				assert.True(t, principal.IsAdmin)
				return
			}
			require.Error(t, err)
			assert.Nil(t, principal)
			assert.True(t, errors.Is(err, tt.wantErr))
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}

	t.Run("empty token never reaches storage", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.authn.Authenticate(ctx, "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
		f.sessions.AssertNotCalled(t, "GetByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("checked on every call", func(t *testing.T) {
		f := newAuthFixture(t)
		session := &auth.SessionToken{AccountID: accountID, ExpiresAt: f.now.Add(time.Hour)}
		f.sessions.On("GetByTokenHash", mock.Anything, auth.HashToken("tok")).Return(session, nil).Twice()

		_, err := f.authn.Authenticate(ctx, "tok")
		require.NoError(t, err)
		session.Revoked = true
		_, err = f.authn.Authenticate(ctx, "tok")
		assert.True(t, errors.Is(err, auth.ErrRevokedToken))
	})
}

func TestAuthenticator_AuthenticateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("record model matches username", func(t *testing.T) {
		f := newAuthFixture(t)
		profile := &auth.Account{ID: ulid.Make(), Kind: auth.AccountKindProfile, Username: "jane.doe"}
		session := &auth.SessionToken{AccountID: profile.ID, AccountKind: auth.AccountKindProfile, ExpiresAt: f.now.Add(time.Hour)}

		f.sessions.On("GetByTokenHash", mock.Anything, auth.HashToken("tok")).Return(session, nil)
		f.profiles.On("GetByID", mock.Anything, profile.ID).Return(profile, nil)

		p, err := f.authn.AuthenticateProfile(ctx, "jane.doe", "tok")
		require.NoError(t, err)
		assert.Equal(t, "jane.doe", p.Username)

		_, err = f.authn.AuthenticateProfile(ctx, "john.doe", "tok")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("record model rejects admin tokens", func(t *testing.T) {
		f := newAuthFixture(t)
		session := &auth.SessionToken{AccountID: ulid.Make(), AccountKind: auth.AccountKindAdmin, IsAdmin: true, ExpiresAt: f.now.Add(time.Hour)}
		f.sessions.On("GetByTokenHash", mock.Anything, auth.HashToken("tok")).Return(session, nil)

		_, err := f.authn.AuthenticateProfile(ctx, "root.admin", "tok")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("embedded model", func(t *testing.T) {
		f := newAuthFixture(t, auth.WithProfileSessionModel(auth.SessionModelEmbedded))
		profile := &auth.Account{ID: ulid.Make(), Kind: auth.AccountKindProfile, Username: "jane.doe"}

		f.embedded.On("FindBySession", mock.Anything, "jane.doe", auth.HashToken("good")).Return(profile, nil)
		f.embedded.On("FindBySession", mock.Anything, "jane.doe", auth.HashToken("bad")).Return(nil, auth.ErrNotFound)

		p, err := f.authn.AuthenticateProfile(ctx, "Jane.Doe", "good")
		require.NoError(t, err)
		assert.Equal(t, profile.ID, p.AccountID)
		assert.Nil(t, p.ExpiresAt)

		_, err = f.authn.AuthenticateProfile(ctx, "jane.doe", "bad")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("missing cookie parts", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.authn.AuthenticateProfile(ctx, "", "tok")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
		_, err = f.authn.AuthenticateProfile(ctx, "jane.doe", "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})
}

func TestAuthenticator_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		f := newAuthFixture(t)
		f.sessions.On("Revoke", mock.Anything, auth.HashToken("tok"), f.now).Return(nil).Twice()

		require.NoError(t, f.authn.Revoke(ctx, "tok"))
		require.NoError(t, f.authn.Revoke(ctx, "tok"))
		assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RevocationsTotal.WithLabelValues("revoked")))
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		f := newAuthFixture(t)
		f.sessions.On("Revoke", mock.Anything, auth.HashToken("nope"), f.now).
			Return(oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound))

		err := f.authn.Revoke(ctx, "nope")
		assert.True(t, errors.Is(err, auth.ErrNotFound))
		assert.Equal(t, auth.OutcomeNotFound, auth.OutcomeOf(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newAuthFixture(t)
		f.sessions.On("Revoke", mock.Anything, auth.HashToken("tok"), f.now).Return(errors.New("broken pipe"))

		err := f.authn.Revoke(ctx, "tok")
		assert.True(t, errors.Is(err, auth.ErrStorageUnavailable))
	})

	t.Run("embedded profile removes digest", func(t *testing.T) {
		f := newAuthFixture(t, auth.WithProfileSessionModel(auth.SessionModelEmbedded))
		f.embedded.On("RemoveSession", mock.Anything, "jane.doe", auth.HashToken("tok")).Return(nil)

		require.NoError(t, f.authn.RevokeProfile(ctx, "Jane.Doe", "tok"))
	})

	t.Run("record profile revokes record", func(t *testing.T) {
		f := newAuthFixture(t)
		f.sessions.On("Revoke", mock.Anything, auth.HashToken("tok"), f.now).Return(nil)

		require.NoError(t, f.authn.RevokeProfile(ctx, "jane.doe", "tok"))
	})

	t.Run("revoke all", func(t *testing.T) {
		f := newAuthFixture(t)
		id := ulid.Make()
		f.sessions.On("RevokeByAccount", mock.Anything, id, f.now).Return(int64(3), nil)

		n, err := f.authn.RevokeAll(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
