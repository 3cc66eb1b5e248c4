// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

type stubChecker struct {
	principal *auth.Principal
	err       error
	calls     int
	lastToken string
}

func (s *stubChecker) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	s.calls++
	s.lastToken = token
	return s.principal, s.err
}

func TestAuthInterceptor_Protected(t *testing.T) {
	a, err := NewAuthInterceptor(&stubChecker{}, []string{
		"/stockctrl.auth.v1.AuthService/Who*",
		"/stockctrl.admin.*/*",
	}, nil)
	require.NoError(t, err)

	tests := []struct {
		method string
		want   bool
	}{
		{WhoamiMethod, true},
		{LoginMethod, false},
		{LogoutMethod, false},
		{"/stockctrl.admin.v1.Accounts/List", true},
		{"/stockctrl.admin.v1.Accounts/List/Extra", false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Protected(tt.method))
		})
	}
}

func TestAuthInterceptor_InvalidPattern(t *testing.T) {
	_, err := NewAuthInterceptor(&stubChecker{}, []string{"[a-"}, nil)
	errutil.AssertErrorCode(t, err, "GRPC_INVALID_PATTERN")

	_, err = NewAuthInterceptor(nil, nil, nil)
	errutil.AssertErrorCode(t, err, "GRPC_INVALID_CONFIG")
}

func TestAuthInterceptor_Unary(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	principal := &auth.Principal{AccountID: ulid.Make(), Kind: auth.AccountKindAdmin, IsAdmin: true, ExpiresAt: &expires}
	info := &grpc.UnaryServerInfo{FullMethod: WhoamiMethod}

	withAuth := func(v string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", v))
	}

	t.Run("stores principal and token", func(t *testing.T) {
		checker := &stubChecker{principal: principal}
		a, err := NewAuthInterceptor(checker, []string{WhoamiMethod}, nil)
		require.NoError(t, err)

		var gotPrincipal *auth.Principal
		var gotToken string
		_, err = a.Unary()(withAuth("Bearer tok-1"), nil, info, func(ctx context.Context, _ any) (any, error) {
			gotPrincipal, _ = PrincipalFrom(ctx)
			gotToken, _ = TokenFrom(ctx)
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Same(t, principal, gotPrincipal)
		assert.Equal(t, "tok-1", gotToken)
		assert.Equal(t, "tok-1", checker.lastToken)
	})

	t.Run("checked on every call", func(t *testing.T) {
		checker := &stubChecker{principal: principal}
		a, err := NewAuthInterceptor(checker, []string{WhoamiMethod}, nil)
		require.NoError(t, err)

		for range 3 {
			_, err := a.Unary()(withAuth("Bearer tok-1"), nil, info, func(context.Context, any) (any, error) { return nil, nil })
			require.NoError(t, err)
		}
		assert.Equal(t, 3, checker.calls)
	})

	t.Run("rejections short-circuit the handler", func(t *testing.T) {
		tests := []struct {
			name string
			ctx  context.Context
			err  error
			code codes.Code
			msg  string
		}{
			{"no metadata", context.Background(), nil, codes.Unauthenticated, "missing authorization header"},
			{"empty bearer", withAuth("Bearer "), nil, codes.Unauthenticated, "missing authorization header"},
			{"expired", withAuth("Bearer tok"), auth.ErrExpiredToken, codes.Unauthenticated, "expired auth_token"},
			{"storage", withAuth("Bearer tok"), auth.ErrStorageUnavailable, codes.Unavailable, "service temporarily unavailable"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				a, err := NewAuthInterceptor(&stubChecker{err: tt.err}, []string{WhoamiMethod}, nil)
				require.NoError(t, err)

				called := false
				_, err = a.Unary()(tt.ctx, nil, info, func(context.Context, any) (any, error) {
					called = true
					return nil, nil
				})
				assert.False(t, called)
				st, _ := status.FromError(err)
				assert.Equal(t, tt.code, st.Code())
				assert.Equal(t, tt.msg, st.Message())
			})
		}
	})
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{&auth.PolicyError{Reason: "bad"}, codes.InvalidArgument},
		{auth.ErrUsernameTaken, codes.AlreadyExists},
		{auth.ErrStorageUnavailable, codes.Unavailable},
		{auth.ErrInvalidCredentials, codes.Unauthenticated},
		{auth.ErrRevokedToken, codes.Unauthenticated},
		{auth.ErrNotFound, codes.Unauthenticated},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		code, _ := codeFor(tt.err)
		assert.Equal(t, tt.code, code, "%v", tt.err)
	}
}
