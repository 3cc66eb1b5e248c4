// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package grpc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/observability"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

type (
	principalKey struct{}
	tokenKey     struct{}
)

// PrincipalFrom returns the principal stored by the auth interceptor.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok && p != nil
}

// TokenFrom returns the bearer token that authenticated the call.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok && t != ""
}

// TokenChecker resolves bearer tokens.
type TokenChecker interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// AuthInterceptor authenticates calls to methods matching any of its glob
// patterns. Other methods pass through untouched.
type AuthInterceptor struct {
	authn    TokenChecker
	patterns []glob.Glob
	logger   *slog.Logger
}

// NewAuthInterceptor compiles patterns such as
// "/stockctrl.auth.v1.AuthService/*". '*' does not cross '/'.
func NewAuthInterceptor(authn TokenChecker, patterns []string, logger *slog.Logger) (*AuthInterceptor, error) {
	if authn == nil {
		return nil, oops.Code("GRPC_INVALID_CONFIG").Errorf("token checker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code("GRPC_INVALID_PATTERN").With("pattern", p).Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return &AuthInterceptor{authn: authn, patterns: compiled, logger: logger}, nil
}

// Protected reports whether fullMethod requires a bearer token.
func (a *AuthInterceptor) Protected(fullMethod string) bool {
	for _, g := range a.patterns {
		if g.Match(fullMethod) {
			return true
		}
	}
	return false
}

// Unary returns the server interceptor.
func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.Protected(info.FullMethod) {
			return handler(ctx, req)
		}

		token, ok := bearerToken(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, msgMissingAuthorization)
		}

		principal, err := a.authn.Authenticate(ctx, token)
		if err != nil {
			return nil, statusError(ctx, a.logger, err)
		}

		ctx = context.WithValue(ctx, principalKey{}, principal)
		ctx = context.WithValue(ctx, tokenKey{}, token)
		return handler(ctx, req)
	}
}

func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}

	return stripBearer(values[0])
}

// MetricsInterceptor counts calls by method and status code.
func MetricsInterceptor(m *observability.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if m != nil {
			m.GRPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		}
		return resp, err
	}
}

func statusError(ctx context.Context, logger *slog.Logger, err error) error {
	code, msg := codeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		errutil.LogErrorContext(ctx, logger, "rpc failed", err)
	}
	return status.Error(code, msg)
}

// stripBearer removes an optional "Bearer" scheme from an authorization
// value.
func stripBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "Bearer") {
		header = strings.TrimSpace(rest)
	} else if strings.EqualFold(header, "Bearer") {
		header = ""
	}
	return header, header != ""
}
