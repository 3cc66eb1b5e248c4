// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package grpc serves the StockCtrl AuthService over gRPC. Messages are
// google.protobuf.Struct payloads, so the service needs no generated code.
package grpc

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// ServiceName is the fully qualified AuthService name.
const ServiceName = "stockctrl.auth.v1.AuthService"

// Full method names.
const (
	LoginMethod  = "/" + ServiceName + "/Login"
	WhoamiMethod = "/" + ServiceName + "/Whoami"
	LogoutMethod = "/" + ServiceName + "/Logout"
)

// AuthService is the server API of stockctrl.auth.v1.AuthService.
type AuthService interface {
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Whoami(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AuthServiceDesc describes stockctrl.auth.v1.AuthService for
// grpc.ServiceRegistrar.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(LoginMethod, AuthService.Login)},
		{MethodName: "Whoami", Handler: unaryHandler(WhoamiMethod, AuthService.Whoami)},
		{MethodName: "Logout", Handler: unaryHandler(LogoutMethod, AuthService.Logout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockctrl/auth/v1/auth.proto",
}

// RegisterAuthService registers srv on s.
func RegisterAuthService(s grpc.ServiceRegistrar, srv AuthService) {
	s.RegisterService(&AuthServiceDesc, srv)
}

type unaryMethod func(AuthService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err //nolint:wrapcheck // decode errors carry their gRPC status
		}
		if interceptor == nil {
			return call(srv.(AuthService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Authenticator is the subset of auth.Authenticator the service uses.
type Authenticator interface {
	Login(ctx context.Context, kind auth.AccountKind, username, password string) (*auth.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	Revoke(ctx context.Context, token string) error
}

// AuthServer implements AuthService on top of an Authenticator.
type AuthServer struct {
	authn  Authenticator
	logger *slog.Logger
}

// NewAuthServer creates an AuthServer. A nil logger means slog.Default.
func NewAuthServer(authn Authenticator, logger *slog.Logger) (*AuthServer, error) {
	if authn == nil {
		return nil, oops.Code("GRPC_INVALID_CONFIG").Errorf("authenticator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthServer{authn: authn, logger: logger}, nil
}

// Login verifies {kind, username, password} and returns
// {auth_token, kind, is_admin, expires_at}. kind defaults to "admin".
func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	kind := auth.AccountKindAdmin
	if v, ok := fields["kind"]; ok {
		kind = auth.AccountKind(v.GetStringValue())
		if !kind.Valid() {
			return nil, status.Errorf(codes.InvalidArgument, "kind must be %q or %q", auth.AccountKindProfile, auth.AccountKindAdmin)
		}
	}

	username, ok := scalarString(fields["username"])
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "username is required")
	}
	password := fields["password"].GetStringValue()
	if password == "" {
		return nil, status.Error(codes.InvalidArgument, "password is required")
	}

	result, err := s.authn.Login(ctx, kind, username, password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := map[string]any{
		"auth_token": result.Token,
		"kind":       string(result.Kind),
		"is_admin":   result.IsAdmin,
	}
	if !result.ExpiresAt.IsZero() {
		out["expires_at"] = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return newStruct(out)
}

// Whoami returns the principal of the calling token.
func (s *AuthServer) Whoami(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgMissingAuthorization)
	}

	out := map[string]any{
		"account_id": principal.AccountID.String(),
		"kind":       string(principal.Kind),
		"is_admin":   principal.IsAdmin,
	}
	if principal.ExpiresAt != nil {
		out["expires_at"] = principal.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return newStruct(out)
}

// Logout revokes the calling token.
func (s *AuthServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	token, ok := TokenFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgMissingAuthorization)
	}
	if err := s.authn.Revoke(ctx, token); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return newStruct(map[string]any{"revoked": true})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// scalarString accepts a string or number value, matching the HTTP API's
// username handling.
func scalarString(v *structpb.Value) (string, bool) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, k.StringValue != ""
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64), true
	default:
		return "", false
	}
}
