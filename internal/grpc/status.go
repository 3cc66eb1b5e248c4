// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package grpc

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/stockctrl/stockctrl/internal/auth"
)

const (
	msgMissingAuthorization = "missing authorization header"
	msgInvalidCredentials   = "invalid credentials"
	msgUnavailable          = "service temporarily unavailable"
	msgInternal             = "internal error"
)

// codeFor maps a service error to its gRPC code and client message.
func codeFor(err error) (codes.Code, string) {
	switch auth.OutcomeOf(err) {
	case auth.OutcomePolicyViolation:
		reason, _ := auth.PolicyReason(err)
		return codes.InvalidArgument, reason
	case auth.OutcomeUsernameTaken:
		return codes.AlreadyExists, auth.ErrUsernameTaken.Error()
	case auth.OutcomeStorageUnavailable:
		return codes.Unavailable, msgUnavailable
	case auth.OutcomeInvalidCredentials:
		return codes.Unauthenticated, msgInvalidCredentials
	case auth.OutcomeInvalidToken, auth.OutcomeNotFound:
		return codes.Unauthenticated, auth.ErrInvalidToken.Error()
	case auth.OutcomeRevokedToken:
		return codes.Unauthenticated, auth.ErrRevokedToken.Error()
	case auth.OutcomeExpiredToken:
		return codes.Unauthenticated, auth.ErrExpiredToken.Error()
	default:
		return codes.Internal, msgInternal
	}
}

func (s *AuthServer) toStatus(ctx context.Context, err error) error {
	return statusError(ctx, s.logger, err)
}
