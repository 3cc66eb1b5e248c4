// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/schema"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

// Client-facing messages.
const (
	msgSignupSuccessful     = "signup successful"
	msgAdminCreated         = "admin account created"
	msgLoginSuccessful      = "login successful"
	msgLogoutSuccessful     = "logout successful"
	msgAdminTokenCreated    = "admin auth_token created"
	msgInvalidCredentials   = "invalid credentials"
	msgMissingAuthorization = "missing authorization header"
	msgMissingSession       = "missing session cookie"
	msgUnavailable          = "service temporarily unavailable"
	msgInternal             = "internal server error"
	msgNotFound             = "not found"
	msgMethodNotAllowed     = "method not allowed"
)

type envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // client may have gone
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Message: msg})
}

// statusFor maps a service error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	var ie *schema.InputError
	if errors.As(err, &ie) {
		return http.StatusBadRequest, ie.Message
	}

	switch auth.OutcomeOf(err) {
	case auth.OutcomePolicyViolation:
		reason, _ := auth.PolicyReason(err)
		return http.StatusBadRequest, reason
	case auth.OutcomeUsernameTaken:
		return http.StatusConflict, auth.ErrUsernameTaken.Error()
	case auth.OutcomeStorageUnavailable:
		return http.StatusServiceUnavailable, msgUnavailable
	case auth.OutcomeInvalidCredentials:
		return http.StatusUnauthorized, msgInvalidCredentials
	case auth.OutcomeInvalidToken, auth.OutcomeNotFound:
		return http.StatusUnauthorized, auth.ErrInvalidToken.Error()
	case auth.OutcomeRevokedToken:
		return http.StatusUnauthorized, auth.ErrRevokedToken.Error()
	case auth.OutcomeExpiredToken:
		return http.StatusUnauthorized, auth.ErrExpiredToken.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, h.logger, "request failed", err)
	} else {
		h.logger.DebugContext(ctx, "request rejected", slog.Int("status", status), slog.String("reason", msg))
	}
	writeMessage(w, status, msg)
}
