// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/internal/auth"
)

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok && p != nil
}

// requireAdmin authenticates the bearer token of every request. Tokens
// issued to profile accounts are rejected.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, msgMissingAuthorization)
			return
		}

		principal, err := h.authn.Authenticate(r.Context(), token)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
		if principal.Kind != auth.AccountKindAdmin || !principal.IsAdmin {
			h.writeError(r.Context(), w, oops.Code("SESSION_INVALID").
				With("kind", principal.Kind).
				Wrap(auth.ErrInvalidToken))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// requireProfile authenticates the username and token cookies of every
// request.
func (h *Handler) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, token, ok := profileCookies(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, msgMissingSession)
			return
		}

		principal, err := h.authn.AuthenticateProfile(r.Context(), username, token)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// bearerToken extracts the token from an Authorization header. A bare
// token without the Bearer scheme is accepted.
func bearerToken(r *http.Request) (string, bool) {
	return stripBearer(r.Header.Get("Authorization"))
}

func profileCookies(r *http.Request) (username, token string, ok bool) {
	u, err := r.Cookie(CookieUsername)
	if err != nil || u.Value == "" {
		return "", "", false
	}
	t, err := r.Cookie(CookieToken)
	if err != nil || t.Value == "" {
		return "", "", false
	}
	return u.Value, t.Value, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency by route template.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)

		if h.metrics != nil {
			h.metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			h.metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		}
		h.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", elapsed,
		)
	})
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
