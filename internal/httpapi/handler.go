// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package httpapi serves the StockCtrl account and session routes over HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/observability"
	"github.com/stockctrl/stockctrl/internal/schema"
	"github.com/stockctrl/stockctrl/pkg/errutil"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Cookie names carrying a profile session.
const (
	CookieUsername = "username"
	CookieToken    = "token"
)

// AccountCreator creates validated accounts.
type AccountCreator interface {
	CreateAccount(ctx context.Context, c auth.AccountCandidate) (*auth.Account, error)
}

// SessionAuthenticator issues, checks and revokes session tokens.
type SessionAuthenticator interface {
	Login(ctx context.Context, kind auth.AccountKind, username, password string) (*auth.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	AuthenticateProfile(ctx context.Context, username, token string) (*auth.Principal, error)
	Revoke(ctx context.Context, token string) error
	RevokeProfile(ctx context.Context, username, token string) error
}

// Config holds the Handler dependencies.
type Config struct {
	Directory     AccountCreator
	Authenticator SessionAuthenticator
	Accounts      auth.AccountRepositories
	Validator     *schema.Validator
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	CookieSecure  bool
}

// Handler serves the account and session routes.
type Handler struct {
	directory    AccountCreator
	authn        SessionAuthenticator
	accounts     auth.AccountRepositories
	validator    *schema.Validator
	metrics      *observability.Metrics
	logger       *slog.Logger
	cookieSecure bool
}

// New creates a Handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Directory == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("account directory is required")
	}
	if cfg.Authenticator == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("authenticator is required")
	}
	for _, kind := range []auth.AccountKind{auth.AccountKindProfile, auth.AccountKindAdmin} {
		if cfg.Accounts[kind] == nil {
			return nil, oops.Code("HTTPAPI_INVALID_CONFIG").With("kind", kind).Errorf("%s account repository is required", kind)
		}
	}
	if cfg.Validator == nil {
		cfg.Validator = schema.NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{
		directory:    cfg.Directory,
		authn:        cfg.Authenticator,
		accounts:     cfg.Accounts,
		validator:    cfg.Validator,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		cookieSecure: cfg.CookieSecure,
	}, nil
}

// Router returns the routes wrapped in request instrumentation.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.instrument)
	withFallbacks(r)

	profile := r.PathPrefix("/authentication").Subrouter()
	withFallbacks(profile)
	profile.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	profile.HandleFunc("/login", h.login).Methods(http.MethodPost)
	profile.Handle("/logout", h.requireProfile(http.HandlerFunc(h.logout))).Methods(http.MethodPost)
	profile.Handle("/me", h.requireProfile(http.HandlerFunc(h.profileMe))).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	withFallbacks(admin)
	admin.HandleFunc("/create", h.createAdmin).Methods(http.MethodPost)
	admin.HandleFunc("/auth_token", h.adminToken).Methods(http.MethodPost)
	admin.Handle("/logout", h.requireAdmin(http.HandlerFunc(h.adminLogout))).Methods(http.MethodPost)
	admin.Handle("/me", h.requireAdmin(http.HandlerFunc(h.adminMe))).Methods(http.MethodGet)

	return r
}

// withFallbacks installs the JSON 404 and 405 handlers on r.
func withFallbacks(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
}

// signup handles POST /authentication/signup
func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req schema.SignupRequest
	if err := h.decode(w, r, schema.Signup, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	if _, err := h.directory.CreateAccount(r.Context(), req.Candidate()); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeMessage(w, http.StatusCreated, msgSignupSuccessful)
}

// login handles POST /authentication/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req schema.LoginRequest
	if err := h.decode(w, r, schema.Login, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	result, err := h.authn.Login(r.Context(), auth.AccountKindProfile, req.Username.String(), req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(CookieUsername, result.Username, result.ExpiresAt))
	http.SetCookie(w, h.sessionCookie(CookieToken, result.Token, result.ExpiresAt))
	writeMessage(w, http.StatusOK, msgLoginSuccessful)
}

// logout handles POST /authentication/logout
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	username, token, _ := profileCookies(r)
	if err := h.authn.RevokeProfile(r.Context(), username, token); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, h.clearCookie(CookieUsername))
	http.SetCookie(w, h.clearCookie(CookieToken))
	writeMessage(w, http.StatusOK, msgLogoutSuccessful)
}

// profileMe handles GET /authentication/me
func (h *Handler) profileMe(w http.ResponseWriter, r *http.Request) {
	h.writeAccount(w, r, auth.AccountKindProfile)
}

// createAdmin handles POST /admin/create
func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req schema.AdminSignupRequest
	if err := h.decode(w, r, schema.AdminSignup, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	if _, err := h.directory.CreateAccount(r.Context(), req.Candidate()); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeMessage(w, http.StatusCreated, msgAdminCreated)
}

type adminToken struct {
	AuthToken string    `json:"auth_token"`
	ExpiresAt time.Time `json:"expires_at"`
	IsAdmin   bool      `json:"is_admin"`
}

// adminToken handles POST /admin/auth_token
func (h *Handler) adminToken(w http.ResponseWriter, r *http.Request) {
	var req schema.LoginRequest
	if err := h.decode(w, r, schema.Login, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	result, err := h.authn.Login(r.Context(), auth.AccountKindAdmin, req.Username.String(), req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Message: msgAdminTokenCreated,
		Data: adminToken{
			AuthToken: result.Token,
			ExpiresAt: result.ExpiresAt,
			IsAdmin:   result.IsAdmin,
		},
	})
}

// adminLogout handles POST /admin/logout
func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	if err := h.authn.Revoke(r.Context(), token); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeMessage(w, http.StatusOK, msgLogoutSuccessful)
}

// adminMe handles GET /admin/me
func (h *Handler) adminMe(w http.ResponseWriter, r *http.Request) {
	h.writeAccount(w, r, auth.AccountKindAdmin)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, kind auth.AccountKind) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		h.writeError(r.Context(), w, oops.Code("SESSION_INVALID").Wrap(auth.ErrInvalidToken))
		return
	}

	account, err := h.accounts[kind].GetByID(r.Context(), principal.AccountID)
	if err != nil {
		h.writeError(r.Context(), w, h.lookupFailure(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: account})
}

// lookupFailure treats a vanished account as an invalid session and hides
// storage detail from the client.
func (h *Handler) lookupFailure(ctx context.Context, err error) error {
	if auth.OutcomeOf(err) == auth.OutcomeNotFound {
		return oops.Code("SESSION_INVALID").Wrap(auth.ErrInvalidToken)
	}
	errutil.LogErrorContext(ctx, h.logger, "account lookup failed", err)
	return oops.Code("ACCOUNT_STORAGE_UNAVAILABLE").Wrap(auth.ErrStorageUnavailable)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, name string, out any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return oops.Code("REQUEST_TOO_LARGE").Wrap(&schema.InputError{Message: "request body too large"})
	}
	return h.validator.ValidateJSON(name, body, out)
}

func (h *Handler) sessionCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) clearCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
