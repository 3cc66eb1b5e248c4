// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 64                 // 512 bits, base64url encoded
	DefaultSessionTTL = 7 * 24 * time.Hour // standalone session records
)

// IssuedToken is a freshly generated session token. Token is the plaintext
// handed to the client; TokenHash is what gets stored.
type IssuedToken struct {
	Token     string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer generates opaque session tokens from a secure random source.
type TokenIssuer struct {
	random io.Reader
	now    func() time.Time
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) TokenIssuerOption {
	return func(ti *TokenIssuer) { ti.random = r }
}

// WithIssuerClock replaces time.Now.
func WithIssuerClock(now func() time.Time) TokenIssuerOption {
	return func(ti *TokenIssuer) { ti.now = now }
}

// NewTokenIssuer creates a TokenIssuer backed by crypto/rand.
func NewTokenIssuer(opts ...TokenIssuerOption) *TokenIssuer {
	ti := &TokenIssuer{random: rand.Reader, now: time.Now}
	for _, opt := range opts {
		opt(ti)
	}
	return ti
}

// Issue creates a token valid for ttl. A ttl <= 0 uses DefaultSessionTTL.
func (ti *TokenIssuer) Issue(ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	buf := make([]byte, SessionTokenBytes)
	if _, err := io.ReadFull(ti.random, buf); err != nil {
		return IssuedToken{}, oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	issuedAt := ti.now().UTC()

	return IssuedToken{
		Token:     token,
		TokenHash: HashToken(token),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// HashToken computes the SHA-256 hex digest stored in place of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
