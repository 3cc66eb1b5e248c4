// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stockctrl/stockctrl/pkg/errutil"
)

// DefaultLoginFailureDelay is applied to every failed login, whether the
// account is missing or the password is wrong.
const DefaultLoginFailureDelay = 1500 * time.Millisecond

var tracer = otel.Tracer("github.com/stockctrl/stockctrl/internal/auth")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type options struct {
	logger       *slog.Logger
	metrics      *Metrics
	now          func() time.Time
	sleep        Sleeper
	failureDelay time.Duration
	sessionTTL   time.Duration
	sessionModel SessionModel
	dummyHash    string
}

// Option configures a Directory or Authenticator.
type Option func(*options)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSleeper replaces the timer used for the login failure delay.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

// WithFailureDelay sets the uniform login failure delay.
func WithFailureDelay(d time.Duration) Option {
	return func(o *options) { o.failureDelay = d }
}

// WithSessionTTL sets the lifetime of standalone session records.
func WithSessionTTL(d time.Duration) Option {
	return func(o *options) { o.sessionTTL = d }
}

// WithProfileSessionModel selects how profile sessions are recorded.
func WithProfileSessionModel(m SessionModel) Option {
	return func(o *options) { o.sessionModel = m }
}

// WithDummyHash sets the hash verified when a login names a missing account.
// It should be produced by the configured hasher so both paths cost the same.
func WithDummyHash(hash string) Option {
	return func(o *options) { o.dummyHash = hash }
}

func newOptions(opts []Option) options {
	o := options{
		logger:       slog.Default(),
		now:          time.Now,
		sleep:        sleepContext,
		failureDelay: DefaultLoginFailureDelay,
		sessionTTL:   DefaultSessionTTL,
		sessionModel: SessionModelRecord,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context errors pass through
	case <-timer.C:
		return nil
	}
}

// storageFailure logs and counts a persistence error and replaces it with
// ErrStorageUnavailable so driver detail never reaches the caller.
func (o *options) storageFailure(ctx context.Context, code, operation string, err error) error {
	o.metrics.storageError(operation)
	errutil.LogErrorContext(ctx, o.logger, "persistence failure", oops.With("operation", operation).Wrap(err))
	return oops.Code(code).With("operation", operation).Wrap(ErrStorageUnavailable)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, string(OutcomeOf(err)))
	}
	span.End()
}
