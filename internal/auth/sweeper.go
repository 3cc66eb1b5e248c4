// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/oops"

	"github.com/stockctrl/stockctrl/pkg/errutil"
)

// Sweeper defaults.
const (
	DefaultSweepSchedule  = "@hourly"
	DefaultSweepRetention = 24 * time.Hour
	defaultSweepTimeout   = time.Minute
)

// Sweeper periodically deletes session records that expired or were
// revoked more than the retention period ago.
type Sweeper struct {
	sessions  SessionTokenRepository
	schedule  string
	retention time.Duration
	opts      options

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a Sweeper. An empty schedule uses DefaultSweepSchedule
// and a non-positive retention uses DefaultSweepRetention.
func NewSweeper(sessions SessionTokenRepository, schedule string, retention time.Duration, opts ...Option) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if retention <= 0 {
		retention = DefaultSweepRetention
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, oops.Code("SWEEPER_INVALID_SCHEDULE").With("schedule", schedule).Wrap(err)
	}

	return &Sweeper{
		sessions:  sessions,
		schedule:  schedule,
		retention: retention,
		opts:      newOptions(opts),
	}, nil
}

// Sweep runs one cleanup pass and returns the number of records deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.opts.now().UTC().Add(-s.retention)
	n, err := s.sessions.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, oops.Code("SWEEP_FAILED").With("cutoff", cutoff).Wrap(err)
	}
	s.opts.metrics.swept(n)
	s.opts.logger.InfoContext(ctx, "session sweep complete", "deleted", n, "cutoff", cutoff)
	return n, nil
}

// Start schedules Sweep. Calling Start on a running Sweeper is an error.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return oops.Code("SWEEPER_RUNNING").Errorf("sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.run); err != nil {
		return oops.Code("SWEEPER_INVALID_SCHEDULE").With("schedule", s.schedule).Wrap(err)
	}
	c.Start()
	s.cron = c

	s.opts.logger.Info("session sweeper started", "schedule", s.schedule, "retention", s.retention)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to
// be done.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.opts.logger.Info("session sweeper stopped")
		return nil
	case <-ctx.Done():
		return oops.Code("SWEEPER_STOP_TIMEOUT").Wrap(ctx.Err())
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		errutil.LogErrorContext(ctx, s.opts.logger, "session sweep failed", err)
	}
}
