// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/auth/postgres"
	"github.com/stockctrl/stockctrl/internal/config"
	"github.com/stockctrl/stockctrl/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the account and session storage.
	// Default: openPostgres
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string, logger *slog.Logger) (Migrator, error)

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(key string) string

	// OnReady is called by serve once every listener is bound.
	OnReady func(addrs ServeAddrs)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openPostgres
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string, logger *slog.Logger) (Migrator, error) {
			return store.NewMigrator(databaseURL, logger)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	if out.OnReady == nil {
		out.OnReady = func(ServeAddrs) {}
	}
	return &out
}

// Backend is the storage the services run against.
type Backend struct {
	Accounts        auth.AccountRepositories
	Sessions        auth.SessionTokenRepository
	ProfileSessions auth.ProfileSessionStore

	// Ping reports whether storage is reachable.
	Ping func(ctx context.Context) error

	// Close releases the backend.
	Close func()
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ServeAddrs are the bound listener addresses. Empty means disabled.
type ServeAddrs struct {
	HTTP    string
	GRPC    string
	Metrics string
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	pool, err := store.Open(ctx, cfg.DatabaseURL, store.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		ConnectRetries: cfg.ConnectRetries,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &Backend{
		Accounts:        postgres.NewAccountRepositories(pool),
		Sessions:        postgres.NewSessionTokenRepository(pool),
		ProfileSessions: postgres.NewProfileSessionStore(pool),
		Ping:            pool.Ping,
		Close:           pool.Close,
	}, nil
}
