// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/config"
	"github.com/stockctrl/stockctrl/internal/logging"
	"github.com/stockctrl/stockctrl/internal/xdg"
)

const serviceName = "stockctrl"

// NewRootCmd creates the root command for the StockCtrl CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	var configFile string

	cmd := &cobra.Command{
		Use:   "stockctrl",
		Short: "StockCtrl account and session service",
		Long: `StockCtrl manages profile and admin accounts, password
credentials, and session tokens for the inventory application.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	env := &cmdEnv{deps: deps, configFile: &configFile}
	cmd.AddCommand(newServeCmd(env))
	cmd.AddCommand(newMigrateCmd(env))
	cmd.AddCommand(newAdminCmd(env))
	cmd.AddCommand(newSeedAdminsCmd(env))
	cmd.AddCommand(newSessionsCmd(env))
	cmd.AddCommand(newGenSchemaCmd())

	return cmd
}

// cmdEnv carries what every subcommand needs to load its configuration.
type cmdEnv struct {
	deps       *Deps
	configFile *string
}

// load reads and validates the configuration and sets up logging. Without
// --config the user config file under XDG_CONFIG_HOME is used if present.
func (e *cmdEnv) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := *e.configFile
	if path == "" {
		path = xdg.DefaultConfigFile(e.deps.Getenv)
	}

	cfg, err := config.Load(cmd.Flags(), path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup(serviceName, version, cfg.LogFormat, cmd.ErrOrStderr())
	return cfg, logger, nil
}

// services are the account services built from a Backend.
type services struct {
	backend   *Backend
	directory *auth.Directory
	authn     *auth.Authenticator
}

func (e *cmdEnv) openServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics) (*services, error) {
	backend, err := e.deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open storage").Wrap(err)
	}

	svc, err := buildServices(backend, cfg, logger, metrics)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return svc, nil
}

func buildServices(backend *Backend, cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics) (*services, error) {
	primary, err := auth.NewHasher(cfg.HashAlgorithm, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewLimitedHasher(primary, cfg.HashConcurrency)

	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithFailureDelay(cfg.LoginFailureDelay),
		auth.WithSessionTTL(cfg.SessionTTL),
		auth.WithProfileSessionModel(cfg.ProfileSessionModel),
	}

	directory, err := auth.NewDirectory(backend.Accounts, hasher, opts...)
	if err != nil {
		return nil, err
	}
	authn, err := auth.NewAuthenticator(backend.Accounts, backend.Sessions, backend.ProfileSessions,
		hasher, auth.NewTokenIssuer(), opts...)
	if err != nil {
		return nil, err
	}

	return &services{backend: backend, directory: directory, authn: authn}, nil
}
