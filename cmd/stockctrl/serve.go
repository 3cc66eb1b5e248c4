// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/config"
	stockgrpc "github.com/stockctrl/stockctrl/internal/grpc"
	"github.com/stockctrl/stockctrl/internal/httpapi"
	"github.com/stockctrl/stockctrl/internal/observability"
	"github.com/stockctrl/stockctrl/internal/schema"
)

const shutdownTimeout = 10 * time.Second

// stopper is a running component that can be shut down.
type stopper interface {
	Stop(ctx context.Context) error
}

func newServeCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC APIs",
		Long: `Serve the account and session APIs over HTTP and gRPC, expose
metrics and health checks, and sweep dead sessions on a schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := env.load(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg, logger, env)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, env *cmdEnv) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := env.deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open storage").Wrap(err)
	}
	defer backend.Close()

	obs := observability.NewServer(cfg.MetricsAddr, backend.Ping, logger)
	authMetrics := auth.NewMetrics(obs.Registry())

	svc, err := buildServices(backend, cfg, logger, authMetrics)
	if err != nil {
		return err
	}

	handler, err := httpapi.New(httpapi.Config{
		Directory:     svc.directory,
		Authenticator: svc.authn,
		Accounts:      backend.Accounts,
		Validator:     schema.NewValidator(),
		Metrics:       obs.Metrics(),
		Logger:        logger,
		CookieSecure:  cfg.CookieSecure,
	})
	if err != nil {
		return err
	}

	sweeper, err := auth.NewSweeper(backend.Sessions, cfg.SweepSchedule, cfg.SweepRetention,
		auth.WithLogger(logger), auth.WithMetrics(authMetrics))
	if err != nil {
		return err
	}

	// Components are stopped in reverse start order.
	var running []stopper
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		for i := len(running) - 1; i >= 0; i-- {
			if stopErr := running[i].Stop(shutdownCtx); stopErr != nil {
				logger.Warn("error during shutdown", "error", stopErr)
			}
		}
		logger.Info("shutdown complete")
	}()

	var addrs ServeAddrs

	if cfg.MetricsAddr != "" {
		obsErrCh, startErr := obs.Start()
		if startErr != nil {
			return startErr
		}
		running = append(running, obs)
		addrs.Metrics = obs.Addr()
		go monitorServerErrors(ctx, cancel, logger, obsErrCh, "observability")
	}

	httpServer := httpapi.NewServer(cfg.HTTPAddr, handler.Router(), logger)
	httpErrCh, err := httpServer.Start()
	if err != nil {
		return err
	}
	running = append(running, httpServer)
	addrs.HTTP = httpServer.Addr()
	go monitorServerErrors(ctx, cancel, logger, httpErrCh, "http")

	if cfg.GRPCAddr != "" {
		grpcServer, grpcErr := stockgrpc.NewServer(stockgrpc.ServerConfig{
			Addr:              cfg.GRPCAddr,
			Authenticator:     svc.authn,
			ProtectedPatterns: cfg.GRPCProtectedMethods,
			Metrics:           obs.Metrics(),
			Logger:            logger,
		})
		if grpcErr != nil {
			return grpcErr
		}
		grpcErrCh, startErr := grpcServer.Start()
		if startErr != nil {
			return startErr
		}
		running = append(running, grpcServer)
		addrs.GRPC = grpcServer.Addr()
		go monitorServerErrors(ctx, cancel, logger, grpcErrCh, "grpc")
	}

	if err := sweeper.Start(); err != nil {
		return err
	}
	running = append(running, sweeper)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("StockCtrl started")
	logger.Info("stockctrl ready",
		"http_addr", addrs.HTTP,
		"grpc_addr", addrs.GRPC,
		"metrics_addr", addrs.Metrics,
		"profile_session_model", cfg.ProfileSessionModel,
	)
	env.deps.OnReady(addrs)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel is closed or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
