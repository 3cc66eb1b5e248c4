// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/stockctrl/stockctrl/internal/observability"
)

// ServerConfig holds the gRPC server dependencies.
type ServerConfig struct {
	Addr              string
	Authenticator     Authenticator
	ProtectedPatterns []string
	Metrics           *observability.Metrics
	Logger            *slog.Logger
}

// Server runs AuthService and the standard health service.
type Server struct {
	addr     string
	grpc     *grpc.Server
	health   *health.Server
	logger   *slog.Logger
	listener net.Listener
	running  atomic.Bool
}

// NewServer builds the gRPC server. Calls to methods matching
// cfg.ProtectedPatterns must carry an "authorization: Bearer" header.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	authSrv, err := NewAuthServer(cfg.Authenticator, cfg.Logger)
	if err != nil {
		return nil, err
	}
	interceptor, err := NewAuthInterceptor(cfg.Authenticator, cfg.ProtectedPatterns, cfg.Logger)
	if err != nil {
		return nil, err
	}

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		MetricsInterceptor(cfg.Metrics),
		interceptor.Unary(),
	))
	RegisterAuthService(gs, authSrv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{addr: cfg.Addr, grpc: gs, health: hs, logger: cfg.Logger}, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("GRPC_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	return s.Serve(listener)
}

// Serve serves on listener in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Serve(listener net.Listener) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		_ = listener.Close() //nolint:errcheck // unused listener
		return nil, oops.Code("GRPC_SERVER_RUNNING").Errorf("grpc server already running")
	}
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("grpc server error", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("grpc server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop marks the services not serving and drains calls until ctx is done,
// then closes remaining connections.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("grpc server stopped")
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		<-done
		return oops.Code("GRPC_SHUTDOWN_TIMEOUT").Wrap(ctx.Err())
	}
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
