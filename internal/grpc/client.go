// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package grpc

import (
	"context"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls AuthService.
type Client struct {
	conn *grpc.ClientConn
}

// ClientConfig holds configuration for the gRPC client.
type ClientConfig struct {
	// Address is the target server address (e.g., "localhost:9090").
	Address string

	// KeepaliveTime is how often to ping the server (default: 10s).
	KeepaliveTime time.Duration

	// KeepaliveTimeout is how long to wait for a ping response (default: 5s).
	KeepaliveTimeout time.Duration

	// DialOptions are appended to the defaults.
	DialOptions []grpc.DialOption
}

// NewClient creates a client. The connection is established lazily.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Address == "" {
		return nil, oops.Code("GRPC_INVALID_CONFIG").Errorf("address is required")
	}
	if cfg.KeepaliveTime == 0 {
		cfg.KeepaliveTime = 10 * time.Second
	}
	if cfg.KeepaliveTimeout == 0 {
		cfg.KeepaliveTimeout = 5 * time.Second
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, oops.Code("GRPC_DIAL_FAILED").With("address", cfg.Address).Wrap(err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return oops.Code("GRPC_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Conn returns the underlying connection, for example to query the health
// service.
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

// Login exchanges credentials for a token. The returned error carries the
// server's gRPC status.
func (c *Client) Login(ctx context.Context, kind, username, password string) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{
		"kind":     kind,
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, oops.Code("GRPC_ENCODE_FAILED").Wrap(err)
	}
	return c.invoke(ctx, LoginMethod, "", req)
}

// Whoami returns the principal for token.
func (c *Client) Whoami(ctx context.Context, token string) (*structpb.Struct, error) {
	return c.invoke(ctx, WhoamiMethod, token, &structpb.Struct{})
}

// Logout revokes token.
func (c *Client) Logout(ctx context.Context, token string) (*structpb.Struct, error) {
	return c.invoke(ctx, LogoutMethod, token, &structpb.Struct{})
}

func (c *Client) invoke(ctx context.Context, method, token string, req *structpb.Struct) (*structpb.Struct, error) {
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, out); err != nil {
		return nil, err //nolint:wrapcheck // callers inspect the gRPC status
	}
	return out, nil
}
