// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package config loads StockCtrl settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// Config holds every setting the stockctrl binary reads.
type Config struct {
	DatabaseURL    string        `koanf:"database-url" env:"DATABASE_URL"`
	ConnectTimeout time.Duration `koanf:"connect-timeout" env:"STOCKCTRL_CONNECT_TIMEOUT"`
	ConnectRetries uint64        `koanf:"connect-retries" env:"STOCKCTRL_CONNECT_RETRIES"`

	HTTPAddr    string `koanf:"http-addr" env:"STOCKCTRL_HTTP_ADDR"`
	GRPCAddr    string `koanf:"grpc-addr" env:"STOCKCTRL_GRPC_ADDR"`
	MetricsAddr string `koanf:"metrics-addr" env:"STOCKCTRL_METRICS_ADDR"`
	LogFormat   string `koanf:"log-format" env:"STOCKCTRL_LOG_FORMAT"`

	SessionTTL          time.Duration     `koanf:"session-ttl" env:"STOCKCTRL_SESSION_TTL"`
	LoginFailureDelay   time.Duration     `koanf:"login-failure-delay" env:"STOCKCTRL_LOGIN_FAILURE_DELAY"`
	HashAlgorithm       string            `koanf:"hash-algorithm" env:"STOCKCTRL_HASH_ALGORITHM"`
	BcryptCost          int               `koanf:"bcrypt-cost" env:"STOCKCTRL_BCRYPT_COST"`
	HashConcurrency     int               `koanf:"hash-concurrency" env:"STOCKCTRL_HASH_CONCURRENCY"`
	ProfileSessionModel auth.SessionModel `koanf:"profile-session-model" env:"STOCKCTRL_PROFILE_SESSION_MODEL"`

	SweepSchedule  string        `koanf:"sweep-schedule" env:"STOCKCTRL_SWEEP_SCHEDULE"`
	SweepRetention time.Duration `koanf:"sweep-retention" env:"STOCKCTRL_SWEEP_RETENTION"`

	CookieSecure         bool     `koanf:"cookie-secure" env:"STOCKCTRL_COOKIE_SECURE"`
	GRPCProtectedMethods []string `koanf:"grpc-protected-methods" env:"STOCKCTRL_GRPC_PROTECTED_METHODS" envSeparator:","`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ConnectTimeout:      500 * time.Millisecond,
		ConnectRetries:      5,
		HTTPAddr:            ":8080",
		GRPCAddr:            ":9090",
		MetricsAddr:         "127.0.0.1:9100",
		LogFormat:           "json",
		SessionTTL:          auth.DefaultSessionTTL,
		LoginFailureDelay:   auth.DefaultLoginFailureDelay,
		HashAlgorithm:       auth.AlgorithmBcrypt,
		BcryptCost:          bcrypt.DefaultCost,
		ProfileSessionModel: auth.SessionModelRecord,
		SweepSchedule:       auth.DefaultSweepSchedule,
		SweepRetention:      auth.DefaultSweepRetention,
		CookieSecure:        true,
		GRPCProtectedMethods: []string{
			"/stockctrl.auth.v1.AuthService/Whoami",
			"/stockctrl.auth.v1.AuthService/Logout",
		},
	}
}

// RegisterFlags defines a flag for every key on fs, defaulted from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", d.DatabaseURL, "PostgreSQL connection URL")
	fs.Duration("connect-timeout", d.ConnectTimeout, "database connect timeout per attempt")
	fs.Uint64("connect-retries", d.ConnectRetries, "database connect retries")
	fs.String("http-addr", d.HTTPAddr, "HTTP API listen address")
	fs.String("grpc-addr", d.GRPCAddr, "gRPC listen address (empty = disabled)")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.Duration("session-ttl", d.SessionTTL, "session token lifetime")
	fs.Duration("login-failure-delay", d.LoginFailureDelay, "delay applied to every failed login")
	fs.String("hash-algorithm", d.HashAlgorithm, "password hash algorithm for new hashes (bcrypt or argon2id)")
	fs.Int("bcrypt-cost", d.BcryptCost, "bcrypt cost factor")
	fs.Int("hash-concurrency", d.HashConcurrency, "maximum concurrent hash operations (0 = GOMAXPROCS)")
	fs.String("profile-session-model", string(d.ProfileSessionModel), "profile session storage (record or embedded)")
	fs.String("sweep-schedule", d.SweepSchedule, "cron schedule for deleting dead sessions")
	fs.Duration("sweep-retention", d.SweepRetention, "how long dead sessions are kept")
	fs.Bool("cookie-secure", d.CookieSecure, "mark session cookies Secure")
	fs.StringSlice("grpc-protected-methods", d.GRPCProtectedMethods, "gRPC method globs that require a bearer token")
}

// Load builds a Config. path may be empty. Only flags the user set on fs
// override the file and environment.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if fs != nil {
		k := koanf.New(".")
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", nil, changedFlag), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	return &cfg, nil
}

func changedFlag(f *pflag.Flag) (string, any) {
	if !f.Changed {
		return "", nil
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return f.Name, sv.GetSlice()
	}
	return f.Name, f.Value.String()
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return fmt.Errorf("database-url is required (or set DATABASE_URL)")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	case c.HashAlgorithm != auth.AlgorithmBcrypt && c.HashAlgorithm != auth.AlgorithmArgon2id:
		return fmt.Errorf("hash-algorithm must be %q or %q, got %q", auth.AlgorithmBcrypt, auth.AlgorithmArgon2id, c.HashAlgorithm)
	case c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("bcrypt-cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	case c.HashConcurrency < 0:
		return fmt.Errorf("hash-concurrency must not be negative")
	case c.ProfileSessionModel != auth.SessionModelRecord && c.ProfileSessionModel != auth.SessionModelEmbedded:
		return fmt.Errorf("profile-session-model must be 'record' or 'embedded', got %q", c.ProfileSessionModel)
	case c.SessionTTL <= 0:
		return fmt.Errorf("session-ttl must be positive")
	case c.LoginFailureDelay < 0:
		return fmt.Errorf("login-failure-delay must not be negative")
	case c.ConnectTimeout <= 0:
		return fmt.Errorf("connect-timeout must be positive")
	case c.HTTPAddr == "":
		return fmt.Errorf("http-addr is required")
	}
	return nil
}
