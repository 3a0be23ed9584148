// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"golang.org/x/term"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/auth/memory"
	"github.com/holomush/usermgmt/internal/auth/postgres"
	"github.com/holomush/usermgmt/internal/auth/redisstore"
	"github.com/holomush/usermgmt/internal/config"
	"github.com/holomush/usermgmt/internal/observability"
	"github.com/holomush/usermgmt/internal/store"
)

// Default connection retry policy for Manager.Load.
const (
	defaultConnectRetries   = 4
	defaultConnectBaseDelay = 250 * time.Millisecond
	shutdownTimeout         = 5 * time.Second
)

// Migrator is the subset of store.Migrator used by the migrate command.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer is the subset of observability.Server used by serve.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// RepositoryFactory builds the user store for the configured backend.
	// Default: newRepository
	RepositoryFactory func(cfg *config.Config) (auth.Repository, error)

	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LookupEnv reads environment overrides.
	// Default: os.LookupEnv
	LookupEnv func(string) (string, bool)

	// ReadPassword reads a line from a terminal without echo.
	// Default: term.ReadPassword
	ReadPassword func(fd int) ([]byte, error)

	// IsTerminal reports whether fd is a terminal.
	// Default: term.IsTerminal
	IsTerminal func(fd int) bool

	// StdinFd is the descriptor passed to IsTerminal and ReadPassword.
	// Default: 0 (stdin)
	StdinFd int

	// LogWriter receives structured logs.
	// Default: os.Stderr
	LogWriter io.Writer

	// ShutdownContext derives the context serve waits on.
	// Default: signal.NotifyContext for SIGINT and SIGTERM
	ShutdownContext func(ctx context.Context) (context.Context, context.CancelFunc)

	// ConnectRetries and ConnectBaseDelay bound the exponential backoff
	// used while connecting to the backend.
	ConnectRetries   uint64
	ConnectBaseDelay time.Duration
}

func (d *Deps) withDefaults() *Deps {
	var out Deps
	if d != nil {
		out = *d
	}
	if out.RepositoryFactory == nil {
		out.RepositoryFactory = newRepository
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness, logger)
		}
	}
	if out.LookupEnv == nil {
		out.LookupEnv = os.LookupEnv
	}
	if out.ReadPassword == nil {
		out.ReadPassword = term.ReadPassword
	}
	if out.IsTerminal == nil {
		out.IsTerminal = term.IsTerminal
	}
	if out.LogWriter == nil {
		out.LogWriter = os.Stderr
	}
	if out.ShutdownContext == nil {
		out.ShutdownContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		}
	}
	if out.ConnectRetries == 0 {
		out.ConnectRetries = defaultConnectRetries
	}
	if out.ConnectBaseDelay == 0 {
		out.ConnectBaseDelay = defaultConnectBaseDelay
	}
	return &out
}

// newRepository builds the Repository named by cfg.Backend.
func newRepository(cfg *config.Config) (auth.Repository, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewUserRepository(), nil
	case config.BackendPostgres:
		return postgres.NewUserRepository(cfg.DatabaseURL), nil
	case config.BackendRedis:
		repo, err := redisstore.NewUserRepositoryFromURL(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, oops.With("backend", cfg.Backend).Wrap(err)
		}
		return repo, nil
	default:
		return nil, oops.Code(config.CodeInvalid).
			With("backend", cfg.Backend).
			Errorf("unknown backend")
	}
}
