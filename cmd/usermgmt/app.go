// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/config"
	"github.com/holomush/usermgmt/internal/logging"
	"github.com/holomush/usermgmt/internal/observability"
	"github.com/holomush/usermgmt/pkg/errutil"
)

const serviceName = "usermgmt"

// app is the per-invocation state shared by the subcommands.
type app struct {
	deps    *Deps
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	manager *auth.Manager
}

// newApp resolves configuration and logging for cmd. The Manager is not
// created until connect is called.
func newApp(cmd *cobra.Command, deps *Deps) (*app, error) {
	cfg, err := config.Loader{LookupEnv: deps.LookupEnv}.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, deps.LogWriter)

	return &app{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}, nil
}

// connect builds the Manager for the configured backend and loads it,
// retrying connection failures with exponential backoff.
func (a *app) connect(ctx context.Context) error {
	repo, err := a.deps.RepositoryFactory(a.cfg)
	if err != nil {
		return oops.With("operation", "create repository").Wrap(err)
	}

	manager, err := auth.NewManager(repo, a.cfg.AuthConfig(a.logger), auth.WithLogger(a.logger))
	if err != nil {
		return oops.With("operation", "create manager").Wrap(err)
	}

	backoff := retry.WithMaxRetries(a.deps.ConnectRetries, retry.NewExponential(a.deps.ConnectBaseDelay))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		loadErr := manager.Load(ctx)
		if loadErr == nil {
			a.metrics.BackendConnects.WithLabelValues(a.cfg.Backend, "success").Inc()
			return nil
		}
		a.metrics.BackendConnects.WithLabelValues(a.cfg.Backend, "failure").Inc()
		if errutil.Code(loadErr) != auth.CodeConnectFailed {
			return loadErr
		}
		a.logger.Warn("backend connection failed",
			"backend", a.cfg.Backend,
			"attempt", attempt,
			"error", loadErr)
		return retry.RetryableError(loadErr)
	})
	if err != nil {
		return oops.With("backend", a.cfg.Backend).With("attempts", attempt).Wrap(err)
	}

	a.manager = manager
	a.logger.Debug("backend connected", "backend", a.cfg.Backend, "attempts", attempt)
	return nil
}

// close releases the Manager. Failures are logged, not returned, so they
// never mask the command's own result.
func (a *app) close(ctx context.Context) {
	if a.manager == nil {
		return
	}
	if err := a.manager.Close(ctx); err != nil {
		errutil.LogError(a.logger, "failed to close user store", err)
	}
}

func (a *app) recordCommand(name string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.Commands.WithLabelValues(name, status).Inc()
}

// withManager runs fn against a loaded Manager and closes it afterwards.
func withManager(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd, deps)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = a.connect(ctx)
	if err == nil {
		err = fn(ctx, a)
		a.close(ctx)
	}
	a.recordCommand(cmd.CommandPath(), err)
	if err != nil {
		errutil.LogError(a.logger, "command failed", err)
	}
	return err
}
