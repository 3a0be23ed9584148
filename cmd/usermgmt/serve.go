// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"sync/atomic"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Hold the user store open and serve metrics and health probes",
		Long: `Connect to the configured backend and serve /metrics,
/healthz/liveness and /healthz/readiness on metrics_addr until SIGINT or
SIGTERM. Readiness turns green once the user store is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, deps)
		},
	}
}

func runServe(cmd *cobra.Command, deps *Deps) (err error) {
	a, err := newApp(cmd, deps)
	if err != nil {
		return err
	}

	ctx, stop := deps.ShutdownContext(cmd.Context())
	defer stop()

	var current atomic.Pointer[auth.Manager]
	var serveErrs <-chan error

	if a.cfg.MetricsAddr != "" {
		srv := deps.ObservabilityServerFactory(a.cfg.MetricsAddr, func() bool {
			m := current.Load()
			return m != nil && m.Ready()
		}, a.logger)
		a.metrics = srv.Metrics()

		serveErrs, err = srv.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", a.cfg.MetricsAddr).Wrap(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := srv.Stop(shutdownCtx); stopErr != nil {
				a.logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		cmd.Printf("Observability server listening on %s\n", srv.Addr())
	}

	defer func() {
		a.recordCommand(cmd.CommandPath(), err)
		if err != nil {
			errutil.LogError(a.logger, "command failed", err)
		}
	}()

	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.close(context.Background())
	current.Store(a.manager)

	a.logger.Info("usermgmt ready", "backend", a.cfg.Backend, "metrics_addr", a.cfg.MetricsAddr)

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case serveErr, ok := <-serveErrs:
		if ok && serveErr != nil {
			return oops.Code("OBSERVABILITY_FAILED").Wrap(serveErr)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
