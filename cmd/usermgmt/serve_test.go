// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/usermgmt/internal/observability"
	"github.com/holomush/usermgmt/pkg/errutil"
)

type fakeObservabilityServer struct {
	mu        sync.Mutex
	addr      string
	readiness observability.ReadinessChecker
	metrics   *observability.Metrics
	startErr  error
	errCh     chan error
	started   atomic.Bool
	stopped   atomic.Bool
}

func newFakeObservabilityServer() *fakeObservabilityServer {
	return &fakeObservabilityServer{
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		errCh:   make(chan error, 1),
	}
}

func (f *fakeObservabilityServer) Start() (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started.Store(true)
	return f.errCh, nil
}

func (f *fakeObservabilityServer) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func (f *fakeObservabilityServer) Addr() string { return f.addr }

func (f *fakeObservabilityServer) Metrics() *observability.Metrics { return f.metrics }

func (f *fakeObservabilityServer) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readiness != nil && f.readiness()
}

// serveHarness wires a fake observability server and a cancellable
// shutdown context into the CLI.
func serveHarness(t *testing.T, srv *fakeObservabilityServer) (*harness, context.CancelFunc) {
	t.Helper()
	h := newHarness(t)

	shutdownCtx, shutdown := context.WithCancel(context.Background())
	h.deps.ShutdownContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
		merged, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-shutdownCtx.Done():
				cancel()
			case <-merged.Done():
			}
		}()
		return merged, cancel
	}
	h.deps.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, _ *slog.Logger) ObservabilityServer {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		srv.addr = addr
		srv.readiness = readiness
		return srv
	}
	return h, shutdown
}

func TestServe_ReadyUntilShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newFakeObservabilityServer()
	h, shutdown := serveHarness(t, srv)

	done := make(chan result, 1)
	go func() {
		done <- h.run(t, "", "serve", "--metrics-addr", "127.0.0.1:0")
	}()

	require.Eventually(t, srv.ready, 2*time.Second, 5*time.Millisecond)
	assert.True(t, srv.started.Load())
	assert.Equal(t, "127.0.0.1:0", srv.addr)

	shutdown()

	select {
	case res := <-done:
		require.NoError(t, res.err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after shutdown")
	}

	assert.True(t, srv.stopped.Load())
	assert.False(t, srv.ready(), "readiness drops once the store is closed")
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.BackendConnects.WithLabelValues("memory", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.Commands.WithLabelValues("usermgmt serve", "success")), 0)
}

func TestServe_ServerErrorStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newFakeObservabilityServer()
	h, shutdown := serveHarness(t, srv)
	defer shutdown()

	srv.errCh <- errors.New("listener closed")

	res := h.run(t, "", "serve")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "OBSERVABILITY_FAILED")
	assert.True(t, srv.stopped.Load())
}

func TestServe_StartFailure(t *testing.T) {
	srv := newFakeObservabilityServer()
	srv.startErr = errors.New("address in use")
	h, shutdown := serveHarness(t, srv)
	defer shutdown()

	res := h.run(t, "", "serve")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "OBSERVABILITY_START_FAILED")
	errutil.AssertErrorContext(t, res.err, "addr", "127.0.0.1:9100")
}

func TestServe_WithoutMetricsAddr(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newFakeObservabilityServer()
	h, shutdown := serveHarness(t, srv)

	done := make(chan result, 1)
	go func() {
		done <- h.run(t, "", "serve", "--metrics-addr", "")
	}()

	time.Sleep(20 * time.Millisecond)
	shutdown()

	select {
	case res := <-done:
		require.NoError(t, res.err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after shutdown")
	}
	assert.False(t, srv.started.Load(), "no observability server without metrics_addr")
}
