// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for authentication metrics.
const (
	ResultSuccess       = "success"
	ResultUnknownUser   = "unknown_user"
	ResultWrongPassword = "wrong_password"
	ResultError         = "error"
	ResultValid         = "valid"
	ResultInvalid       = "invalid"
	ResultExpired       = "expired"
)

// Password change kinds.
const (
	KindChange = "change"
	KindReset  = "reset"
)

// AuthAttempts counts AuthenticateUser outcomes.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usermgmt_auth_attempts_total",
		Help: "Total number of authentication attempts by result",
	},
	[]string{"result"},
)

// AuthDuration observes how long AuthenticateUser takes end to end.
var AuthDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "usermgmt_auth_duration_seconds",
		Help:    "Authentication duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// TokenChecks counts IsTokenValid outcomes.
var TokenChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usermgmt_token_checks_total",
		Help: "Total number of session token checks by result",
	},
	[]string{"result"},
)

// PasswordChanges counts password changes and resets.
var PasswordChanges = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usermgmt_password_changes_total",
		Help: "Total number of password changes by kind and status",
	},
	[]string{"kind", "status"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(AuthDuration)
	reg.MustRegister(TokenChecks)
	reg.MustRegister(PasswordChanges)
}

func recordAuthAttempt(result string, started time.Time) {
	AuthAttempts.WithLabelValues(result).Inc()
	AuthDuration.Observe(time.Since(started).Seconds())
}

func recordTokenCheck(result string) {
	TokenChecks.WithLabelValues(result).Inc()
}

func recordPasswordChange(kind string, err error) {
	status := ResultSuccess
	if err != nil {
		status = ResultError
	}
	PasswordChanges.WithLabelValues(kind, status).Inc()
}
