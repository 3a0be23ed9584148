// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	TokenBytes = 32 // 32 bytes = 43 base64url chars

	DefaultExpiryHours = 168  // one week
	MaxExpiryHours     = 8760 // one year
)

// TokenIssuer generates opaque session tokens and computes their expiry.
type TokenIssuer struct {
	expiry time.Duration
}

// NewTokenIssuer creates a TokenIssuer whose tokens live for expiryHours.
// Values outside (0, MaxExpiryHours] are replaced by DefaultExpiryHours and
// reported as a warning on logger.
func NewTokenIssuer(expiryHours int, logger *slog.Logger) *TokenIssuer {
	if expiryHours <= 0 || expiryHours > MaxExpiryHours {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("invalid token expiry, using default",
			"configured_hours", expiryHours,
			"max_hours", MaxExpiryHours,
			"default_hours", DefaultExpiryHours)
		expiryHours = DefaultExpiryHours
	}
	return &TokenIssuer{expiry: time.Duration(expiryHours) * time.Hour}
}

// ParseExpiryHours converts a configured expiry string into hours.
// Non-numeric and out-of-range input yields DefaultExpiryHours with a warning;
// an empty string silently yields the default.
func ParseExpiryHours(raw string, logger *slog.Logger) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultExpiryHours
	}
	if logger == nil {
		logger = slog.Default()
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("non-numeric token expiry, using default",
			"configured", raw,
			"default_hours", DefaultExpiryHours)
		return DefaultExpiryHours
	}
	if hours <= 0 || hours > MaxExpiryHours {
		logger.Warn("invalid token expiry, using default",
			"configured_hours", hours,
			"max_hours", MaxExpiryHours,
			"default_hours", DefaultExpiryHours)
		return DefaultExpiryHours
	}
	return hours
}

// Expiry returns the token lifetime in effect.
func (ti *TokenIssuer) Expiry() time.Duration {
	return ti.expiry
}

// Issue creates a new random token.
func (ti *TokenIssuer) Issue() (string, error) {
	return randomString(TokenBytes, CodeRandomFailed)
}

// ExpiryFor returns the expiry timestamp of a token issued at issuedAt.
func (ti *TokenIssuer) ExpiryFor(issuedAt time.Time) time.Time {
	return issuedAt.Add(ti.expiry)
}

// randomString returns n bytes from crypto/rand, base64url encoded without padding.
func randomString(n int, code string) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code(code).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", n).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
