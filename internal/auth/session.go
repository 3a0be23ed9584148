// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionManager issues, checks and expires the single live token of each user.
// Expiry is lazy: an expired token stays on its record until it is
// overwritten or cleared, but every check treats it as invalid.
type SessionManager struct {
	repo   Repository
	issuer *TokenIssuer
	creds  *CredentialStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(repo Repository, issuer *TokenIssuer, creds *CredentialStore, logger *slog.Logger) (*SessionManager, error) {
	if repo == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("repository is required")
	}
	if issuer == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("token issuer is required")
	}
	if creds == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("credential store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		repo:   repo,
		issuer: issuer,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}, nil
}

// IssueTokenFor generates a token for username and stores it with its expiry
// in one update, replacing any token the user already had.
func (s *SessionManager) IssueTokenFor(ctx context.Context, username string) (string, error) {
	token, err := s.issuer.Issue()
	if err != nil {
		return "", err
	}

	session := &Session{
		Token:     token,
		ExpiresAt: s.issuer.ExpiryFor(s.now()),
	}
	err = s.repo.UpdateFields(ctx, ByUsername(username), Update{SetSession: session})
	if errors.Is(err, ErrNotFound) {
		return "", unknownUserError(username)
	}
	if err != nil {
		return "", storeError("store session token", err)
	}
	s.logger.Debug("session token issued", "username", username, "expires_at", session.ExpiresAt)
	return token, nil
}

// IsValid reports whether some record holds token and its expiry has not passed.
func (s *SessionManager) IsValid(ctx context.Context, token string) (bool, error) {
	rec, ok, err := s.creds.Find(ctx, ByToken(token))
	if err != nil {
		recordTokenCheck(ResultError)
		return false, err
	}
	if !ok || rec.Session == nil || rec.Session.Token != token {
		recordTokenCheck(ResultInvalid)
		return false, nil
	}
	if rec.Session.IsExpiredAt(s.now()) {
		recordTokenCheck(ResultExpired)
		return false, nil
	}
	recordTokenCheck(ResultValid)
	return true, nil
}

// Expire clears token from its record. An unknown token is not an error.
func (s *SessionManager) Expire(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.repo.UpdateFields(ctx, ByToken(token), Update{ClearSession: true})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return storeError("clear session token", err)
	}
	return nil
}

// UsernameFor returns the username holding token, whether or not it has expired.
func (s *SessionManager) UsernameFor(ctx context.Context, token string) (string, bool, error) {
	rec, ok, err := s.creds.Find(ctx, ByToken(token))
	if err != nil || !ok {
		return "", false, err
	}
	return rec.Username, true, nil
}

// TokenFor returns the token currently stored for username, whether or not it has expired.
func (s *SessionManager) TokenFor(ctx context.Context, username string) (string, bool, error) {
	rec, ok, err := s.creds.Find(ctx, ByUsername(username))
	if err != nil || !ok || rec.Session == nil {
		return "", false, err
	}
	return rec.Session.Token, true, nil
}

// ResolveToken validates token and returns the username it belongs to.
// Fails with AUTH_INVALID_TOKEN for a missing or expired token, and with
// AUTH_UNKNOWN_USER if the owning record vanished between the two lookups.
func (s *SessionManager) ResolveToken(ctx context.Context, token string) (string, error) {
	valid, err := s.IsValid(ctx, token)
	if err != nil {
		return "", err
	}
	if !valid {
		return "", oops.Code(CodeInvalidToken).Wrap(ErrInvalidCredential)
	}

	username, ok, err := s.UsernameFor(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", oops.Code(CodeUnknownUser).
			With("operation", "resolve token").
			Wrap(ErrInvalidCredential)
	}
	return username, nil
}
