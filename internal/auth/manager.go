// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/usermgmt/pkg/errutil"
)

// GeneratedPasswordBytes is the entropy of passwords produced by ResetPassword.
const GeneratedPasswordBytes = 12

// Config holds the construction-time policy of a Manager.
// Invalid values degrade to defaults with a logged warning.
type Config struct {
	HashIterations   int
	TokenExpiryHours int
}

// DefaultConfig returns the reference policy.
func DefaultConfig() Config {
	return Config{
		HashIterations:   DefaultHashIterations,
		TokenExpiryHours: DefaultExpiryHours,
	}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the Manager and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

type lifecycle int32

const (
	stateUnloaded lifecycle = iota
	stateLoading
	stateReady
	stateClosed
)

// AuthResult is the outcome of AuthenticateUser.
// PasswordsMatch is false whenever UserExists is false, and Token is empty
// unless both are true.
type AuthResult struct {
	UserExists     bool
	PasswordsMatch bool
	Token          string
}

// authStep names a stage of the authentication workflow.
type authStep string

const (
	stepCheckExists    authStep = "check_exists"
	stepFetchRecord    authStep = "fetch_record"
	stepVerifyPassword authStep = "verify_password"
	stepIssueToken     authStep = "issue_token"
)

// Manager is the account façade: it combines a CredentialStore and a
// SessionManager over one Repository and guards every operation with the
// Load/Close lifecycle.
type Manager struct {
	repo     Repository
	creds    *CredentialStore
	sessions *SessionManager
	logger   *slog.Logger
	now      func() time.Time
	state    atomic.Int32
}

// NewManager creates an unloaded Manager. Call Load before any other operation.
func NewManager(repo Repository, cfg Config, opts ...Option) (*Manager, error) {
	if repo == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("repository is required")
	}

	m := &Manager{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	creds, err := NewCredentialStore(repo, NewHasher(cfg.HashIterations, m.logger), m.logger)
	if err != nil {
		return nil, err
	}
	creds.now = m.now

	sessions, err := NewSessionManager(repo, NewTokenIssuer(cfg.TokenExpiryHours, m.logger), creds, m.logger)
	if err != nil {
		return nil, err
	}
	sessions.now = m.now

	m.creds = creds
	m.sessions = sessions
	return m, nil
}

// Load connects the Repository. A Manager can be loaded once.
func (m *Manager) Load(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(stateUnloaded), int32(stateLoading)) {
		if lifecycle(m.state.Load()) == stateClosed {
			return oops.Code(CodeClosed).With("operation", "Load").Wrap(ErrUsage)
		}
		return oops.Code(CodeAlreadyLoaded).With("operation", "Load").Wrap(ErrUsage)
	}

	if err := m.repo.Connect(ctx); err != nil {
		m.state.Store(int32(stateUnloaded))
		return oops.Code(CodeConnectFailed).
			With("operation", "connect repository").
			Wrap(err)
	}

	m.state.Store(int32(stateReady))
	m.logger.Info("user management loaded")
	return nil
}

// Close releases the Repository. Operations fail with USAGE_CLOSED afterwards.
func (m *Manager) Close(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(stateReady), int32(stateClosed)) {
		return m.usageError("Close")
	}
	if err := m.repo.Close(ctx); err != nil {
		return storeError("close repository", err)
	}
	return nil
}

// Ready reports whether Load has completed and Close has not been called.
func (m *Manager) Ready() bool {
	return lifecycle(m.state.Load()) == stateReady
}

func (m *Manager) ready(operation string) error {
	if m.Ready() {
		return nil
	}
	return m.usageError(operation)
}

func (m *Manager) usageError(operation string) error {
	code := CodeNotLoaded
	if lifecycle(m.state.Load()) == stateClosed {
		code = CodeClosed
	}
	return oops.Code(code).With("operation", operation).Wrap(ErrUsage)
}

// CreateUser registers a new user. Fails with AUTH_USER_EXISTS if the
// username is taken.
func (m *Manager) CreateUser(ctx context.Context, username, password string, extras Extras) error {
	if err := m.ready("CreateUser"); err != nil {
		return err
	}
	if err := m.creds.CreateUser(ctx, username, password, extras); err != nil {
		return err
	}
	m.logger.Info("user created", "username", username)
	return nil
}

// UserExists reports whether username is registered.
func (m *Manager) UserExists(ctx context.Context, username string) (bool, error) {
	if err := m.ready("UserExists"); err != nil {
		return false, err
	}
	return m.creds.UserExists(ctx, username)
}

// AuthenticateUser checks username and password and, on success, issues a new
// session token that replaces any previous one.
//
// The steps run strictly in order and stop at the first conclusive outcome:
// an unknown user or a wrong password ends successfully with no token, while
// any store failure aborts with an error and no result.
func (m *Manager) AuthenticateUser(ctx context.Context, username, password string) (AuthResult, error) {
	if err := m.ready("AuthenticateUser"); err != nil {
		return AuthResult{}, err
	}

	started := time.Now()
	res, err := m.authenticate(ctx, username, password)
	switch {
	case err != nil:
		recordAuthAttempt(ResultError, started)
	case !res.UserExists:
		recordAuthAttempt(ResultUnknownUser, started)
	case !res.PasswordsMatch:
		recordAuthAttempt(ResultWrongPassword, started)
	default:
		recordAuthAttempt(ResultSuccess, started)
	}
	return res, err
}

func (m *Manager) authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	exists, err := m.creds.UserExists(ctx, username)
	if err != nil {
		return AuthResult{}, stepError(stepCheckExists, username, err)
	}
	if !exists {
		return AuthResult{UserExists: false}, nil
	}

	rec, ok, err := m.creds.Find(ctx, ByUsername(username))
	if err != nil {
		return AuthResult{}, stepError(stepFetchRecord, username, err)
	}
	if !ok {
		err := oops.Code(CodeInconsistent).
			With("step", string(stepFetchRecord)).
			With("username", username).
			Wrap(ErrCorruptRecord)
		errutil.LogError(m.logger, "user vanished after existence check", err)
		return AuthResult{}, err
	}

	matches, err := m.creds.Check(rec, password)
	if err != nil {
		return AuthResult{}, stepError(stepVerifyPassword, username, err)
	}
	if !matches {
		return AuthResult{UserExists: true, PasswordsMatch: false}, nil
	}

	token, err := m.sessions.IssueTokenFor(ctx, username)
	if err != nil {
		return AuthResult{}, stepError(stepIssueToken, username, err)
	}
	return AuthResult{UserExists: true, PasswordsMatch: true, Token: token}, nil
}

func stepError(step authStep, username string, err error) error {
	return oops.With("step", string(step)).With("username", username).Wrap(err)
}

// IsTokenValid reports whether token belongs to a user and has not expired.
func (m *Manager) IsTokenValid(ctx context.Context, token string) (bool, error) {
	if err := m.ready("IsTokenValid"); err != nil {
		return false, err
	}
	return m.sessions.IsValid(ctx, token)
}

// UsernameForToken returns the username holding token.
func (m *Manager) UsernameForToken(ctx context.Context, token string) (string, bool, error) {
	if err := m.ready("UsernameForToken"); err != nil {
		return "", false, err
	}
	return m.sessions.UsernameFor(ctx, token)
}

// TokenForUsername returns the token currently stored for username.
func (m *Manager) TokenForUsername(ctx context.Context, username string) (string, bool, error) {
	if err := m.ready("TokenForUsername"); err != nil {
		return "", false, err
	}
	return m.sessions.TokenFor(ctx, username)
}

// GetExtrasForUsername returns the extras of username.
func (m *Manager) GetExtrasForUsername(ctx context.Context, username string) (Extras, bool, error) {
	if err := m.ready("GetExtrasForUsername"); err != nil {
		return nil, false, err
	}
	return m.creds.Extras(ctx, ByUsername(username))
}

// GetExtrasForToken returns the extras of the user holding token.
func (m *Manager) GetExtrasForToken(ctx context.Context, token string) (Extras, bool, error) {
	if err := m.ready("GetExtrasForToken"); err != nil {
		return nil, false, err
	}
	return m.creds.Extras(ctx, ByToken(token))
}

// SetExtrasForUsername replaces the extras of username. Unknown usernames are ignored.
func (m *Manager) SetExtrasForUsername(ctx context.Context, username string, extras Extras) error {
	if err := m.ready("SetExtrasForUsername"); err != nil {
		return err
	}
	return m.creds.SetExtras(ctx, ByUsername(username), extras)
}

// SetExtrasForToken replaces the extras of the user holding token. Unknown tokens are ignored.
func (m *Manager) SetExtrasForToken(ctx context.Context, token string, extras Extras) error {
	if err := m.ready("SetExtrasForToken"); err != nil {
		return err
	}
	return m.creds.SetExtras(ctx, ByToken(token), extras)
}

// ChangePassword replaces the password of the user holding token after
// re-checking oldPassword. The change logs the user out, invalidating token.
func (m *Manager) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) (err error) {
	if err := m.ready("ChangePassword"); err != nil {
		return err
	}
	defer func() { recordPasswordChange(KindChange, err) }()

	if newPassword == "" {
		return ErrEmptyPassword
	}

	username, err := m.sessions.ResolveToken(ctx, token)
	if err != nil {
		return err
	}

	res, err := m.authenticate(ctx, username, oldPassword)
	if err != nil {
		return oops.With("operation", "reauthenticate").Wrap(err)
	}
	if !res.UserExists {
		return unknownUserError(username)
	}
	if !res.PasswordsMatch {
		return oops.Code(CodeWrongPassword).
			With("username", username).
			Wrap(ErrInvalidCredential)
	}

	if err := m.creds.SetPassword(ctx, username, newPassword); err != nil {
		return err
	}
	m.logger.Info("password changed", "username", username)
	return nil
}

// ResetPassword sets a freshly generated password for username and returns it.
// The plaintext is returned exactly once and never stored or logged.
func (m *Manager) ResetPassword(ctx context.Context, username string) (password string, err error) {
	if err := m.ready("ResetPassword"); err != nil {
		return "", err
	}
	defer func() { recordPasswordChange(KindReset, err) }()

	generated, err := randomString(GeneratedPasswordBytes, CodeRandomFailed)
	if err != nil {
		return "", err
	}
	if err := m.creds.SetPassword(ctx, username, generated); err != nil {
		return "", err
	}
	m.logger.Info("password reset", "username", username)
	return generated, nil
}

// ExpireToken logs out the user holding token.
func (m *Manager) ExpireToken(ctx context.Context, token string) error {
	if err := m.ready("ExpireToken"); err != nil {
		return err
	}
	return m.sessions.Expire(ctx, token)
}

// RemoveUser deletes username. Removing an unknown user succeeds.
func (m *Manager) RemoveUser(ctx context.Context, username string) error {
	if err := m.ready("RemoveUser"); err != nil {
		return err
	}
	if err := m.creds.RemoveUser(ctx, username); err != nil {
		return err
	}
	m.logger.Info("user removed", "username", username)
	return nil
}

// GetUserList returns the usernames of all registered users.
func (m *Manager) GetUserList(ctx context.Context) ([]string, error) {
	if err := m.ready("GetUserList"); err != nil {
		return nil, err
	}
	return m.creds.Usernames(ctx)
}

// ResetForTests removes every user. It exists for test fixtures only.
func (m *Manager) ResetForTests(ctx context.Context) error {
	if err := m.ready("ResetForTests"); err != nil {
		return err
	}
	if err := m.repo.DropAll(ctx); err != nil {
		return storeError("drop all users", err)
	}
	return nil
}
