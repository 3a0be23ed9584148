// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification is the outcome of checking a password against a stored record.
// Matches and Record are only meaningful when Exists is true.
type Verification struct {
	Exists  bool
	Matches bool
	Record  *UserRecord
}

// CredentialStore creates, verifies and replaces passwords on top of a Repository.
type CredentialStore struct {
	repo   Repository
	hasher *Hasher
	logger *slog.Logger
	now    func() time.Time
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(repo Repository, hasher *Hasher, logger *slog.Logger) (*CredentialStore, error) {
	if repo == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("repository is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeInvalidInput).Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}, nil
}

// CreateUser registers username with password and extras.
// Returns an AUTH_USER_EXISTS error if the username is taken.
func (c *CredentialStore) CreateUser(ctx context.Context, username, password string, extras Extras) error {
	if username == "" {
		return oops.Code(CodeInvalidInput).Errorf("username cannot be empty")
	}

	exists, err := c.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return userExistsError(username)
	}

	salt, hash, err := c.hasher.SaltAndHash(password)
	if err != nil {
		return oops.With("operation", "hash password").With("username", username).Wrap(err)
	}

	now := c.now()
	rec := &UserRecord{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
		Extras:       extras.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.repo.Insert(ctx, rec); err != nil {
		// The store's uniqueness constraint caught a concurrent create.
		if errors.Is(err, ErrDuplicateUsername) {
			return userExistsError(username)
		}
		return storeError("insert user", err)
	}
	return nil
}

// UserExists reports whether a record with username exists.
func (c *CredentialStore) UserExists(ctx context.Context, username string) (bool, error) {
	_, ok, err := c.Find(ctx, ByUsername(username))
	return ok, err
}

// Find returns the record matching filter. A missing record is (nil, false, nil).
func (c *CredentialStore) Find(ctx context.Context, filter Filter) (*UserRecord, bool, error) {
	if filter.Value == "" {
		return nil, false, nil
	}
	rec, err := c.repo.FindOne(ctx, filter)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError("find user by "+string(filter.Field), err)
	}
	return rec, true, nil
}

// VerifyPassword checks password against the stored credential of username.
// No hashing is done for an unknown username.
func (c *CredentialStore) VerifyPassword(ctx context.Context, username, password string) (Verification, error) {
	rec, ok, err := c.Find(ctx, ByUsername(username))
	if err != nil {
		return Verification{}, err
	}
	if !ok {
		return Verification{Exists: false}, nil
	}

	matches, err := c.Check(rec, password)
	if err != nil {
		return Verification{}, err
	}
	return Verification{Exists: true, Matches: matches, Record: rec}, nil
}

// Check compares password against rec's salt and hash in constant time.
// A record with malformed credential material is reported as corrupt.
func (c *CredentialStore) Check(rec *UserRecord, password string) (bool, error) {
	if err := rec.checkCredentialShape(); err != nil {
		c.logger.Error("stored credential has invalid shape",
			"username", rec.Username,
			"salt_len", len(rec.PasswordSalt),
			"hash_len", len(rec.PasswordHash))
		return false, err
	}
	return c.hasher.Verify(password, rec.PasswordSalt, rec.PasswordHash)
}

// SetPassword replaces the credential of username and clears its session,
// so a password change always logs the user out.
func (c *CredentialStore) SetPassword(ctx context.Context, username, newPassword string) error {
	salt, hash, err := c.hasher.SaltAndHash(newPassword)
	if err != nil {
		return oops.With("operation", "hash password").With("username", username).Wrap(err)
	}

	err = c.repo.UpdateFields(ctx, ByUsername(username), Update{
		PasswordHash: hash,
		PasswordSalt: salt,
		ClearSession: true,
	})
	if errors.Is(err, ErrNotFound) {
		return unknownUserError(username)
	}
	if err != nil {
		return storeError("update password", err)
	}
	return nil
}

// RemoveUser deletes username. Removing an unknown user is not an error.
func (c *CredentialStore) RemoveUser(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	if err := c.repo.Delete(ctx, ByUsername(username)); err != nil {
		return storeError("delete user", err)
	}
	return nil
}

// Extras returns the attribute bag of the record matching filter.
func (c *CredentialStore) Extras(ctx context.Context, filter Filter) (Extras, bool, error) {
	rec, ok, err := c.Find(ctx, filter)
	if err != nil || !ok {
		return nil, false, err
	}
	return rec.Extras.Clone(), true, nil
}

// SetExtras replaces the attribute bag of the record matching filter.
// Nothing matching is not an error.
func (c *CredentialStore) SetExtras(ctx context.Context, filter Filter, extras Extras) error {
	if filter.Value == "" {
		return nil
	}
	err := c.repo.UpdateFields(ctx, filter, Update{Extras: extras.Clone()})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError("update extras", err)
	}
	return nil
}

// Usernames lists the usernames of every record.
func (c *CredentialStore) Usernames(ctx context.Context) ([]string, error) {
	recs, err := c.repo.FindAll(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	names := make([]string, 0, len(recs))
	for i := range recs {
		names = append(names, recs[i].Username)
	}
	return names, nil
}

func storeError(operation string, err error) error {
	return oops.Code(CodeStoreFailed).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStore, err))
}

func userExistsError(username string) error {
	return oops.Code(CodeUserExists).
		With("username", username).
		Wrap(ErrAlreadyExists)
}

func unknownUserError(username string) error {
	return oops.Code(CodeUnknownUser).
		With("username", username).
		Wrap(ErrInvalidCredential)
}
