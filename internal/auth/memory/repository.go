// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides a process-local auth.Repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/usermgmt/internal/auth"
)

// Compile-time interface check.
var _ auth.Repository = (*UserRepository)(nil)

// UserRepository keeps user records in maps guarded by a RWMutex.
// Records are copied on the way in and out.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*auth.UserRecord
	byToken map[string]string
	now     func() time.Time
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*auth.UserRecord),
		byToken: make(map[string]string),
		now:     time.Now,
	}
}

// Connect is a no-op.
func (r *UserRepository) Connect(_ context.Context) error {
	return nil
}

// Close is a no-op. Records survive Close.
func (r *UserRepository) Close(_ context.Context) error {
	return nil
}

// FindOne returns a copy of the record matching filter.
func (r *UserRepository) FindOne(_ context.Context, filter auth.Filter) (*auth.UserRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec := r.lookup(filter)
	if rec == nil {
		return nil, auth.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindAll returns copies of every record ordered by username.
func (r *UserRepository) FindAll(_ context.Context) ([]auth.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]auth.UserRecord, 0, len(r.users))
	for _, rec := range r.users {
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Insert stores a copy of rec. Fails with auth.ErrDuplicateUsername if the
// username is taken.
func (r *UserRepository) Insert(_ context.Context, rec *auth.UserRecord) error {
	if rec == nil || rec.Username == "" {
		return oops.With("operation", "insert user").Errorf("record must have a username")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[rec.Username]; ok {
		return oops.With("username", rec.Username).Wrap(auth.ErrDuplicateUsername)
	}
	stored := rec.Clone()
	r.users[stored.Username] = stored
	if stored.Session != nil {
		r.byToken[stored.Session.Token] = stored.Username
	}
	return nil
}

// UpdateFields applies update to the record matching filter under one lock.
func (r *UserRepository) UpdateFields(_ context.Context, filter auth.Filter, update auth.Update) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.lookup(filter)
	if rec == nil {
		return auth.ErrNotFound
	}
	if rec.Session != nil && (update.ClearSession || update.SetSession != nil) {
		delete(r.byToken, rec.Session.Token)
	}
	update.Apply(rec, r.now())
	if rec.Session != nil {
		r.byToken[rec.Session.Token] = rec.Username
	}
	return nil
}

// Delete removes the record matching filter, if any.
func (r *UserRepository) Delete(_ context.Context, filter auth.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.lookup(filter)
	if rec == nil {
		return nil
	}
	if rec.Session != nil {
		delete(r.byToken, rec.Session.Token)
	}
	delete(r.users, rec.Username)
	return nil
}

// DropAll removes every record.
func (r *UserRepository) DropAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*auth.UserRecord)
	r.byToken = make(map[string]string)
	return nil
}

// lookup must be called with r.mu held.
func (r *UserRepository) lookup(filter auth.Filter) *auth.UserRecord {
	username := filter.Value
	if filter.Field == auth.FieldToken {
		var ok bool
		username, ok = r.byToken[filter.Value]
		if !ok {
			return nil
		}
	}
	return r.users[username]
}
