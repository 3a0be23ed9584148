// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Extras is the caller-defined attribute bag stored alongside a user.
// The core never interprets it.
type Extras map[string]any

// Clone returns a shallow copy. A nil Extras clones to an empty, non-nil map.
func (e Extras) Clone() Extras {
	out := make(Extras, len(e))
	maps.Copy(out, e)
	return out
}

// Session is the live token of a user.
// A record holds at most one; a nil *Session means no token is set.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// UserRecord is one registered account as held by a Repository.
// Records are passed by copy; mutating a returned record has no effect on the store.
type UserRecord struct {
	ID           ulid.ULID
	Username     string
	PasswordHash []byte
	PasswordSalt []byte
	Session      *Session
	Extras       Extras
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy of the record.
func (r *UserRecord) Clone() *UserRecord {
	out := *r
	out.PasswordHash = append([]byte(nil), r.PasswordHash...)
	out.PasswordSalt = append([]byte(nil), r.PasswordSalt...)
	if r.Session != nil {
		s := *r.Session
		out.Session = &s
	}
	out.Extras = r.Extras.Clone()
	return &out
}

// checkCredentialShape reports a record whose salt or hash length differs from
// the Hasher constants.
func (r *UserRecord) checkCredentialShape() error {
	if len(r.PasswordSalt) != SaltLen || len(r.PasswordHash) != HashLen {
		return oops.Code(CodeRecordCorrupt).
			With("username", r.Username).
			With("salt_len", len(r.PasswordSalt)).
			With("hash_len", len(r.PasswordHash)).
			Wrap(ErrCorruptRecord)
	}
	return nil
}

// FilterField names the record field a Filter matches on.
type FilterField string

// Filterable fields.
const (
	FieldUsername FilterField = "username"
	FieldToken    FilterField = "token"
)

// Filter is an equality predicate over a single record field.
type Filter struct {
	Field FilterField
	Value string
}

// ByUsername matches the record with the given username.
func ByUsername(username string) Filter {
	return Filter{Field: FieldUsername, Value: username}
}

// ByToken matches the record currently holding the given token.
func ByToken(token string) Filter {
	return Filter{Field: FieldToken, Value: token}
}

// Validate rejects unknown fields and empty values.
func (f Filter) Validate() error {
	if f.Field != FieldUsername && f.Field != FieldToken {
		return oops.Code(CodeInvalidInput).With("field", string(f.Field)).Errorf("unsupported filter field")
	}
	if f.Value == "" {
		return oops.Code(CodeInvalidInput).With("field", string(f.Field)).Errorf("filter value cannot be empty")
	}
	return nil
}

// Update is the set of field changes applied by one Repository.UpdateFields call.
// Zero-valued members leave the corresponding fields untouched.
type Update struct {
	// PasswordHash and PasswordSalt replace the credential; both or neither.
	PasswordHash []byte
	PasswordSalt []byte

	// SetSession replaces the live token. Mutually exclusive with ClearSession.
	SetSession *Session

	// ClearSession removes the live token.
	ClearSession bool

	// Extras replaces the attribute bag when non-nil.
	Extras Extras
}

// Validate checks the both-or-neither and mutual-exclusion rules.
func (u Update) Validate() error {
	if (u.PasswordHash == nil) != (u.PasswordSalt == nil) {
		return oops.Code(CodeInvalidUpdate).Errorf("password hash and salt must be updated together")
	}
	if u.SetSession != nil && u.ClearSession {
		return oops.Code(CodeInvalidUpdate).Errorf("cannot set and clear the session in one update")
	}
	if u.SetSession != nil && u.SetSession.Token == "" {
		return oops.Code(CodeInvalidUpdate).Errorf("session token cannot be empty")
	}
	return nil
}

// Apply writes the update onto rec and bumps UpdatedAt.
// Repositories that hold records in memory share this instead of
// reimplementing field-by-field assignment.
func (u Update) Apply(rec *UserRecord, now time.Time) {
	if u.PasswordHash != nil {
		rec.PasswordHash = append([]byte(nil), u.PasswordHash...)
		rec.PasswordSalt = append([]byte(nil), u.PasswordSalt...)
	}
	switch {
	case u.ClearSession:
		rec.Session = nil
	case u.SetSession != nil:
		s := *u.SetSession
		rec.Session = &s
	}
	if u.Extras != nil {
		rec.Extras = u.Extras.Clone()
	}
	rec.UpdatedAt = now
}

// Repository persists user records. It is the single source of truth for all
// durable state; the core keeps none of its own.
//
// Implementations should make Insert fail with ErrDuplicateUsername when the
// underlying store can enforce uniqueness, which closes the window between the
// existence check and the insert in CreateUser.
type Repository interface {
	// Connect prepares the store for use.
	Connect(ctx context.Context) error

	// Close releases store resources.
	Close(ctx context.Context) error

	// FindOne returns a copy of the matching record, or ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (*UserRecord, error)

	// FindAll returns copies of every record.
	FindAll(ctx context.Context) ([]UserRecord, error)

	// Insert stores a new record.
	Insert(ctx context.Context, rec *UserRecord) error

	// UpdateFields applies update to the matching record as a single mutation.
	// Returns ErrNotFound if nothing matches.
	UpdateFields(ctx context.Context, filter Filter, update Update) error

	// Delete removes the matching record. Deleting nothing is not an error.
	Delete(ctx context.Context, filter Filter) error

	// DropAll removes every record. Intended for test resets.
	DropAll(ctx context.Context) error
}
