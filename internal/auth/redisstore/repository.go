// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisstore provides a Redis auth.Repository.
//
// Each user is one JSON value under <prefix>:user:<username>. A secondary
// key <prefix>:token:<token> points at the username holding that token, and
// the set <prefix>:users lists every username.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/usermgmt/internal/auth"
)

// Compile-time interface check.
var _ auth.Repository = (*UserRepository)(nil)

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "usermgmt"

// maxTxAttempts bounds optimistic-lock retries of a WATCH transaction.
const maxTxAttempts = 5

const scanBatch = 100

// storedUser is the JSON form of a record.
type storedUser struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	PasswordHash   []byte      `json:"password_hash"`
	PasswordSalt   []byte      `json:"password_salt"`
	Token          string      `json:"token,omitempty"`
	TokenExpiresAt *time.Time  `json:"token_expires_at,omitempty"`
	Extras         auth.Extras `json:"extras"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// UserRepository stores users in Redis.
type UserRepository struct {
	rdb    redis.UniversalClient
	prefix string
	owned  bool
	now    func() time.Time
}

// NewUserRepository wraps an existing client. The caller keeps ownership:
// Close does not close rdb.
func NewUserRepository(rdb redis.UniversalClient, prefix string) *UserRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &UserRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

// NewUserRepositoryFromURL creates a client from a redis:// URL.
// The repository owns the client and closes it on Close.
func NewUserRepositoryFromURL(url, prefix string) (*UserRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.With("operation", "parse redis url").Wrap(err)
	}
	repo := NewUserRepository(redis.NewClient(opts), prefix)
	repo.owned = true
	return repo, nil
}

func (r *UserRepository) userKey(username string) string {
	return r.prefix + ":user:" + username
}

func (r *UserRepository) tokenKey(token string) string {
	return r.prefix + ":token:" + token
}

func (r *UserRepository) usersKey() string {
	return r.prefix + ":users"
}

// Connect pings the server.
func (r *UserRepository) Connect(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return oops.With("operation", "ping redis").Wrap(err)
	}
	return nil
}

// Close closes the client if the repository created it.
func (r *UserRepository) Close(_ context.Context) error {
	if !r.owned {
		return nil
	}
	if err := r.rdb.Close(); err != nil {
		return oops.With("operation", "close redis client").Wrap(err)
	}
	return nil
}

// FindOne returns the record matching filter.
func (r *UserRepository) FindOne(ctx context.Context, filter auth.Filter) (*auth.UserRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	username, err := r.resolve(ctx, filter)
	if err != nil {
		return nil, err
	}
	stored, err := r.get(ctx, r.rdb, username)
	if err != nil {
		return nil, err
	}
	if !matches(stored, filter) {
		return nil, auth.ErrNotFound
	}
	return stored.record()
}

// FindAll returns every record ordered by username.
func (r *UserRepository) FindAll(ctx context.Context) ([]auth.UserRecord, error) {
	names, err := r.rdb.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return nil, oops.With("operation", "list usernames").Wrap(err)
	}
	if len(names) == 0 {
		return []auth.UserRecord{}, nil
	}
	sort.Strings(names)

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.Get(ctx, r.userKey(name))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, oops.With("operation", "load users").Wrap(err)
	}

	out := make([]auth.UserRecord, 0, len(names))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, oops.With("operation", "load user").With("username", names[i]).Wrap(err)
		}
		stored, err := decode(data)
		if err != nil {
			return nil, err
		}
		rec, err := stored.record()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Insert stores rec and its index entries in one WATCH transaction on the
// user key. A taken username yields auth.ErrDuplicateUsername.
func (r *UserRepository) Insert(ctx context.Context, rec *auth.UserRecord) error {
	if rec == nil || rec.Username == "" {
		return oops.With("operation", "insert user").Errorf("record must have a username")
	}
	data, err := json.Marshal(fromRecord(rec))
	if err != nil {
		return oops.With("operation", "marshal user").With("username", rec.Username).Wrap(err)
	}

	key := r.userKey(rec.Username)
	err = r.withRetry(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err //nolint:wrapcheck // withRetry wraps
		}
		if n > 0 {
			return auth.ErrDuplicateUsername
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, r.usersKey(), rec.Username)
			if rec.Session != nil {
				pipe.Set(ctx, r.tokenKey(rec.Session.Token), rec.Username, 0)
			}
			return nil
		})
		return err //nolint:wrapcheck // withRetry wraps
	}, key)
	if err != nil {
		return oops.With("operation", "insert user").With("username", rec.Username).Wrap(err)
	}
	return nil
}

// UpdateFields applies update inside a WATCH transaction on the user key,
// keeping the token index in step with the record.
func (r *UserRepository) UpdateFields(ctx context.Context, filter auth.Filter, update auth.Update) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}
	username, err := r.resolve(ctx, filter)
	if err != nil {
		return err
	}

	key := r.userKey(username)
	return r.withRetry(ctx, func(tx *redis.Tx) error {
		stored, err := r.get(ctx, tx, username)
		if err != nil {
			return err
		}
		if !matches(stored, filter) {
			return auth.ErrNotFound
		}
		rec, err := stored.record()
		if err != nil {
			return err
		}

		var oldToken string
		if rec.Session != nil {
			oldToken = rec.Session.Token
		}
		update.Apply(rec, r.now().UTC())
		data, err := json.Marshal(fromRecord(rec))
		if err != nil {
			return oops.With("operation", "marshal user").With("username", username).Wrap(err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if oldToken != "" && (rec.Session == nil || rec.Session.Token != oldToken) {
				pipe.Del(ctx, r.tokenKey(oldToken))
			}
			if rec.Session != nil {
				pipe.Set(ctx, r.tokenKey(rec.Session.Token), username, 0)
			}
			return nil
		})
		return err //nolint:wrapcheck // withRetry wraps
	}, key)
}

// Delete removes the matching record and its index entries.
func (r *UserRepository) Delete(ctx context.Context, filter auth.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	username, err := r.resolve(ctx, filter)
	if errors.Is(err, auth.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	key := r.userKey(username)
	err = r.withRetry(ctx, func(tx *redis.Tx) error {
		stored, err := r.get(ctx, tx, username)
		if err != nil {
			return err
		}
		if !matches(stored, filter) {
			return auth.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.usersKey(), username)
			if stored.Token != "" {
				pipe.Del(ctx, r.tokenKey(stored.Token))
			}
			return nil
		})
		return err //nolint:wrapcheck // withRetry wraps
	}, key)
	if errors.Is(err, auth.ErrNotFound) {
		return nil
	}
	return err
}

// DropAll deletes every key under the prefix.
func (r *UserRepository) DropAll(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return oops.With("operation", "drop users").Wrap(err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return oops.With("operation", "scan keys").Wrap(err)
	}
	if len(batch) > 0 {
		if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
			return oops.With("operation", "drop users").Wrap(err)
		}
	}
	return nil
}

// resolve maps filter to the username whose key holds the record.
func (r *UserRepository) resolve(ctx context.Context, filter auth.Filter) (string, error) {
	if filter.Field == auth.FieldUsername {
		return filter.Value, nil
	}
	username, err := r.rdb.Get(ctx, r.tokenKey(filter.Value)).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", oops.With("operation", "resolve token").Wrap(err)
	}
	return username, nil
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *UserRepository) get(ctx context.Context, c getter, username string) (*storedUser, error) {
	data, err := c.Get(ctx, r.userKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get user").With("username", username).Wrap(err)
	}
	return decode(data)
}

func (r *UserRepository) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrCorruptRecord), errors.Is(err, auth.ErrDuplicateUsername):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return oops.With("operation", "watch transaction").With("attempts", maxTxAttempts).Wrap(err)
	}
	return oops.With("operation", "update user").Wrap(err)
}

// matches guards against a stale token index entry.
func matches(stored *storedUser, filter auth.Filter) bool {
	if filter.Field == auth.FieldToken {
		return stored.Token == filter.Value
	}
	return stored.Username == filter.Value
}

func decode(data []byte) (*storedUser, error) {
	var s storedUser
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: invalid user json: %w", auth.ErrCorruptRecord, err)
	}
	return &s, nil
}

func fromRecord(rec *auth.UserRecord) storedUser {
	s := storedUser{
		ID:           rec.ID.String(),
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		PasswordSalt: rec.PasswordSalt,
		Extras:       rec.Extras.Clone(),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.Session != nil {
		expires := rec.Session.ExpiresAt
		s.Token = rec.Session.Token
		s.TokenExpiresAt = &expires
	}
	return s
}

func (s *storedUser) record() (*auth.UserRecord, error) {
	id, err := ulid.Parse(s.ID)
	if err != nil {
		return nil, oops.With("username", s.Username).Wrap(fmt.Errorf("%w: invalid id: %w", auth.ErrCorruptRecord, err))
	}
	rec := &auth.UserRecord{
		ID:           id,
		Username:     s.Username,
		PasswordHash: s.PasswordHash,
		PasswordSalt: s.PasswordSalt,
		Extras:       s.Extras.Clone(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	switch {
	case s.Token != "" && s.TokenExpiresAt != nil:
		rec.Session = &auth.Session{Token: s.Token, ExpiresAt: *s.TokenExpiresAt}
	case s.Token != "" || s.TokenExpiresAt != nil:
		return nil, oops.Code(auth.CodeRecordCorrupt).
			With("username", s.Username).
			Wrap(fmt.Errorf("%w: token and expiry must be set together", auth.ErrCorruptRecord))
	}
	return rec, nil
}
