// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides a PostgreSQL auth.Repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/usermgmt/internal/auth"
)

// Compile-time interface check.
var _ auth.Repository = (*UserRepository)(nil)

const usernameConstraint = "users_username_key"

const selectUser = `
	SELECT id, username, password_hash, password_salt,
	       token, token_expires_at, extras, created_at, updated_at
	FROM users`

// poolIface is the subset of *pgxpool.Pool the repository needs.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// UserRepository stores users in the users table created by the store migrations.
type UserRepository struct {
	dsn string

	mu   sync.RWMutex
	pool poolIface
	now  func() time.Time
}

// NewUserRepository creates a repository that opens a pgx pool for dsn on Connect.
func NewUserRepository(dsn string) *UserRepository {
	return &UserRepository{dsn: dsn, now: time.Now}
}

// NewUserRepositoryWithPool creates a repository over an existing pool.
// Connect only pings it.
func NewUserRepositoryWithPool(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// Connect opens the pool if needed and verifies the server is reachable.
func (r *UserRepository) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool == nil {
		pool, err := pgxpool.New(ctx, r.dsn)
		if err != nil {
			return oops.With("operation", "create pool").Wrap(err)
		}
		r.pool = pool
	}
	if err := r.pool.Ping(ctx); err != nil {
		if r.dsn != "" {
			r.pool.Close()
			r.pool = nil
		}
		return oops.With("operation", "ping database").Wrap(err)
	}
	return nil
}

// Close closes the pool.
func (r *UserRepository) Close(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	return nil
}

func (r *UserRepository) conn() (poolIface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pool == nil {
		return nil, oops.Errorf("repository is not connected")
	}
	return r.pool, nil
}

// FindOne returns the record matching filter.
func (r *UserRepository) FindOne(ctx context.Context, filter auth.Filter) (*auth.UserRecord, error) {
	column, err := filterColumn(filter)
	if err != nil {
		return nil, err
	}
	pool, err := r.conn()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, selectUser+` WHERE `+column+` = $1`, filter.Value)
	rec, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "find user").With("field", string(filter.Field)).Wrap(err)
	}
	return rec, nil
}

// FindAll returns every record ordered by username.
func (r *UserRepository) FindAll(ctx context.Context) ([]auth.UserRecord, error) {
	pool, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, selectUser+` ORDER BY username`)
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var out []auth.UserRecord
	for rows.Next() {
		rec, err := scanUser(rows)
		if err != nil {
			return nil, oops.With("operation", "scan user row").Wrap(err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate users").Wrap(err)
	}
	return out, nil
}

// Insert stores rec. A taken username yields auth.ErrDuplicateUsername.
func (r *UserRepository) Insert(ctx context.Context, rec *auth.UserRecord) error {
	pool, err := r.conn()
	if err != nil {
		return err
	}

	extras, err := json.Marshal(rec.Extras.Clone())
	if err != nil {
		return oops.With("operation", "marshal extras").With("username", rec.Username).Wrap(err)
	}
	var token *string
	var expiresAt *time.Time
	if rec.Session != nil {
		token = &rec.Session.Token
		expiresAt = &rec.Session.ExpiresAt
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (
			id, username, password_hash, password_salt,
			token, token_expires_at, extras, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID.String(),
		rec.Username,
		rec.PasswordHash,
		rec.PasswordSalt,
		token,
		expiresAt,
		extras,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if isUniqueViolation(err, usernameConstraint) {
		return oops.With("username", rec.Username).Wrap(auth.ErrDuplicateUsername)
	}
	if err != nil {
		return oops.With("operation", "insert user").With("username", rec.Username).Wrap(err)
	}
	return nil
}

// UpdateFields applies update with a single UPDATE statement.
func (r *UserRepository) UpdateFields(ctx context.Context, filter auth.Filter, update auth.Update) error {
	column, err := filterColumn(filter)
	if err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}
	pool, err := r.conn()
	if err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if update.PasswordHash != nil {
		set("password_hash", update.PasswordHash)
		set("password_salt", update.PasswordSalt)
	}
	switch {
	case update.ClearSession:
		sets = append(sets, "token = NULL", "token_expires_at = NULL")
	case update.SetSession != nil:
		set("token", update.SetSession.Token)
		set("token_expires_at", update.SetSession.ExpiresAt)
	}
	if update.Extras != nil {
		extras, err := json.Marshal(update.Extras)
		if err != nil {
			return oops.With("operation", "marshal extras").Wrap(err)
		}
		set("extras", extras)
	}
	set("updated_at", r.now().UTC())

	args = append(args, filter.Value)
	sql := fmt.Sprintf(`UPDATE users SET %s WHERE %s = $%d`, strings.Join(sets, ", "), column, len(args))

	tag, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return oops.With("operation", "update user").With("field", string(filter.Field)).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Delete removes the matching record.
func (r *UserRepository) Delete(ctx context.Context, filter auth.Filter) error {
	column, err := filterColumn(filter)
	if err != nil {
		return err
	}
	pool, err := r.conn()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE `+column+` = $1`, filter.Value); err != nil {
		return oops.With("operation", "delete user").With("field", string(filter.Field)).Wrap(err)
	}
	return nil
}

// DropAll deletes every user.
func (r *UserRepository) DropAll(ctx context.Context) error {
	pool, err := r.conn()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `DELETE FROM users`); err != nil {
		return oops.With("operation", "drop all users").Wrap(err)
	}
	return nil
}

func filterColumn(filter auth.Filter) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}
	if filter.Field == auth.FieldToken {
		return "token", nil
	}
	return "username", nil
}

// scanUser scans a user row from either pgx.Row or pgx.Rows.
func scanUser(row pgx.Row) (*auth.UserRecord, error) {
	var (
		rec       auth.UserRecord
		idStr     string
		token     *string
		expiresAt *time.Time
		extras    []byte
	)
	if err := row.Scan(
		&idStr,
		&rec.Username,
		&rec.PasswordHash,
		&rec.PasswordSalt,
		&token,
		&expiresAt,
		&extras,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("id", idStr).Wrap(fmt.Errorf("%w: invalid id: %w", auth.ErrCorruptRecord, err))
	}
	rec.ID = id

	switch {
	case token != nil && expiresAt != nil:
		rec.Session = &auth.Session{Token: *token, ExpiresAt: *expiresAt}
	case token != nil || expiresAt != nil:
		return nil, oops.Code(auth.CodeRecordCorrupt).
			With("username", rec.Username).
			Wrap(fmt.Errorf("%w: token and expiry must be set together", auth.ErrCorruptRecord))
	}

	rec.Extras = auth.Extras{}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &rec.Extras); err != nil {
			return nil, oops.With("username", rec.Username).Wrap(fmt.Errorf("%w: invalid extras: %w", auth.ErrCorruptRecord, err))
		}
	}
	return &rec, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}
