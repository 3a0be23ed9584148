// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/auth/memory"
)

func newRecord(username string) *auth.UserRecord {
	now := time.Now()
	return &auth.UserRecord{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: make([]byte, auth.HashLen),
		PasswordSalt: make([]byte, auth.SaltLen),
		Extras:       auth.Extras{"role": "player"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	require.NoError(t, repo.Insert(ctx, newRecord("alice")))

	rec, err := repo.FindOne(ctx, auth.ByUsername("alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "player", rec.Extras["role"])

	_, err = repo.FindOne(ctx, auth.ByUsername("bob"))
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	require.NoError(t, repo.Insert(ctx, newRecord("alice")))
	err := repo.Insert(ctx, newRecord("alice"))
	assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	require.NoError(t, repo.Insert(ctx, newRecord("alice")))

	rec, err := repo.FindOne(ctx, auth.ByUsername("alice"))
	require.NoError(t, err)
	rec.Extras["role"] = "admin"
	rec.PasswordHash[0] = 0xFF

	again, err := repo.FindOne(ctx, auth.ByUsername("alice"))
	require.NoError(t, err)
	assert.Equal(t, "player", again.Extras["role"])
	assert.Equal(t, byte(0), again.PasswordHash[0])
}

func TestUserRepository_UpdateFields(t *testing.T) {
	ctx := context.Background()

	t.Run("set session makes record findable by token", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Insert(ctx, newRecord("alice")))

		session := &auth.Session{Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, repo.UpdateFields(ctx, auth.ByUsername("alice"), auth.Update{SetSession: session}))

		rec, err := repo.FindOne(ctx, auth.ByToken("tok-1"))
		require.NoError(t, err)
		assert.Equal(t, "alice", rec.Username)
	})

	t.Run("replacing session drops old token", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Insert(ctx, newRecord("alice")))

		first := &auth.Session{Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
		second := &auth.Session{Token: "tok-2", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, repo.UpdateFields(ctx, auth.ByUsername("alice"), auth.Update{SetSession: first}))
		require.NoError(t, repo.UpdateFields(ctx, auth.ByUsername("alice"), auth.Update{SetSession: second}))

		_, err := repo.FindOne(ctx, auth.ByToken("tok-1"))
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.FindOne(ctx, auth.ByToken("tok-2"))
		assert.NoError(t, err)
	})

	t.Run("clear session by token", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Insert(ctx, newRecord("alice")))
		session := &auth.Session{Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, repo.UpdateFields(ctx, auth.ByUsername("alice"), auth.Update{SetSession: session}))

		require.NoError(t, repo.UpdateFields(ctx, auth.ByToken("tok-1"), auth.Update{ClearSession: true}))

		rec, err := repo.FindOne(ctx, auth.ByUsername("alice"))
		require.NoError(t, err)
		assert.Nil(t, rec.Session)
	})

	t.Run("no match returns ErrNotFound", func(t *testing.T) {
		repo := memory.NewUserRepository()
		err := repo.UpdateFields(ctx, auth.ByUsername("ghost"), auth.Update{Extras: auth.Extras{}})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("invalid update is rejected", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Insert(ctx, newRecord("alice")))
		err := repo.UpdateFields(ctx, auth.ByUsername("alice"), auth.Update{PasswordHash: []byte{1}})
		require.Error(t, err)
		assert.False(t, errors.Is(err, auth.ErrNotFound))
	})
}

func TestUserRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	require.NoError(t, repo.Insert(ctx, newRecord("alice")))

	require.NoError(t, repo.Delete(ctx, auth.ByUsername("alice")))
	require.NoError(t, repo.Delete(ctx, auth.ByUsername("alice")))

	_, err := repo.FindOne(ctx, auth.ByUsername("alice"))
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_FindAllSorted(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Insert(ctx, newRecord(name)))
	}

	recs, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "alice", recs[0].Username)
	assert.Equal(t, "bob", recs[1].Username)
	assert.Equal(t, "carol", recs[2].Username)

	require.NoError(t, repo.DropAll(ctx))
	recs, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUserRepository_ConcurrentInsertSameUsername(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Insert(ctx, newRecord("alice")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestUserRepository_ConcurrentDistinctInserts(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, repo.Insert(ctx, newRecord(fmt.Sprintf("user%02d", n))))
		}(i)
	}
	wg.Wait()

	recs, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}
