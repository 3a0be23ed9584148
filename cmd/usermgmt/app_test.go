// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/auth/memory"
	"github.com/holomush/usermgmt/internal/auth/mocks"
	"github.com/holomush/usermgmt/internal/auth/postgres"
	"github.com/holomush/usermgmt/internal/auth/redisstore"
	"github.com/holomush/usermgmt/internal/config"
	"github.com/holomush/usermgmt/pkg/errutil"
)

func TestConnect_RetriesTransientFailure(t *testing.T) {
	h := newHarness(t)
	repo := mocks.NewMockRepository(t)
	h.deps.RepositoryFactory = func(*config.Config) (auth.Repository, error) { return repo, nil }

	repo.EXPECT().Connect(mock.Anything).Return(errors.New("connection refused")).Once()
	repo.EXPECT().Connect(mock.Anything).Return(nil).Once()
	repo.EXPECT().FindAll(mock.Anything).Return([]auth.UserRecord{{Username: "alice"}}, nil).Once()
	repo.EXPECT().Close(mock.Anything).Return(nil).Once()

	res := h.run(t, "", "users")

	require.NoError(t, res.err)
	assert.Equal(t, "alice\n", res.stdout)
	assert.Contains(t, h.logs.String(), "backend connection failed")
}

func TestConnect_GivesUp(t *testing.T) {
	h := newHarness(t)
	repo := mocks.NewMockRepository(t)
	h.deps.RepositoryFactory = func(*config.Config) (auth.Repository, error) { return repo, nil }

	// ConnectRetries is 2: one attempt plus two retries.
	repo.EXPECT().Connect(mock.Anything).Return(errors.New("connection refused")).Times(3)

	res := h.run(t, "", "users")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, auth.CodeConnectFailed)
	errutil.AssertErrorContext(t, res.err, "attempts", 3)
}

func TestConnect_RepositoryFactoryError(t *testing.T) {
	h := newHarness(t)
	h.deps.RepositoryFactory = func(*config.Config) (auth.Repository, error) {
		return nil, errors.New("bad url")
	}

	res := h.run(t, "", "users")

	require.Error(t, res.err)
	errutil.AssertErrorContext(t, res.err, "operation", "create repository")
}

func TestNewRepository(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		repo, err := newRepository(&config.Config{Backend: config.BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &memory.UserRepository{}, repo)
	})

	t.Run("postgres", func(t *testing.T) {
		repo, err := newRepository(&config.Config{Backend: config.BackendPostgres, DatabaseURL: "postgres://localhost/users"})
		require.NoError(t, err)
		assert.IsType(t, &postgres.UserRepository{}, repo)
	})

	t.Run("redis", func(t *testing.T) {
		repo, err := newRepository(&config.Config{Backend: config.BackendRedis, RedisURL: "redis://localhost:6379/0", RedisPrefix: "test"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close(context.Background()) })
		assert.IsType(t, &redisstore.UserRepository{}, repo)
	})

	t.Run("redis with bad url", func(t *testing.T) {
		_, err := newRepository(&config.Config{Backend: config.BackendRedis, RedisURL: "://nope"})
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "backend", config.BackendRedis)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := newRepository(&config.Config{Backend: "mongo"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, config.CodeInvalid)
	})
}
