// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/usermgmt/pkg/errutil"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "AUTH_WRONG_PASSWORD", errutil.Code(oops.Code("AUTH_WRONG_PASSWORD").Errorf("nope")))
	assert.Empty(t, errutil.Code(oops.With("k", "v").Errorf("uncoded")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
}

func TestCode_DeepestWins(t *testing.T) {
	inner := oops.Code("STORE_FAILED").Errorf("connection reset")
	outer := oops.With("step", "fetch_record").Wrap(inner)
	assert.Equal(t, "STORE_FAILED", errutil.Code(outer))
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("AUTH_INCONSISTENT").
		With("username", "alice").
		Errorf("record vanished")

	errutil.LogError(logger, "authentication failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "authentication failed", entry["msg"])
	assert.Equal(t, "AUTH_INCONSISTENT", entry["code"])
	ctx, ok := entry["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", ctx["username"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}
