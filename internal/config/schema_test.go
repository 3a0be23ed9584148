// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/usermgmt/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	for _, key := range []string{"backend", "database_url", "redis_url", "redis_prefix", "hash", "token", "log", "metrics_addr"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Backend", "field names follow koanf tags")

	backend, ok := props["backend"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"memory", "postgres", "redis"}, backend["enum"])
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "empty", body: ""},
		{name: "minimal", body: "backend: memory\n"},
		{name: "full", body: `
backend: postgres
database_url: postgres://db/users
redis_prefix: app
hash:
  iterations: 20000
token:
  expiry_hours: "72"
log:
  format: text
  level: warn
metrics_addr: ":9100"
`},
		{name: "integer expiry", body: "token:\n  expiry_hours: 24\n"},
		{name: "unknown top-level key", body: "bakend: memory\n", wantErr: true},
		{name: "unknown nested key", body: "hash:\n  rounds: 5\n", wantErr: true},
		{name: "unknown backend", body: "backend: mongo\n", wantErr: true},
		{name: "bad log format", body: "log:\n  format: xml\n", wantErr: true},
		{name: "non-integer iterations", body: "hash:\n  iterations: lots\n", wantErr: true},
		{name: "malformed yaml", body: "backend: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile([]byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeInvalid)
		})
	}
}

func TestLoadRejectsFileFailingSchema(t *testing.T) {
	path := writeConfig(t, "backend: memory\nlog_format: text\n")

	_, err := Loader{LookupEnv: envMap(nil)}.Load(path, nil)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
	errutil.AssertErrorContext(t, err, "operation", "validate config file")
	errutil.AssertErrorContext(t, err, "path", path)
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))
}
