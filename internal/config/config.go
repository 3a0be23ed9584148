// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads usermgmt settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/auth/redisstore"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// EnvPrefix prefixes every environment override, e.g. USERMGMT_BACKEND.
const EnvPrefix = "USERMGMT_"

// CodeInvalid is attached to every load and validation failure.
const CodeInvalid = "CONFIG_INVALID"

// Config is the resolved configuration of a usermgmt process.
type Config struct {
	Backend     string      `koanf:"backend" jsonschema:"enum=memory,enum=postgres,enum=redis"`
	DatabaseURL string      `koanf:"database_url"`
	RedisURL    string      `koanf:"redis_url"`
	RedisPrefix string      `koanf:"redis_prefix"`
	Hash        HashConfig  `koanf:"hash"`
	Token       TokenConfig `koanf:"token"`
	Log         LogConfig   `koanf:"log"`
	MetricsAddr string      `koanf:"metrics_addr"`
}

// HashConfig tunes password hashing.
type HashConfig struct {
	Iterations int `koanf:"iterations"`
}

// TokenConfig tunes session tokens. ExpiryHours stays a string so a
// malformed value degrades to the default instead of failing the load.
type TokenConfig struct {
	ExpiryHours string `koanf:"expiry_hours" jsonschema:"oneof_type=string;integer"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

var defaults = map[string]any{
	"backend":            BackendMemory,
	"redis_prefix":       redisstore.DefaultPrefix,
	"hash.iterations":    auth.DefaultHashIterations,
	"token.expiry_hours": "",
	"log.format":         "json",
	"log.level":          "info",
	"metrics_addr":       "127.0.0.1:9100",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"backend":            "backend",
	"database-url":       "database_url",
	"redis-url":          "redis_url",
	"redis-prefix":       "redis_prefix",
	"hash-iterations":    "hash.iterations",
	"token-expiry-hours": "token.expiry_hours",
	"log-format":         "log.format",
	"log-level":          "log.level",
	"metrics-addr":       "metrics_addr",
}

// envKeys maps environment variables to configuration keys. Later entries
// for the same key win, so the prefixed name overrides the bare one.
var envKeys = []struct {
	name string
	key  string
}{
	{"DATABASE_URL", "database_url"},
	{"REDIS_URL", "redis_url"},
	{EnvPrefix + "BACKEND", "backend"},
	{EnvPrefix + "DATABASE_URL", "database_url"},
	{EnvPrefix + "REDIS_URL", "redis_url"},
	{EnvPrefix + "REDIS_PREFIX", "redis_prefix"},
	{EnvPrefix + "HASH_ITERATIONS", "hash.iterations"},
	{EnvPrefix + "TOKEN_EXPIRY_HOURS", "token.expiry_hours"},
	{EnvPrefix + "LOG_FORMAT", "log.format"},
	{EnvPrefix + "LOG_LEVEL", "log.level"},
	{EnvPrefix + "METRICS_ADDR", "metrics_addr"},
}

// RegisterFlags adds the configuration flags to fs. Their defaults are only
// used when neither the file nor the environment sets the key.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("backend", BackendMemory, "user store backend (memory, postgres or redis)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("redis-url", "", "Redis connection URL")
	fs.String("redis-prefix", redisstore.DefaultPrefix, "Redis key prefix")
	fs.Int("hash-iterations", auth.DefaultHashIterations, "PBKDF2 iterations")
	fs.String("token-expiry-hours", "", "session token lifetime in hours")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn or error)")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
}

// Loader resolves a Config. The zero value reads the real environment.
type Loader struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration from path (skipped when empty) and fs
// (skipped when nil), then validates it.
func (l Loader) Load(path string, fs *pflag.FlagSet) (*Config, error) {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code(CodeInvalid).With("key", key).Wrap(err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code(CodeInvalid).
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalid).
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	for _, env := range envKeys {
		value, ok := lookup(env.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := k.Set(env.key, value); err != nil {
			return nil, oops.Code(CodeInvalid).With("env", env.name).Wrap(err)
		}
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, changedFlag(fs)), nil); err != nil {
			return nil, oops.Code(CodeInvalid).With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).With("operation", "decode config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load resolves the configuration against the process environment.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	return Loader{}.Load(path, fs)
}

// changedFlag maps explicitly set flags to their keys. Unset flags return
// an empty key so defaults and lower layers are kept.
func changedFlag(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return oops.Code(CodeInvalid).
				With("backend", c.Backend).
				Errorf("database_url is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return oops.Code(CodeInvalid).
				With("backend", c.Backend).
				Errorf("redis_url is required for the redis backend")
		}
	default:
		return oops.Code(CodeInvalid).
			With("backend", c.Backend).
			Errorf("backend must be memory, postgres or redis")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code(CodeInvalid).
			With("log_format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}

// AuthConfig converts the hashing and token settings into a Manager policy.
// Out-of-range values are left for the auth components to replace.
func (c *Config) AuthConfig(logger *slog.Logger) auth.Config {
	return auth.Config{
		HashIterations:   c.Hash.Iterations,
		TokenExpiryHours: auth.ParseExpiryHours(c.Token.ExpiryHours, logger),
	}
}
