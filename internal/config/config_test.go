package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
suggest:
  min_length: 0
  query_delay: 150ms
store:
  type: nats
  nats:
    url: nats://example:4222
    retry:
      attempts: 3
aliases:
  pickup_city: city
`))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Suggest.MinLength)
	assert.Equal(t, 150*time.Millisecond, cfg.Suggest.QueryDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Suggest.PersistDelay)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, StoreNATS, cfg.Store.Type)
	assert.Equal(t, "SUGGESTIONS", cfg.Store.NATS.Bucket)

	strategy := cfg.RetryStrategy()
	assert.Equal(t, 3, strategy.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, strategy.InitialInterval)

	table := cfg.AliasTable()
	assert.Equal(t, "city", table.Aliases["pickup_city"])
	assert.Equal(t, "city", table.Aliases["loading_city"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Store.Type = "redis" },
			errMsg: `store.type "redis" is not one of memory, nats, http`,
		},
		{
			name:   "http store without url",
			mutate: func(c *Config) { c.Store.Type = StoreHTTP },
			errMsg: "store.http.url is required",
		},
		{
			name:   "journal without path",
			mutate: func(c *Config) { c.Storage.Path = "" },
			errMsg: "storage.path is required",
		},
		{
			name:   "negative min length",
			mutate: func(c *Config) { c.Suggest.MinLength = -1 },
			errMsg: "suggest.min_length must not be negative",
		},
		{
			name:   "rate limit without burst",
			mutate: func(c *Config) { c.Limits.SaveRate.Burst = 0 },
			errMsg: "limits.save_rate",
		},
		{
			name:   "metrics path",
			mutate: func(c *Config) { c.Metrics.Path = "metrics" },
			errMsg: "metrics.path must start with /",
		},
		{
			name:   "log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			errMsg: `logging.level "loud" is unknown`,
		},
		{
			name:   "resp enabled without addr",
			mutate: func(c *Config) { c.Server.RESP.Addr = "" },
			errMsg: "server.resp.addr is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Store.Type = "redis"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.type")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	assert.ErrorContains(t, err, "error parsing config file")

	_, err = Parse([]byte("store:\n  type: redis\n"))
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigWalksUpToProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "staging.yml"), []byte("logging:\n  level: warn\n"), 0o644))
	nested := filepath.Join(root, "cmd", "server")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	cfg, err := LoadConfig("staging")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigRepositoryFiles(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			cfg, err := LoadConfig(env)
			require.NoError(t, err)
			assert.Equal(t, env, cfg.Environment)
		})
	}
}
