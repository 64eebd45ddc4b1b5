package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/suggest"
)

type Config struct {
	Environment string              `yaml:"environment"`
	Server      ServerConfig        `yaml:"server"`
	Suggest     SuggestConfig       `yaml:"suggest"`
	Store       StoreConfig         `yaml:"store"`
	Storage     StorageConfig       `yaml:"storage"`
	Limits      LimitsConfig        `yaml:"limits"`
	Metrics     MetricsConfig       `yaml:"metrics"`
	Logging     LoggingConfig       `yaml:"logging"`
	Aliases     map[string]string   `yaml:"aliases"`
	Groups      map[string][]string `yaml:"groups"`
}

type ServerConfig struct {
	HTTP            HTTPConfig    `yaml:"http"`
	RESP            RESPConfig    `yaml:"resp"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type RESPConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	MaxConnections int           `yaml:"max_connections"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

type SuggestConfig struct {
	MinLength    int           `yaml:"min_length"`
	QueryDelay   time.Duration `yaml:"query_delay"`
	PersistDelay time.Duration `yaml:"persist_delay"`
	MaxResults   int           `yaml:"max_results"`
}

// StoreConfig selects the backend sessions read from and write to.
type StoreConfig struct {
	Type       string          `yaml:"type"`
	FetchLimit int             `yaml:"fetch_limit"`
	HTTP       HTTPStoreConfig `yaml:"http"`
	NATS       NATSConfig      `yaml:"nats"`
}

type HTTPStoreConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type NATSConfig struct {
	URL     string        `yaml:"url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// StorageConfig controls the journal behind the memory store.
type StorageConfig struct {
	Type         string        `yaml:"type"`
	Path         string        `yaml:"path"`
	SyncInterval time.Duration `yaml:"sync_interval"`
}

type LimitsConfig struct {
	SaveRate RateLimitConfig `yaml:"save_rate"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	StoreMemory = "memory"
	StoreNATS   = "nats"
	StoreHTTP   = "http"

	StorageAOF  = "aof"
	StorageNone = "none"
)

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Addr:         ":8080",
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			},
			RESP: RESPConfig{
				Enabled:        true,
				Addr:           ":6380",
				MaxConnections: 1000,
				WriteTimeout:   5 * time.Second,
				IdleTimeout:    5 * time.Minute,
				CommandTimeout: 5 * time.Second,
			},
			ShutdownTimeout: 10 * time.Second,
		},
		Suggest: SuggestConfig{
			MinLength:    suggest.DefaultMinLength,
			QueryDelay:   suggest.DefaultQueryDelay,
			PersistDelay: suggest.DefaultPersistDelay,
		},
		Store: StoreConfig{
			Type:       StoreMemory,
			FetchLimit: 50,
			HTTP:       HTTPStoreConfig{Timeout: 5 * time.Second},
			NATS: NATSConfig{
				URL:     "nats://127.0.0.1:4222",
				Bucket:  "SUGGESTIONS",
				Timeout: 5 * time.Second,
				Retry: RetryConfig{
					Attempts: models.DefaultRetryStrategy.MaxAttempts,
					Delay:    models.DefaultRetryStrategy.InitialInterval,
					MaxDelay: models.DefaultRetryStrategy.MaxInterval,
				},
			},
		},
		Storage: StorageConfig{
			Type:         StorageAOF,
			Path:         "data/suggestions.aof",
			SyncInterval: time.Second,
		},
		Limits: LimitsConfig{
			SaveRate: RateLimitConfig{Enabled: true, RequestsPerSecond: 50, Burst: 100},
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.HTTP.Addr == "" {
		add("server.http.addr is required")
	}
	if c.Server.RESP.Enabled && c.Server.RESP.Addr == "" {
		add("server.resp.addr is required when resp is enabled")
	}
	if c.Server.RESP.MaxConnections < 0 {
		add("server.resp.max_connections must not be negative")
	}

	if c.Suggest.MinLength < 0 {
		add("suggest.min_length must not be negative")
	}
	if c.Suggest.QueryDelay < 0 || c.Suggest.PersistDelay < 0 {
		add("suggest delays must not be negative")
	}
	if c.Suggest.MaxResults < 0 {
		add("suggest.max_results must not be negative")
	}

	switch c.Store.Type {
	case StoreMemory:
	case StoreHTTP:
		if c.Store.HTTP.URL == "" {
			add("store.http.url is required for the http store")
		}
	case StoreNATS:
		if c.Store.NATS.URL == "" {
			add("store.nats.url is required for the nats store")
		}
		if c.Store.NATS.Retry.Attempts < 1 {
			add("store.nats.retry.attempts must be at least 1")
		}
	default:
		add("store.type %q is not one of memory, nats, http", c.Store.Type)
	}

	switch c.Storage.Type {
	case StorageNone:
	case StorageAOF:
		if c.Storage.Path == "" {
			add("storage.path is required for the aof journal")
		}
	default:
		add("storage.type %q is not one of aof, none", c.Storage.Type)
	}

	if r := c.Limits.SaveRate; r.Enabled && (r.RequestsPerSecond <= 0 || r.Burst <= 0) {
		add("limits.save_rate needs a positive requests_per_second and burst")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path must start with /")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q is unknown", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("logging.format %q is unknown", c.Logging.Format)
	}

	return errors.Join(errs...)
}

// SuggestConfig converts the suggest section for the engine.
func (c *Config) SuggestConfig() suggest.Config {
	return suggest.Config{
		MinLength:    c.Suggest.MinLength,
		QueryDelay:   c.Suggest.QueryDelay,
		PersistDelay: c.Suggest.PersistDelay,
		MaxResults:   c.Suggest.MaxResults,
	}
}

// AliasTable overlays the configured aliases and groups on the built-in table.
func (c *Config) AliasTable() alias.Table {
	return alias.Merge(alias.DefaultTable(), alias.Table{Aliases: c.Aliases, Groups: c.Groups})
}

func (c *Config) RetryStrategy() models.RetryStrategy {
	s := models.DefaultRetryStrategy
	r := c.Store.NATS.Retry
	if r.Attempts > 0 {
		s.MaxAttempts = r.Attempts
	}
	if r.Delay > 0 {
		s.InitialInterval = r.Delay
	}
	if r.MaxDelay > 0 {
		s.MaxInterval = r.MaxDelay
	}
	return s
}

// findConfigFile walks up from the working directory to the first
// directory holding config/<env>.yaml or config/<env>.yml, and returns that
// file.
func findConfigFile(env string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "config", env+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find config/%s.yaml in any parent directory", env)
		}
		dir = parent
	}
}

// LoadConfig reads config/<env>.yaml, or config/<env>.yml, from the nearest
// directory above the working directory that has one.
func LoadConfig(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("error finding config file: %w", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Environment = env
	return cfg, nil
}

// Load reads a single YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
