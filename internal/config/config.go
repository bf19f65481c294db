// Package config loads service configuration from an optional YAML file
// and MMM_-prefixed environment variables. Environment variables win over
// the file, and the file wins over the defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/leaderboard"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	syncpkg "github.com/1prspctv/memory-match-madness/internal/sync"
	"github.com/1prspctv/memory-match-madness/internal/sync/queue"
	"github.com/1prspctv/memory-match-madness/internal/sync/scheduler"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "MMM_"

// Storage backends for the pending score queue.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config is the full service configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level" env:"LOG_LEVEL"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	Queue       QueueConfig       `yaml:"queue" envPrefix:"QUEUE_"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard" envPrefix:"LEADERBOARD_"`
	Sync        SyncConfig        `yaml:"sync" envPrefix:"SYNC_"`
	Scheduler   SchedulerConfig   `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Chain       ChainConfig       `yaml:"chain" envPrefix:"CHAIN_"`
}

// StorageConfig selects where pending scores are kept.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
	Path    string `yaml:"path" env:"PATH"`
}

// QueueConfig bounds the pending score queue.
type QueueConfig struct {
	Key     string        `yaml:"key" env:"KEY"`
	MaxSize int           `yaml:"max_size" env:"MAX_SIZE"`
	MaxAge  time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

// LeaderboardConfig selects the remote leaderboard.
type LeaderboardConfig struct {
	Backend     string `yaml:"backend" env:"BACKEND"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	RESTURL     string `yaml:"rest_url" env:"REST_URL"`
	RESTAPIKey  string `yaml:"rest_api_key" env:"REST_API_KEY"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	Destinations     []string      `yaml:"destinations" env:"DESTINATIONS" envSeparator:","`
	MinRetryInterval time.Duration `yaml:"min_retry_interval" env:"MIN_RETRY_INTERVAL"`
	WriteAttempts    int           `yaml:"write_attempts" env:"WRITE_ATTEMPTS"`
	BaseBackoff      time.Duration `yaml:"base_backoff" env:"BASE_BACKOFF"`
	MaxBackoff       time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
	RecordDelay      time.Duration `yaml:"record_delay" env:"RECORD_DELAY"`
}

// SchedulerConfig tunes the background scheduler.
type SchedulerConfig struct {
	SyncInterval  time.Duration `yaml:"sync_interval" env:"SYNC_INTERVAL"`
	CountInterval time.Duration `yaml:"count_interval" env:"COUNT_INTERVAL"`
	SyncOnStart   bool          `yaml:"sync_on_start" env:"SYNC_ON_START"`
	PassTimeout   time.Duration `yaml:"pass_timeout" env:"PASS_TIMEOUT"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// ChainConfig configures the prize ledger.
type ChainConfig struct {
	PayoutAccount string `yaml:"payout_account" env:"PAYOUT_ACCOUNT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	q := queue.DefaultConfig()
	e := syncpkg.DefaultEngineConfig()
	s := scheduler.DefaultSchedulerConfig()

	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: StorageSQLite,
			Path:    "data/scores.db",
		},
		Queue: QueueConfig{
			Key:     q.Key,
			MaxSize: q.MaxSize,
			MaxAge:  q.MaxAge,
		},
		Leaderboard: LeaderboardConfig{
			Backend:    leaderboard.BackendSQLite,
			SQLitePath: "data/leaderboard.db",
		},
		Sync: SyncConfig{
			Destinations:     e.Destinations,
			MinRetryInterval: e.MinRetryInterval,
			WriteAttempts:    e.WriteAttempts,
			BaseBackoff:      e.BaseBackoff,
			MaxBackoff:       e.MaxBackoff,
			RecordDelay:      e.RecordDelay,
		},
		Scheduler: SchedulerConfig{
			SyncInterval:  s.SyncInterval,
			CountInterval: s.CountInterval,
			SyncOnStart:   s.SyncOnStart,
			PassTimeout:   s.PassTimeout,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Chain: ChainConfig{
			PayoutAccount: "0x0000000000000000000000000000000000000000",
		},
	}
}

// Load reads the defaults, then path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfig, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfig, "failed to parse config file", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfig, "failed to parse environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the services cannot run
// with.
func (c *Config) Validate() error {
	var problems []string

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	switch strings.ToLower(c.Storage.Backend) {
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			problems = append(problems, "storage.path is required for the sqlite backend")
		}
	case StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Queue.MaxSize <= 0 {
		problems = append(problems, "queue.max_size must be positive")
	}
	if c.Queue.MaxAge <= 0 {
		problems = append(problems, "queue.max_age must be positive")
	}

	switch strings.ToLower(c.Leaderboard.Backend) {
	case leaderboard.BackendMemory:
	case leaderboard.BackendSQLite:
		if strings.TrimSpace(c.Leaderboard.SQLitePath) == "" {
			problems = append(problems, "leaderboard.sqlite_path is required for the sqlite backend")
		}
	case leaderboard.BackendPostgres:
		if strings.TrimSpace(c.Leaderboard.PostgresDSN) == "" {
			problems = append(problems, "leaderboard.postgres_dsn is required for the postgres backend")
		}
	case leaderboard.BackendREST, "http", "supabase":
		if strings.TrimSpace(c.Leaderboard.RESTURL) == "" {
			problems = append(problems, "leaderboard.rest_url is required for the rest backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown leaderboard backend %q", c.Leaderboard.Backend))
	}

	if len(c.Sync.Destinations) == 0 {
		problems = append(problems, "sync.destinations must not be empty")
	}
	if c.Sync.WriteAttempts <= 0 {
		problems = append(problems, "sync.write_attempts must be positive")
	}
	if c.Sync.MinRetryInterval < 0 || c.Sync.BaseBackoff < 0 || c.Sync.RecordDelay < 0 {
		problems = append(problems, "sync durations must not be negative")
	}

	if c.Scheduler.SyncInterval <= 0 {
		problems = append(problems, "scheduler.sync_interval must be positive")
	}
	if c.Scheduler.CountInterval <= 0 {
		problems = append(problems, "scheduler.count_interval must be positive")
	}

	if len(problems) > 0 {
		return apperrors.New(apperrors.ErrConfig, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

// QueueSettings returns the pending queue settings.
func (c *Config) QueueSettings() *queue.Config {
	return &queue.Config{
		Key:     c.Queue.Key,
		MaxSize: c.Queue.MaxSize,
		MaxAge:  c.Queue.MaxAge,
	}
}

// EngineSettings returns the sync engine settings.
func (c *Config) EngineSettings() *syncpkg.EngineConfig {
	return &syncpkg.EngineConfig{
		Destinations:     append([]string(nil), c.Sync.Destinations...),
		MinRetryInterval: c.Sync.MinRetryInterval,
		WriteAttempts:    c.Sync.WriteAttempts,
		BaseBackoff:      c.Sync.BaseBackoff,
		MaxBackoff:       c.Sync.MaxBackoff,
		RecordDelay:      c.Sync.RecordDelay,
	}
}

// SchedulerSettings returns the scheduler settings.
func (c *Config) SchedulerSettings() *scheduler.SchedulerConfig {
	return &scheduler.SchedulerConfig{
		SyncInterval:  c.Scheduler.SyncInterval,
		CountInterval: c.Scheduler.CountInterval,
		SyncOnStart:   c.Scheduler.SyncOnStart,
		PassTimeout:   c.Scheduler.PassTimeout,
	}
}

// LeaderboardOptions returns the options for leaderboard.Open.
func (c *Config) LeaderboardOptions() leaderboard.Options {
	return leaderboard.Options{
		Backend:     c.Leaderboard.Backend,
		SQLitePath:  c.Leaderboard.SQLitePath,
		PostgresDSN: c.Leaderboard.PostgresDSN,
		RESTURL:     c.Leaderboard.RESTURL,
		RESTAPIKey:  c.Leaderboard.RESTAPIKey,
	}
}
