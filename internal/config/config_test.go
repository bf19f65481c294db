package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mmm_score_queue", cfg.Queue.Key)
	assert.Equal(t, 100, cfg.Queue.MaxSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Queue.MaxAge)
	assert.Equal(t, []string{"memory-match-daily", "memory-match-alltime"}, cfg.Sync.Destinations)
	assert.Equal(t, 30*time.Second, cfg.Sync.MinRetryInterval)
	assert.Equal(t, 3, cfg.Sync.WriteAttempts)
	assert.Equal(t, time.Second, cfg.Sync.BaseBackoff)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.RecordDelay)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.CountInterval)
	assert.True(t, cfg.Scheduler.SyncOnStart)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, `
log_level: debug
storage:
  backend: memory
queue:
  max_size: 50
  max_age: 48h
leaderboard:
  backend: postgres
  postgres_dsn: postgres://mmm@localhost/mmm?sslmode=disable
sync:
  destinations: [memory-match-daily]
  min_retry_interval: 45s
scheduler:
  sync_interval: 2m
  sync_on_start: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 50, cfg.Queue.MaxSize)
	assert.Equal(t, 48*time.Hour, cfg.Queue.MaxAge)
	assert.Equal(t, "postgres", cfg.Leaderboard.Backend)
	assert.Equal(t, []string{"memory-match-daily"}, cfg.Sync.Destinations)
	assert.Equal(t, 45*time.Second, cfg.Sync.MinRetryInterval)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.SyncInterval)
	assert.False(t, cfg.Scheduler.SyncOnStart)

	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Sync.WriteAttempts)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
queue:
  max_size: 50
server:
  addr: ":9000"
`)
	t.Setenv("MMM_QUEUE_MAX_SIZE", "25")
	t.Setenv("MMM_SYNC_DESTINATIONS", "board-a,board-b")
	t.Setenv("MMM_SCHEDULER_SYNC_INTERVAL", "90s")
	t.Setenv("MMM_LEADERBOARD_BACKEND", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Queue.MaxSize)
	assert.Equal(t, []string{"board-a", "board-b"}, cfg.Sync.Destinations)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.SyncInterval)
	assert.Equal(t, "memory", cfg.Leaderboard.Backend)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, apperrors.Is(err, apperrors.ErrConfig))

	_, err = Load(writeFile(t, "queue: [not, a, map]"))
	assert.True(t, apperrors.Is(err, apperrors.ErrConfig))

	t.Setenv("MMM_QUEUE_MAX_SIZE", "lots")
	_, err = Load("")
	assert.True(t, apperrors.Is(err, apperrors.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"bad storage", func(c *Config) { c.Storage.Backend = "s3" }, "unknown storage backend"},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"zero queue size", func(c *Config) { c.Queue.MaxSize = 0 }, "queue.max_size"},
		{"postgres without dsn", func(c *Config) { c.Leaderboard.Backend = "postgres" }, "postgres_dsn"},
		{"rest without url", func(c *Config) { c.Leaderboard.Backend = "rest" }, "rest_url"},
		{"unknown leaderboard", func(c *Config) { c.Leaderboard.Backend = "redis" }, "unknown leaderboard backend"},
		{"no destinations", func(c *Config) { c.Sync.Destinations = nil }, "sync.destinations"},
		{"zero attempts", func(c *Config) { c.Sync.WriteAttempts = 0 }, "sync.write_attempts"},
		{"negative delay", func(c *Config) { c.Sync.RecordDelay = -time.Second }, "negative"},
		{"zero interval", func(c *Config) { c.Scheduler.SyncInterval = 0 }, "scheduler.sync_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSettings(t *testing.T) {
	cfg := Default()

	q := cfg.QueueSettings()
	assert.Equal(t, cfg.Queue.MaxSize, q.MaxSize)

	e := cfg.EngineSettings()
	assert.Equal(t, cfg.Sync.Destinations, e.Destinations)
	e.Destinations[0] = "changed"
	assert.Equal(t, "memory-match-daily", cfg.Sync.Destinations[0])

	s := cfg.SchedulerSettings()
	assert.Equal(t, cfg.Scheduler.SyncInterval, s.SyncInterval)

	opts := cfg.LeaderboardOptions()
	assert.Equal(t, cfg.Leaderboard.SQLitePath, opts.SQLitePath)
}
