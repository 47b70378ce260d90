package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.7, cfg.Workflow.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Workflow.ScoringConcurrency)
	assert.Equal(t, 2, cfg.Workflow.ScoringRetries)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, DefaultCheckpointTTL, cfg.Checkpoint.TTL)
	assert.False(t, cfg.Scoring.Cache.Enabled)
	assert.True(t, cfg.Scoring.RateLimit.Enabled)
	assert.Equal(t, "memory", cfg.Reports.Backend)
	assert.Equal(t, DefaultTaskQueue, cfg.Temporal.TaskQueue)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "threshold_above_one",
			mutate:  func(c *Config) { c.Workflow.ConfidenceThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero_concurrency",
			mutate:  func(c *Config) { c.Workflow.ScoringConcurrency = 0 },
			wantErr: true,
		},
		{
			name:    "unknown_backend",
			mutate:  func(c *Config) { c.Checkpoint.Backend = "etcd" },
			wantErr: true,
		},
		{
			name:    "redis_backend_without_addr",
			mutate:  func(c *Config) { c.Checkpoint.Backend = "redis" },
			wantErr: true,
		},
		{
			name: "redis_backend_with_addr",
			mutate: func(c *Config) {
				c.Checkpoint.Backend = "redis"
				c.Checkpoint.RedisAddr = "localhost:6379"
			},
		},
		{
			name:    "cache_enabled_without_addr",
			mutate:  func(c *Config) { c.Scoring.Cache.Enabled = true },
			wantErr: true,
		},
		{
			name:    "bad_endpoint",
			mutate:  func(c *Config) { c.Scoring.Provider.Endpoint = "not a url" },
			wantErr: true,
		},
		{
			name:    "max_interval_below_initial",
			mutate:  func(c *Config) { c.Scoring.Retry.MaxInterval = time.Millisecond },
			wantErr: true,
		},
		{
			name:    "redis_event_sink_without_addr",
			mutate:  func(c *Config) { c.Events.Sink = "redis" },
			wantErr: true,
		},
		{
			name:    "redis_reports_without_addr",
			mutate:  func(c *Config) { c.Reports.Backend = "redis" },
			wantErr: true,
		},
		{
			name:    "temporal_host_without_port",
			mutate:  func(c *Config) { c.Temporal.HostPort = "localhost" },
			wantErr: true,
		},
		{
			name:    "temporal_without_task_queue",
			mutate:  func(c *Config) { c.Temporal.TaskQueue = "" },
			wantErr: true,
		},
		{
			name:    "unknown_log_level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "trace" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Workflow, cfg.Workflow)
}

func TestLoad_OverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessor.yaml")
	content := `
workflow:
  confidence_threshold: 0.85
  scoring_concurrency: 2
checkpoint:
  backend: redis
  redis_addr: localhost:6379
  ttl: 1h
scoring:
  model: gpt-4o
observability:
  log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.Workflow.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.Workflow.ScoringConcurrency)
	assert.Equal(t, 2, cfg.Workflow.ScoringRetries, "unset fields keep defaults")
	assert.Equal(t, "redis", cfg.Checkpoint.Backend)
	assert.Equal(t, time.Hour, cfg.Checkpoint.TTL)
	assert.Equal(t, "gpt-4o", cfg.Scoring.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.Scoring.MaxTokens)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflow:\n  confidence_threshold: 3\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		DefaultAPIKeyEnv:           "sk-test",
		EnvCheckpointRedisPassword: "checkpoint-secret",
		EnvCacheRedisPassword:      "cache-secret",
		EnvReportsRedisPassword:    "reports-secret",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "sk-test", cfg.Scoring.Provider.APIKey)
	assert.Equal(t, "checkpoint-secret", cfg.Checkpoint.RedisPassword)
	assert.Equal(t, "cache-secret", cfg.Scoring.Cache.RedisPassword)
	assert.Equal(t, "reports-secret", cfg.Reports.RedisPassword)
	assert.Empty(t, cfg.Events.RedisPassword)
}
