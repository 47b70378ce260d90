// Package configuration holds the typed configuration for the assessor:
// the per-session workflow policy, storage backends, the scoring client and
// its middleware, event emission, the Temporal worker and logging.
package configuration

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-assessor/internal/domain"
)

// ErrInvalidConfig indicates a configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root configuration.
type Config struct {
	// Workflow is the default policy applied to new sessions.
	Workflow domain.RunConfig `yaml:"workflow" json:"workflow"`

	Checkpoint    CheckpointConfig    `yaml:"checkpoint" json:"checkpoint"`
	Scoring       ScoringConfig       `yaml:"scoring" json:"scoring"`
	Reports       ReportsConfig       `yaml:"reports" json:"reports"`
	Events        EventsConfig        `yaml:"events" json:"events"`
	Temporal      TemporalConfig      `yaml:"temporal" json:"temporal"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// CheckpointConfig selects and configures the checkpoint store.
type CheckpointConfig struct {
	Backend string `yaml:"backend" json:"backend" validate:"oneof=memory redis"`

	// TTL bounds how long a suspended or finished session is retained. Zero keeps it forever.
	TTL time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`

	// DeleteOnComplete removes the checkpoint once a session reaches a terminal node
	// instead of retaining the final snapshot for status queries.
	DeleteOnComplete bool `yaml:"delete_on_complete" json:"delete_on_complete"`

	KeyPrefix     string `yaml:"key_prefix" json:"key_prefix"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"-" json:"-"` // Sensitive, loaded from the environment.
	RedisDB       int    `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
}

// ScoringConfig configures the LLM-backed scoring client.
type ScoringConfig struct {
	Provider    ProviderConfig  `yaml:"provider" json:"provider"`
	Model       string          `yaml:"model" json:"model" validate:"required"`
	Temperature float64         `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int             `yaml:"max_tokens" json:"max_tokens" validate:"gt=0"`
	Retry       RetryConfig     `yaml:"retry" json:"retry"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Cache       CacheConfig     `yaml:"cache" json:"cache"`
}

// ProviderConfig holds the endpoint and credentials of an OpenAI-compatible API.
type ProviderConfig struct {
	Endpoint  string            `yaml:"endpoint" json:"endpoint" validate:"required,url"`
	APIKey    string            `yaml:"-" json:"-"` // Sensitive, not serialized
	APIKeyEnv string            `yaml:"api_key_env" json:"api_key_env"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout" validate:"gt=0"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
}

// RetryConfig shapes the backoff between scoring attempts. The number of
// attempts comes from the session's RunConfig.ScoringRetries.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
	UseJitter       bool          `yaml:"use_jitter" json:"use_jitter"`
}

// RateLimitConfig controls the local token bucket in front of the provider.
type RateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	TokensPerSecond float64 `yaml:"tokens_per_second" json:"tokens_per_second" validate:"required_if=Enabled true,gte=0"`
	BurstSize       int     `yaml:"burst_size" json:"burst_size" validate:"required_if=Enabled true,gte=0"`
}

// CacheConfig controls Redis caching of scoring responses. Identical
// question/answer pairs are scored once per TTL.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	TTL           time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Enabled true"`
	RedisPassword string        `yaml:"-" json:"-"` // Sensitive field excluded from serialization.
	RedisDB       int           `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
}

// ReportsConfig selects where assembled report artifacts are kept.
type ReportsConfig struct {
	Backend string `yaml:"backend" json:"backend" validate:"oneof=memory redis"`

	// TTL bounds artifact retention in Redis. Zero keeps artifacts forever.
	TTL           time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
	KeyPrefix     string        `yaml:"key_prefix" json:"key_prefix"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"-" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
}

// TemporalConfig locates the Temporal frontend used by the worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" json:"host_port" validate:"required,hostname_port"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
	TaskQueue string `yaml:"task_queue" json:"task_queue" validate:"required"`
}

// EventsConfig controls workflow event emission.
type EventsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Sink selects the destination: structured log lines or a Redis stream.
	Sink          string `yaml:"sink" json:"sink" validate:"oneof=log redis"`
	Stream        string `yaml:"stream" json:"stream"`
	StreamMaxLen  int64  `yaml:"stream_max_len" json:"stream_max_len" validate:"gte=0"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Sink redis"`
	RedisPassword string `yaml:"-" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
}

// ObservabilityConfig controls structured logging.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=json text"`
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("%w: workflow: %w", ErrInvalidConfig, err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Environment variables consulted for secrets.
const (
	EnvCheckpointRedisPassword = "ASSESSOR_CHECKPOINT_REDIS_PASSWORD"
	EnvCacheRedisPassword      = "ASSESSOR_CACHE_REDIS_PASSWORD"
	EnvEventsRedisPassword     = "ASSESSOR_EVENTS_REDIS_PASSWORD"
	EnvReportsRedisPassword    = "ASSESSOR_REPORTS_REDIS_PASSWORD"
)

// Load reads a YAML file over DefaultConfig, resolves secrets from the
// environment and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv fills sensitive fields from the environment using getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Scoring.Provider.APIKeyEnv != "" {
		if v := getenv(c.Scoring.Provider.APIKeyEnv); v != "" {
			c.Scoring.Provider.APIKey = v
		}
	}
	if v := getenv(EnvCheckpointRedisPassword); v != "" {
		c.Checkpoint.RedisPassword = v
	}
	if v := getenv(EnvCacheRedisPassword); v != "" {
		c.Scoring.Cache.RedisPassword = v
	}
	if v := getenv(EnvEventsRedisPassword); v != "" {
		c.Events.RedisPassword = v
	}
	if v := getenv(EnvReportsRedisPassword); v != "" {
		c.Reports.RedisPassword = v
	}
}
