package configuration

import (
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
)

// Scoring client defaults.
const (
	DefaultEndpoint           = "https://api.openai.com/v1"
	DefaultAPIKeyEnv          = "OPENAI_API_KEY"
	DefaultModel              = "gpt-4o-mini"
	DefaultTemperature        = 0.3
	DefaultMaxTokens          = 500
	DefaultHTTPTimeoutSeconds = 30
)

// Retry constants.
const (
	DefaultInitialInterval   = 250 * time.Millisecond
	DefaultMaxInterval       = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// Cache and checkpoint constants.
const (
	DefaultCacheTTL      = 24 * time.Hour
	DefaultCheckpointTTL = 7 * 24 * time.Hour

	DefaultReportTTL = 30 * 24 * time.Hour

	DefaultEventStreamMaxLen = 100_000
)

// Temporal defaults.
const (
	DefaultTemporalHostPort  = "localhost:7233"
	DefaultTemporalNamespace = "default"
	DefaultTaskQueue         = "assessor"
)

// DefaultConfig returns a configuration that runs entirely in process:
// memory checkpoints, no response cache, local rate limiting.
func DefaultConfig() *Config {
	return &Config{
		Workflow: domain.DefaultRunConfig(),
		Checkpoint: CheckpointConfig{
			Backend: "memory",
			TTL:     DefaultCheckpointTTL,
		},
		Scoring: ScoringConfig{
			Provider: ProviderConfig{
				Endpoint:  DefaultEndpoint,
				APIKeyEnv: DefaultAPIKeyEnv,
				Timeout:   DefaultHTTPTimeoutSeconds * time.Second,
			},
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Retry: RetryConfig{
				InitialInterval: DefaultInitialInterval,
				MaxInterval:     DefaultMaxInterval,
				Multiplier:      DefaultBackoffMultiplier,
				UseJitter:       true,
			},
			RateLimit: RateLimitConfig{
				Enabled:         true,
				TokensPerSecond: DefaultTokensPerSecond,
				BurstSize:       DefaultBurstSize,
			},
			Cache: CacheConfig{
				Enabled: false,
				TTL:     DefaultCacheTTL,
			},
		},
		Reports: ReportsConfig{
			Backend: "memory",
			TTL:     DefaultReportTTL,
		},
		Events: EventsConfig{
			Enabled:      true,
			Sink:         "log",
			StreamMaxLen: DefaultEventStreamMaxLen,
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHostPort,
			Namespace: DefaultTemporalNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}
