// Package worker wires the assessor runtime from configuration and registers
// the Temporal workflow and activities. Initialization runs once at startup;
// the packages it wires stay free of configuration loading.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-assessor/internal/checkpoint"
	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/engine"
	"github.com/ahrav/go-assessor/internal/llm"
	"github.com/ahrav/go-assessor/internal/report"
	"github.com/ahrav/go-assessor/internal/scoring"
	"github.com/ahrav/go-assessor/pkg/events"
)

const redisPingTimeout = 5 * time.Second

// Runtime bundles the engine with the resources it owns.
type Runtime struct {
	Engine    *engine.Engine
	Reports   report.ArtifactStore
	LLMClient *llm.Client

	closers []io.Closer
}

// Close releases every connection opened by Build.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// BuildOption customizes Build, mainly for tests.
type BuildOption func(*buildOptions)

type buildOptions struct {
	scorer   scoring.Scorer
	sink     events.EventSink
	logger   *slog.Logger
	progress engine.ProgressFunc
}

// WithScorer replaces the LLM-backed scorer.
func WithScorer(s scoring.Scorer) BuildOption {
	return func(o *buildOptions) { o.scorer = s }
}

// WithEventSink replaces the configured event sink.
func WithEventSink(s events.EventSink) BuildOption {
	return func(o *buildOptions) { o.sink = s }
}

// WithProgress installs an engine progress hook, such as activity.Heartbeat
// for engines served by a Temporal worker.
func WithProgress(f engine.ProgressFunc) BuildOption {
	return func(o *buildOptions) { o.progress = f }
}

// WithLogger sets the logger handed to the engine and the log event sink.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// Build wires the engine and its dependencies from cfg.
func Build(ctx context.Context, cfg *configuration.Config, opts ...BuildOption) (*Runtime, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	rt := &Runtime{}
	fail := func(err error) (*Runtime, error) {
		_ = rt.Close()
		return nil, err
	}

	store, err := rt.initializeCheckpointStore(ctx, cfg.Checkpoint)
	if err != nil {
		return fail(err)
	}
	reports, err := rt.initializeArtifactStore(ctx, cfg.Reports)
	if err != nil {
		return fail(err)
	}
	rt.Reports = reports

	sink := o.sink
	if sink == nil {
		if sink, err = rt.initializeEventSink(ctx, cfg.Events, o.logger); err != nil {
			return fail(err)
		}
	}

	scorer := o.scorer
	if scorer == nil {
		client, err := InitializeLLMClient(ctx, cfg.Scoring, o.logger)
		if err != nil {
			return fail(err)
		}
		rt.LLMClient = client
		rt.closers = append(rt.closers, client)
		scorer = scoring.NewLLMScorer(client)
	}

	engineOpts := []engine.Option{
		engine.WithDefaults(cfg.Workflow),
		engine.WithRetryBackoff(cfg.Scoring.Retry),
		engine.WithDeleteOnComplete(cfg.Checkpoint.DeleteOnComplete),
		engine.WithEventSink(sink),
		engine.WithLogger(o.logger.With("component", "engine")),
	}
	if o.progress != nil {
		engineOpts = append(engineOpts, engine.WithProgress(o.progress))
	}
	eng, err := engine.New(store, scorer, report.NewStoreAssembler(reports), engineOpts...)
	if err != nil {
		return fail(err)
	}
	rt.Engine = eng
	return rt, nil
}

// InitializeLLMClient creates the scoring client with its middleware pipeline.
func InitializeLLMClient(ctx context.Context, cfg configuration.ScoringConfig, logger *slog.Logger) (*llm.Client, error) {
	client, err := llm.NewClient(ctx, cfg, llm.WithLogger(logger.With("component", "llm")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return client, nil
}

func (r *Runtime) initializeCheckpointStore(ctx context.Context, cfg configuration.CheckpointConfig) (checkpoint.Store, error) {
	if cfg.Backend != "redis" {
		return checkpoint.NewMemoryStore(checkpoint.WithMemoryTTL(cfg.TTL)), nil
	}
	store, client, err := checkpoint.NewRedisStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, client)
	return store, nil
}

func (r *Runtime) initializeArtifactStore(ctx context.Context, cfg configuration.ReportsConfig) (report.ArtifactStore, error) {
	if cfg.Backend != "redis" {
		return report.NewMemoryArtifactStore(), nil
	}
	store, client, err := report.NewRedisArtifactStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, client)
	return store, nil
}

func (r *Runtime) initializeEventSink(ctx context.Context, cfg configuration.EventsConfig, logger *slog.Logger) (events.EventSink, error) {
	switch {
	case !cfg.Enabled:
		return events.NewNoOpEventSink(), nil
	case cfg.Sink == "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect event redis %s: %w", cfg.RedisAddr, err)
		}
		r.closers = append(r.closers, client)
		return events.NewRedisStreamSink(client, cfg.Stream, cfg.StreamMaxLen), nil
	default:
		return events.NewLogSink(logger), nil
	}
}

// NewLogger builds the process logger from the observability settings.
// Logs go to stderr so command output on stdout stays machine readable.
func NewLogger(cfg configuration.ObservabilityConfig) *slog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg configuration.ObservabilityConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
