// Package llm assembles the provider pipeline used by the scorer:
// logging, response cache, rate limiting and the HTTP provider adapter.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/llm/cache"
	"github.com/ahrav/go-assessor/internal/llm/providers"
	"github.com/ahrav/go-assessor/internal/llm/ratelimit"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// Client sends completion requests through the configured middleware chain.
type Client struct {
	handler transport.Handler
	cfg     configuration.ScoringConfig

	cacheClient *redis.Client
	limiter     *ratelimit.Limiter
	cache       *cache.Cache
}

// Option customizes client construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
	core       transport.Handler
	logger     *slog.Logger
}

// WithHTTPClient overrides the HTTP client used by the provider adapter.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithCoreHandler replaces the HTTP handler at the end of the chain.
func WithCoreHandler(h transport.Handler) Option {
	return func(o *options) { o.core = h }
}

// WithLogger sets the logger used by the logging middleware.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewClient builds the pipeline described by cfg.
func NewClient(ctx context.Context, cfg configuration.ScoringConfig, opts ...Option) (*Client, error) {
	o := options{httpClient: &http.Client{Timeout: cfg.Provider.Timeout}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "llm")
	}

	core := o.core
	if core == nil {
		core = transport.NewHTTPHandler(o.httpClient, providers.NewOpenAIAdapter(cfg.Provider))
	}

	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	c := &Client{cfg: cfg, limiter: limiter}

	middlewares := []transport.Middleware{NewLoggingMiddleware(o.logger)}
	if cfg.Cache.Enabled {
		rc, redisClient, err := cache.NewFromConfig(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("response cache: %w", err)
		}
		if rc != nil {
			c.cache, c.cacheClient = rc, redisClient
			middlewares = append(middlewares, rc.Middleware())
		}
	}
	middlewares = append(middlewares, limiter.Middleware())

	c.handler = transport.Chain(core, middlewares...)
	return c, nil
}

// Complete sends a prompt with the configured model parameters.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (*transport.Response, error) {
	return c.handler.Handle(ctx, &transport.Request{
		Model:        c.cfg.Model,
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
		Timeout:      c.cfg.Provider.Timeout,
	})
}

// RateLimitStats reports limiter counters.
func (c *Client) RateLimitStats() ratelimit.Stats { return c.limiter.Stats() }

// CacheStats reports cache counters; ok is false when caching is off.
func (c *Client) CacheStats() (stats cache.Stats, ok bool) {
	if c.cache == nil {
		return cache.Stats{}, false
	}
	return c.cache.Stats(), true
}

// Close releases the cache connection, if any.
func (c *Client) Close() error {
	if c.cacheClient != nil {
		return c.cacheClient.Close()
	}
	return nil
}
