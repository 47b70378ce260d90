// Package ratelimit throttles provider calls with per-model token buckets.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// ErrInvalidConfig is returned for an enabled limiter with a non-positive rate or burst.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// Stats is a snapshot of limiter activity.
type Stats struct {
	Allowed  int64
	Rejected int64
	Limiters int
}

// Limiter is a transport middleware that waits for a token before each call.
// Waiting honors the caller's context; a deadline that cannot be met fails
// fast with transport.ErrRateLimitExceeded.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      configuration.RateLimitConfig

	allowed  atomic.Int64
	rejected atomic.Int64

	logger *slog.Logger
}

// New creates a limiter. A disabled config yields a pass-through limiter.
func New(cfg configuration.RateLimitConfig) (*Limiter, error) {
	if cfg.Enabled && (cfg.TokensPerSecond <= 0 || cfg.BurstSize <= 0) {
		return nil, fmt.Errorf("%w: tokens_per_second=%v burst_size=%d",
			ErrInvalidConfig, cfg.TokensPerSecond, cfg.BurstSize)
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
		logger:   slog.Default().With("component", "ratelimit"),
	}, nil
}

// Middleware returns the transport middleware.
func (l *Limiter) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := l.Wait(ctx, req.Model); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}

// Wait blocks until a token for key is available.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if !l.cfg.Enabled {
		return nil
	}
	if err := l.limiter(key).Wait(ctx); err != nil {
		l.rejected.Add(1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		l.logger.Warn("rate limit wait refused", "key", key, "error", err)
		return fmt.Errorf("%w: %w", transport.ErrRateLimitExceeded, err)
	}
	l.allowed.Add(1)
	return nil
}

// Stats returns current counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	n := len(l.limiters)
	l.mu.Unlock()
	return Stats{
		Allowed:  l.allowed.Load(),
		Rejected: l.rejected.Load(),
		Limiters: n,
	}
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.cfg.TokensPerSecond), l.cfg.BurstSize)
		l.limiters[key] = lim
	}
	return lim
}
