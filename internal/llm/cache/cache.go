// Package cache provides Redis-backed caching of provider responses.
// Identical prompts sent to the same model are answered from the cache
// until the entry expires. A short lease prevents concurrent callers from
// issuing the same request twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

const (
	keyPrefix          = "assessor:llm:"
	connectionTimeout  = 5 * time.Second
	leaseTimeout       = 30 * time.Second
	retryCheckInterval = 100 * time.Millisecond
	cleanupTimeout     = 5 * time.Second
)

// redisCmdable is the subset of the go-redis client used by the cache.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// entry is the cached representation of a response.
type entry struct {
	Response   transport.Response `json:"response"`
	StoredAtMs int64              `json:"stored_at_ms"`
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// Cache is a response cache middleware. Redis failures degrade to a cache
// bypass rather than failing the request.
type Cache struct {
	client redisCmdable
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64

	logger *slog.Logger
}

// New wraps an existing client.
func New(client redisCmdable, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}
}

// NewFromConfig dials Redis using cfg. It returns (nil, nil, nil) when the
// cache is disabled or Redis is unreachable so callers can skip the middleware.
func NewFromConfig(ctx context.Context, cfg configuration.CacheConfig) (*Cache, *redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis connection failed, cache disabled", "error", err)
		_ = client.Close()
		return nil, nil, nil
	}
	return New(client, cfg.TTL), client, nil
}

// Key derives the cache key of a request.
func Key(req *transport.Request) string {
	h := sha256.New()
	for _, part := range []string{
		req.Model,
		req.SystemPrompt,
		req.Prompt,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errors.Load()}
}

// Middleware returns the transport middleware.
func (c *Cache) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			key := Key(req)

			if resp, err := c.get(ctx, key); err == nil {
				c.hits.Add(1)
				c.logger.Debug("cache hit", "key", key, "model", req.Model)
				return resp, nil
			} else if !errors.Is(err, redis.Nil) {
				c.errors.Add(1)
				c.logger.Warn("cache get error", "error", err, "key", key)
			}
			c.misses.Add(1)

			leaseKey := key + ":lease"
			acquired, err := c.client.SetNX(ctx, leaseKey, "1", leaseTimeout).Result()
			if err != nil {
				c.errors.Add(1)
				c.logger.Warn("cache lease error", "error", err, "key", key)
			}
			if err == nil && !acquired {
				// Another caller is producing this response; wait once for it.
				select {
				case <-time.After(retryCheckInterval):
					if resp, getErr := c.get(ctx, key); getErr == nil {
						c.hits.Add(1)
						return resp, nil
					}
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if acquired {
				defer func() { //nolint:contextcheck // lease cleanup must survive caller cancellation
					cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
					defer cancel()
					if delErr := c.client.Del(cleanupCtx, leaseKey).Err(); delErr != nil {
						c.logger.Warn("lease cleanup error", "error", delErr, "key", leaseKey)
					}
				}()
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}
			if setErr := c.set(ctx, key, resp); setErr != nil {
				c.errors.Add(1)
				c.logger.Warn("cache set error", "error", setErr, "key", key)
			}
			return resp, nil
		})
	}
}

func (c *Cache) get(ctx context.Context, key string) (*transport.Response, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var e entry
	if err := sonic.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	resp := e.Response
	resp.Cached = true
	return &resp, nil
}

func (c *Cache) set(ctx context.Context, key string, resp *transport.Response) error {
	raw, err := sonic.Marshal(entry{Response: *resp, StoredAtMs: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
