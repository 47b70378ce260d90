package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/domain"
)

const (
	// Redis connection defaults.
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second

	// DefaultKeyPrefix namespaces checkpoint keys.
	DefaultKeyPrefix = "assessor:checkpoint:"

	scanBatchSize = 100
)

// redisCmdable is the subset of the Redis client used by RedisStore.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisStore persists checkpoints in Redis so sessions survive process
// restarts and can be resumed from any instance. Retention of abandoned or
// completed sessions is delegated to the key TTL.
type RedisStore struct {
	client redisCmdable
	prefix string
	ttl    time.Duration
	codec  Codec
	now    func() time.Time
	logger *slog.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStore) { r.prefix = prefix }
}

// WithRedisTTL sets the expiry applied on every save. Zero keeps keys forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) { r.ttl = ttl }
}

// WithRedisClock overrides the time source used for SavedAt.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *RedisStore) { r.now = now }
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redisCmdable, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
		codec:  NewCodec(),
		now:    time.Now,
		logger: slog.Default().With("component", "checkpoint"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisStoreFromConfig dials Redis with cfg and verifies the connection.
// Unlike a cache, a checkpoint store cannot degrade silently, so a failed
// ping is returned as an error.
func NewRedisStoreFromConfig(ctx context.Context, cfg configuration.CheckpointConfig) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: defaultPoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect checkpoint redis %s: %w", cfg.RedisAddr, err)
	}

	opts := []RedisOption{WithRedisTTL(cfg.TTL)}
	if cfg.KeyPrefix != "" {
		opts = append(opts, WithKeyPrefix(cfg.KeyPrefix))
	}
	return NewRedisStore(client, opts...), client, nil
}

func (r *RedisStore) key(sessionID string) string { return r.prefix + sessionID }

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, sessionID string, state domain.SessionState, step int64) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	data, err := r.codec.Encode(Checkpoint{SessionID: sessionID, Step: step, SavedAt: r.now().UTC(), State: state})
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint %q: %w", sessionID, err)
	}

	r.logger.Debug("checkpoint saved", "session_id", sessionID, "step", step, "bytes", len(data))
	return nil
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (Checkpoint, error) {
	if sessionID == "" {
		return Checkpoint{}, ErrEmptySessionID
	}

	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint %q: %w", sessionID, err)
	}

	cp, err := r.codec.Decode(data)
	if err != nil {
		r.logger.Warn("corrupt checkpoint", "session_id", sessionID, "error", err)
		return Checkpoint{}, err
	}
	return cp, nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", sessionID, err)
	}
	return nil
}

// List implements Store. Keys are found with SCAN, so sessions saved or
// expiring during the call may or may not be included.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		for _, k := range keys {
			if id, ok := strings.CutPrefix(k, r.prefix); ok && id != "" {
				seen[id] = true
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return slices.Sorted(maps.Keys(seen)), nil
}
