package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-assessor/internal/configuration"
)

// DefaultArtifactPrefix namespaces report artifact keys in Redis.
const DefaultArtifactPrefix = "assessor:artifact:"

const redisDialTimeout = 5 * time.Second

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisArtifactStore keeps report artifacts in Redis with an optional TTL.
type RedisArtifactStore struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

// NewRedisArtifactStore wraps an existing client. An empty prefix selects
// DefaultArtifactPrefix.
func NewRedisArtifactStore(client redisKV, prefix string, ttl time.Duration) *RedisArtifactStore {
	if prefix == "" {
		prefix = DefaultArtifactPrefix
	}
	return &RedisArtifactStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisArtifactStoreFromConfig dials Redis with cfg and verifies the connection.
func NewRedisArtifactStoreFromConfig(ctx context.Context, cfg configuration.ReportsConfig) (*RedisArtifactStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect report redis %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisArtifactStore(client, cfg.KeyPrefix, cfg.TTL), client, nil
}

// Put implements ArtifactStore.
func (s *RedisArtifactStore) Put(ctx context.Context, key string, content []byte) error {
	if key == "" {
		return ErrArtifactKeyEmpty
	}
	if err := s.client.Set(ctx, s.prefix+key, content, s.ttl).Err(); err != nil {
		return fmt.Errorf("put artifact %q: %w", key, err)
	}
	return nil
}

// Get implements ArtifactStore.
func (s *RedisArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrArtifactKeyEmpty
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %q: %w", key, err)
	}
	return data, nil
}
