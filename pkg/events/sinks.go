package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs through logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.InfoContext(ctx, "event",
		"id", e.ID,
		"type", e.Type,
		"session_id", e.SessionID,
		"step", e.Step,
		"idempotency_key", e.IdempotencyKey,
		"payload", string(e.Payload))
	return nil
}

// MemorySink keeps events in memory, dropping duplicates by idempotency key.
type MemorySink struct {
	mu     sync.Mutex
	events []Envelope
	seen   map[string]bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]bool)}
}

// Append implements EventSink.
func (s *MemorySink) Append(_ context.Context, e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IdempotencyKey != "" {
		if s.seen[e.IdempotencyKey] {
			return nil
		}
		s.seen[e.IdempotencyKey] = true
	}
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the recorded events in append order.
func (s *MemorySink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Types returns the recorded event types in append order.
func (s *MemorySink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

// streamAdder is the subset of the go-redis client used by RedisStreamSink.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "assessor:events"

// RedisStreamSink appends events to a Redis stream. Each entry carries the
// event type, session id and the JSON-encoded envelope.
type RedisStreamSink struct {
	client streamAdder
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink on stream. maxLen > 0 caps the stream
// length approximately.
func NewRedisStreamSink(client streamAdder, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Append implements EventSink.
func (s *RedisStreamSink) Append(ctx context.Context, e Envelope) error {
	body, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":       e.Type,
			"session_id": e.SessionID,
			"envelope":   string(body),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append event %s to %s: %w", e.ID, s.stream, err)
	}
	return nil
}
