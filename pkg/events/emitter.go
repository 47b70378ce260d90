package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// SchemaVersion is the payload schema version stamped on emitted envelopes.
const SchemaVersion = "1.0.0"

const (
	maxEmitAttempts = 2
	emitRetryDelay  = 200 * time.Millisecond
)

// Emitter builds envelopes and appends them to a sink with best-effort
// delivery. Failures are logged and never returned.
type Emitter struct {
	sink   EventSink
	source string
	now    func() time.Time
	logger *slog.Logger
}

// NewEmitter creates an emitter for source. A nil sink discards events.
func NewEmitter(sink EventSink, source string) *Emitter {
	if sink == nil {
		sink = NewNoOpEventSink()
	}
	return &Emitter{
		sink:   sink,
		source: source,
		now:    time.Now,
		logger: slog.Default().With("component", "events"),
	}
}

// WithClock returns a copy of e using now for timestamps.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	c := *e
	c.now = now
	return &c
}

// IdempotencyKey derives the deduplication key of an event.
func IdempotencyKey(eventType, sessionID string, step int64) string {
	return fmt.Sprintf("%s:%s:%d", sessionID, eventType, step)
}

// Emit publishes an event. One retry is attempted after a short delay.
func (e *Emitter) Emit(ctx context.Context, eventType, sessionID string, step int64, payload any) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		e.logger.WarnContext(ctx, "event payload encoding failed", "event_type", eventType, "error", err)
		return
	}

	env := Envelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		Source:         e.source,
		Version:        SchemaVersion,
		Timestamp:      e.now().UTC(),
		IdempotencyKey: IdempotencyKey(eventType, sessionID, step),
		SessionID:      sessionID,
		Step:           step,
		Payload:        json.RawMessage(body),
	}

	var lastErr error
	for attempt := range maxEmitAttempts {
		if attempt > 0 {
			select {
			case <-time.After(emitRetryDelay):
			case <-ctx.Done():
				e.logger.WarnContext(ctx, "event emission cancelled", "event_type", eventType, "session_id", sessionID)
				return
			}
		}
		if lastErr = e.sink.Append(ctx, env); lastErr == nil {
			return
		}
	}
	e.logger.WarnContext(ctx, "event emission failed",
		"event_type", eventType,
		"session_id", sessionID,
		"attempts", maxEmitAttempts,
		"error", lastErr)
}
