// Package events provides the event envelope and sinks used to publish
// assessment lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps a domain event with routing and idempotency metadata.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing, e.g. "session.suspended".
	Type string `json:"type"`

	// Source identifies the emitting component.
	Source string `json:"source"`

	// Version of the payload schema.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is derived from the session and step so that re-emitted
	// events for the same transition can be deduplicated.
	IdempotencyKey string `json:"idempotency_key"`

	SessionID string `json:"session_id"`
	Step      int64  `json:"step"`

	// Payload contains the event data as JSON. Schema varies by Type.
	Payload json.RawMessage `json:"payload"`
}

// EventSink emits events to downstream consumers.
//
// Delivery is best effort: callers do not fail their primary operation when
// Append returns an error.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
