// Package checkpoint persists session state snapshots so a suspended workflow
// can be resumed later, possibly by a different process. A save overwrites the
// previous checkpoint for the same session; only the step counter is kept as
// version history.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
)

var (
	// ErrNotFound is returned by Load when a session never suspended or its
	// checkpoint was deleted or expired.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorrupt indicates stored bytes that cannot be decoded into a checkpoint.
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrEmptySessionID is returned when an operation is called without a session id.
	ErrEmptySessionID = errors.New("session id is required")
)

// Checkpoint is a persisted snapshot of a session.
type Checkpoint struct {
	SessionID string              `json:"session_id"`
	Step      int64               `json:"step"`
	SavedAt   time.Time           `json:"saved_at"`
	State     domain.SessionState `json:"state"`
}

// Store is keyed persistence of session snapshots.
// Implementations must be safe for concurrent use across distinct sessions.
type Store interface {
	// Save writes state under sessionID, replacing any previous checkpoint.
	Save(ctx context.Context, sessionID string, state domain.SessionState, step int64) error

	// Load returns the latest checkpoint or ErrNotFound.
	Load(ctx context.Context, sessionID string) (Checkpoint, error)

	// Delete removes the checkpoint. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of stored sessions in lexical order.
	List(ctx context.Context) ([]string, error)
}
