package checkpoint

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
)

// MemoryStore keeps checkpoints in process memory. Entries are stored in
// encoded form so a loaded state never aliases the state that was saved.
// It is intended for single-process deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	codec   Codec
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL expires checkpoints ttl after their last save. Zero disables expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.ttl = ttl }
}

// WithMemoryClock overrides the time source used for SavedAt and expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		codec:   NewCodec(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, sessionID string, state domain.SessionState, step int64) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	now := m.now().UTC()
	data, err := m.codec.Encode(Checkpoint{SessionID: sessionID, Step: step, SavedAt: now, State: state})
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[sessionID] = entry
	m.mu.Unlock()
	return nil
}

// Load implements Store. Expired entries are removed and reported as ErrNotFound.
func (m *MemoryStore) Load(_ context.Context, sessionID string) (Checkpoint, error) {
	if sessionID == "" {
		return Checkpoint{}, ErrEmptySessionID
	}

	m.mu.RLock()
	entry, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Checkpoint{}, ErrNotFound
	}

	if entry.expired(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Save may have refreshed it.
		if cur, ok := m.entries[sessionID]; ok && cur.expired(m.now()) {
			delete(m.entries, sessionID)
		}
		m.mu.Unlock()
		return Checkpoint{}, ErrNotFound
	}

	return m.codec.Decode(entry.data)
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}

// List implements Store. Expired entries are skipped.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	now := m.now()
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id, entry := range m.entries {
		if !entry.expired(now) {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

// Prune removes every expired checkpoint and returns how many were removed.
func (m *MemoryStore) Prune() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored checkpoints, including expired ones not yet pruned.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
