package report

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Artifact store errors.
var (
	ErrArtifactKeyEmpty = errors.New("artifact key cannot be empty")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ArtifactStore holds rendered report artifacts by key.
type ArtifactStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// MemoryArtifactStore is an in-process ArtifactStore for development and tests.
type MemoryArtifactStore struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

// NewMemoryArtifactStore creates an empty store.
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{storage: make(map[string][]byte)}
}

// Put stores a copy of content under key.
func (s *MemoryArtifactStore) Put(_ context.Context, key string, content []byte) error {
	if key == "" {
		return ErrArtifactKeyEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage[key] = slices.Clone(content)
	return nil
}

// Get returns a copy of the content stored under key.
func (s *MemoryArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrArtifactKeyEmpty
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.storage[key]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return slices.Clone(content), nil
}

// Keys returns the stored keys in sorted order.
func (s *MemoryArtifactStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.storage))
	for k := range s.storage {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
