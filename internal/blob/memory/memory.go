package memory

import (
	"context"
	"sync"

	"github.com/safouanmatmati/ratingboard/internal/blob"
)

// Store is an in-process implementation of blob.Store. Values do not survive
// a restart; it is meant for tests and throwaway runs.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory blob store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", blob.ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
