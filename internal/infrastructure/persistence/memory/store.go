// Package memory provides an in-memory key-value store. It does not survive a
// restart and backs the "memory" storage driver and tests.
package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/client/internal/ports/outbound"
)

// Store implements outbound.KeyValueStore in memory
type Store struct {
	data  map[string]string
	mutex sync.RWMutex
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Get retrieves a value
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, ok := s.data[key]
	return value, ok, nil
}

// Set stores a value
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = value
	return nil
}

// Delete removes a key
func (s *Store) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

var _ outbound.KeyValueStore = (*Store)(nil)
