// Package testutils provides shared test helpers, fakes and factories
package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/client/internal/ports/outbound"
)

// RunKeyValueStoreConformance checks the outbound.KeyValueStore contract.
func RunKeyValueStoreConformance(t *testing.T, store outbound.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissingKey_ReturnsNotFound", func(t *testing.T) {
		value, found, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("SetThenGet_ReturnsValue", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "accessToken", "abc123"))

		value, found, err := store.Get(ctx, "accessToken")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "abc123", value)
	})

	t.Run("Set_OverwritesValue", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "accessToken", "first"))
		require.NoError(t, store.Set(ctx, "accessToken", "second"))

		value, _, err := store.Get(ctx, "accessToken")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("Delete_RemovesKeyAndIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "accessToken", "abc123"))
		require.NoError(t, store.Delete(ctx, "accessToken"))
		require.NoError(t, store.Delete(ctx, "accessToken"))

		_, found, err := store.Get(ctx, "accessToken")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Keys_AreIndependent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "a", "1"))
		require.NoError(t, store.Set(ctx, "b", "2"))
		require.NoError(t, store.Delete(ctx, "a"))

		value, found, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "2", value)
	})
}

// MockKeyValueStore provides a mock implementation of outbound.KeyValueStore
type MockKeyValueStore struct {
	mock.Mock
}

// Get retrieves a value
func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Set stores a value
func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

// Delete removes a key
func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// Close closes the store
func (m *MockKeyValueStore) Close() error {
	return m.Called().Error(0)
}

// CountingStore wraps a store and counts operations per kind.
type CountingStore struct {
	outbound.KeyValueStore
	mu      sync.Mutex
	gets    int
	sets    int
	deletes int
}

// NewCountingStore wraps next
func NewCountingStore(next outbound.KeyValueStore) *CountingStore {
	return &CountingStore{KeyValueStore: next}
}

// Get retrieves a value
func (c *CountingStore) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.KeyValueStore.Get(ctx, key)
}

// Set stores a value
func (c *CountingStore) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.KeyValueStore.Set(ctx, key, value)
}

// Delete removes a key
func (c *CountingStore) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.KeyValueStore.Delete(ctx, key)
}

// Gets returns the number of Get calls
func (c *CountingStore) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// Deletes returns the number of Delete calls
func (c *CountingStore) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

var (
	_ outbound.KeyValueStore = (*MockKeyValueStore)(nil)
	_ outbound.KeyValueStore = (*CountingStore)(nil)
)
