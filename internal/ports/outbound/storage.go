// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import "context"

// KeyValueStore is the durable storage behind the session and the local
// generated-recipe list. Values survive process restarts.
type KeyValueStore interface {
	// Get returns found=false, err=nil for a missing key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	Close() error
}
