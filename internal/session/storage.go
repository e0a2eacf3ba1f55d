package session

import "context"

// Storage is a session-scoped key/value store.
type Storage interface {
	// GetItem returns the value stored under key, or nil, nil when absent.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Clear removes every key of the session.
	Clear(ctx context.Context) error
}
