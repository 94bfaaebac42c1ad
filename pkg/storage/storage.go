package storage

import (
	"context"
	"errors"
)

var (
	// ErrInvalidKey is returned when an empty key is passed to a storage operation.
	ErrInvalidKey = errors.New("storage: key cannot be empty")

	// ErrStorageClosed is returned by backends that were already closed.
	ErrStorageClosed = errors.New("storage: closed")
)

// Storage is a durable key/value store the SDK uses for state that must survive
// process restarts: the analytics snapshot and cached API responses.
//
// Get returns nil, nil for a missing key. Set replaces the whole value.
// Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
