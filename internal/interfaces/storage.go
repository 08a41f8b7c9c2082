package interfaces

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStorage.Get for an absent key.
var ErrKeyNotFound = errors.New("key not found")

// StorageManager provides access to the durable client state.
// Implementations can be swapped (BadgerDB or a JSON file).
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}
