package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
)

// sessionKey is one persisted session value. Values may be bearer tokens and
// are never logged.
type sessionKey struct {
	Name  string `badgerhold:"key"`
	Value string
}

// KVStorage is the badger-backed interfaces.KeyValueStorage.
type KVStorage struct {
	store  *badgerhold.Store
	logger *common.Logger
}

// NewKVStorage wraps an open store.
func NewKVStorage(store *badgerhold.Store, logger *common.Logger) *KVStorage {
	return &KVStorage{store: store, logger: logger}
}

// Get returns the value stored under key, or interfaces.ErrKeyNotFound.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	var rec sessionKey
	switch err := s.store.Get(key, &rec); {
	case errors.Is(err, badgerhold.ErrNotFound):
		return "", fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, key)
	case err != nil:
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return rec.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if err := s.store.Upsert(key, &sessionKey{Name: key, Value: value}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	common.FromContext(ctx, s.logger).Debug().Str("key", key).Msg("session key stored")
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	err := s.store.Delete(key, sessionKey{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// GetAll returns every stored key.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	var recs []sessionKey
	if err := s.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.Name] = r.Value
	}
	return out, nil
}
