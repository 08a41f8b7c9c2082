// Package file persists client state as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bobmcallan/vire-desk/internal/interfaces"
)

// KVStorage implements interfaces.KeyValueStorage on a JSON file written with
// 0600 permissions. The whole document is rewritten on every change.
type KVStorage struct {
	path string
	mu   sync.RWMutex
}

// NewKVStorage creates a store persisting to path. The directory is created
// on first write.
func NewKVStorage(path string) *KVStorage {
	return &KVStorage{path: path}
}

// load reads the document. A missing or corrupt file reads as empty.
func (s *KVStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return map[string]string{}, nil
	}
	return values, nil
}

func (s *KVStorage) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Get retrieves a value by key. An absent key yields interfaces.ErrKeyNotFound.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, key)
	}
	return v, nil
}

// Set stores a key-value pair.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// GetAll retrieves all key-value pairs.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Manager adapts KVStorage to interfaces.StorageManager.
type Manager struct {
	kv *KVStorage
}

// NewManager creates a file-backed storage manager.
func NewManager(path string) *Manager {
	return &Manager{kv: NewKVStorage(path)}
}

// KeyValueStorage returns the KeyValue storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }

// Close is a no-op; every write is flushed immediately.
func (m *Manager) Close() error { return nil }
