package badger

import (
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
)

// Manager owns the store and the session storage over it.
type Manager struct {
	store *badgerhold.Store
	kv    *KVStorage
}

// NewManager opens the database described by cfg.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	store, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, kv: NewKVStorage(store, logger)}, nil
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }

// Close releases the database; the manager is unusable afterwards.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}
