// Package badger persists the desk's session keys in an embedded Badger
// database through badgerhold.
package badger

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
)

// Open opens the database directory, creating it 0700 when missing. Badger's
// own logger is silenced; open failures are reported through logger.
func Open(cfg *config.BadgerConfig, logger *common.Logger) (*badgerhold.Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger path is empty")
	}
	if err := os.MkdirAll(cfg.Path, 0700); err != nil {
		return nil, fmt.Errorf("create session database directory: %w", err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = cfg.Path
	opts.ValueDir = cfg.Path
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		logger.Warn().Str("path", cfg.Path).Err(err).Msg("session database unavailable")
		return nil, fmt.Errorf("open session database %s: %w", cfg.Path, err)
	}
	logger.Debug().Str("path", cfg.Path).Msg("session database open")
	return store, nil
}
