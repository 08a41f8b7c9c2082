package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/storage/badger"
	"github.com/bobmcallan/vire-desk/internal/storage/file"
)

// NewStorageManager creates a new storage manager based on config.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "file":
		logger.Debug().Str("path", cfg.Storage.File.Path).Msg("file storage manager initialized")
		return file.NewManager(cfg.Storage.File.Path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
