// Package storage persists the session credentials across restarts.
package storage

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/config"
	"rentdirect/pkg/database"
	"rentdirect/pkg/interfaces"
)

// Fixed keys of the persisted area.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Open builds the store selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger hclog.Logger) (interfaces.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteStore(&database.Config{Path: cfg.Path, BusyTimeout: 5 * time.Second}, cfg.Timeout, logger)
	case config.DriverBadger:
		return NewBadgerStore(cfg.Path, logger)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
