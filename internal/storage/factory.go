package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/logging"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver string
	DSN    string
	// AutoMigrate runs gorm AutoMigrate on SQL backends after opening.
	AutoMigrate bool
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}
	switch drv {
	case "memory":
		logging.Info("storage: using in-memory backend")
		return NewMemory(), nil

	case "file":
		logging.Info("storage: using file backend", zap.String("dir", cfg.DSN))
		return OpenFile(cfg.DSN)

	case "sqlite", "postgres", "postgrespool":
		logging.Info("storage: using gorm backend", zap.String("driver", drv))
		st, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("storage migrate: %w", err)
			}
		}
		return st, nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, drv)
	}
}
