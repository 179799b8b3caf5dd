// Package storage provides the key-value stores behind the daily cache:
// in-memory, one JSON file per key, SQLite and PostgreSQL. Every store
// replaces values in a single step and reports absent keys as
// domain.ErrNotFound.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

// Store is what the daily cache needs from a backend.
type Store interface {
	ports.KeyValueStore
	ports.KeyLister
	ports.HealthChecker
	io.Closer
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Dir)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, cfg.Table)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

func notFound(key string) error {
	return domain.NewNotFoundError("key", key)
}
