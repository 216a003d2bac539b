package storage

import (
	"context"
	"errors"
	"fmt"

	"naturequest/internal/config"
	"naturequest/internal/database"
)

// Open builds the adapter selected by cfg.StorageBackend. db is only used by
// the sql backend.
func Open(ctx context.Context, cfg *config.Config, db *database.DB) (Adapter, error) {
	switch cfg.StorageBackend {
	case "bolt", "":
		return OpenBolt(cfg.BoltPath)
	case "sql":
		if db == nil {
			return nil, errors.New("sql storage backend requires a database connection")
		}
		return NewSQL(db), nil
	case "mongo":
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
