// Package persistence selects and opens the configured durable storage.
package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/file"
	gormstore "github.com/alchemorsel/client/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/memory"
	redisstore "github.com/alchemorsel/client/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/sealed"
	"github.com/alchemorsel/client/internal/ports/outbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// Watcher is implemented by stores that can report external modification.
type Watcher interface {
	Watch(onChange func()) error
}

// Storage is the opened store plus an optional change watcher. Watcher is
// nil for backends that cannot observe other writers.
type Storage struct {
	outbound.KeyValueStore
	Watcher Watcher
}

// Open builds the store selected by cfg.Driver, sealing values when an
// encryption key is configured.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Storage, error) {
	var (
		store   outbound.KeyValueStore
		watcher Watcher
		err     error
	)

	switch cfg.Driver {
	case config.StorageFile:
		var fs *file.Store
		fs, err = file.NewStore(cfg.Path, logger)
		store, watcher = fs, fs
	case config.StorageSQLite:
		store, err = gormstore.OpenSQLite(cfg.Path)
	case config.StoragePostgres:
		store, err = gormstore.OpenPostgres(cfg.DSN)
	case config.StorageRedis:
		store, err = redisstore.NewStore(ctx, redisstore.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	case config.StorageMemory:
		store = memory.NewStore()
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown storage.driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, apperrors.NewStorageError("open "+cfg.Driver+" storage", err)
	}

	if cfg.EncryptionKey != "" {
		sealedStore, err := sealed.NewStore(store, cfg.EncryptionKey)
		if err != nil {
			store.Close()
			return nil, apperrors.NewStorageError("enable encryption", err)
		}
		store = sealedStore
	}

	logger.Debug("Storage opened", zap.String("driver", cfg.Driver), zap.Bool("sealed", cfg.EncryptionKey != ""))

	return &Storage{KeyValueStore: store, Watcher: watcher}, nil
}
