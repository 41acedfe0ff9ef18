package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/config"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/storage/postgres"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/storage/sqlite"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// storageBackend groups the durable stores used by the engine. With the memory driver
// every field except attempts is nil.
type storageBackend struct {
	persister     inventory.Persister
	loader        inventory.Loader
	subscriptions events.SubscriptionStore
	attempts      delivery.AttemptLog
	ping          func(context.Context) error
	close         func()
}

func (b *storageBackend) Close() {
	if b.close != nil {
		b.close()
	}
}

func openStorage(ctx context.Context, cfg config.Config) (*storageBackend, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case config.StoragePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		telemetry.Logger.Info("storage_connected", "driver", config.StoragePostgres)
		return &storageBackend{
			persister:     db,
			loader:        db,
			subscriptions: db,
			attempts:      db,
			ping:          db.Ping,
			close:         db.Close,
		}, nil

	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		telemetry.Logger.Info("storage_connected", "driver", config.StorageSQLite, "path", cfg.SQLitePath)
		return &storageBackend{
			persister:     db,
			loader:        db,
			subscriptions: db,
			attempts:      db,
			ping:          db.Ping,
			close: func() {
				if err := db.Close(); err != nil {
					telemetry.Logger.Error("sqlite_close_failed", "error", err)
				}
			},
		}, nil

	default:
		telemetry.Logger.Warn("storage_in_memory", "reason", "state is lost on restart")
		return &storageBackend{
			attempts: delivery.NewMemoryAttemptLog(),
			ping:     func(context.Context) error { return nil },
		}, nil
	}
}
