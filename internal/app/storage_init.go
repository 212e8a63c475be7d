package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/postgres"
)

// storageBundle объединяет репозитории выбранного драйвера хранилища.
// Store заполнен только для postgres и используется для readiness-проверки.
type storageBundle struct {
	Orders      domain.OrderRepository
	Wholesale   domain.WholesalerOrderRepository
	Inventory   domain.InventoryRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository
	Store       *postgres.Store
}

func (b *storageBundle) Close() error {
	if b == nil || b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

// initStorage создаёт репозитории по cfg.StorageDriver.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageBundle, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &storageBundle{
			Orders:      memory.NewOrderRepository(),
			Wholesale:   memory.NewWholesalerOrderRepository(),
			Inventory:   memory.NewInventoryRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires POSTGRES_DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		logger.Info("using postgres storage")
		return &storageBundle{
			Orders:      postgres.NewOrderRepository(store),
			Wholesale:   postgres.NewWholesalerOrderRepository(store),
			Inventory:   postgres.NewInventoryRepository(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Idempotency: postgres.NewIdempotencyRepository(store),
			Store:       store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
