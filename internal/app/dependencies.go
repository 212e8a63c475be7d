package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/directory"
	"github.com/vladislavdragonenkov/marketplace/internal/service/inventory"
	"github.com/vladislavdragonenkov/marketplace/internal/service/invoice"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/transfer"
	"github.com/vladislavdragonenkov/marketplace/internal/service/wholesale"
)

// Dependencies содержит собранный граф сервисов приложения.
type Dependencies struct {
	Storage   *storageBundle
	Catalog   domain.CatalogService
	Checkout  *checkout.Service
	Orders    *order.Service
	Wholesale *wholesale.Service
	Metrics   *metrics.FulfillmentMetrics
	Logger    *log.Entry
}

// NewDependencies собирает сервисы поверх выбранного хранилища.
// NOTE: catalog и directory пока замоканы; в production окружении они
// должны быть заменены на клиентов внешних сервисов.
func NewDependencies(cfg Config, storage *storageBundle, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	m := metrics.NewFulfillmentMetrics()

	var catalogSvc domain.CatalogService = catalog.NewMockService()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, "marketplace-catalog")
		catalogSvc = catalog.NewCachedService(catalogSvc, redisCache, cfg.CatalogCacheTTL,
			logger.WithField("component", "catalog-cache"))
		logger.WithField("redis_addr", cfg.RedisAddr).Info("catalog cache enabled")
	}

	inventorySvc := inventory.NewService(storage.Inventory, logger.WithField("component", "inventory"), m)
	transferEngine := transfer.NewEngine(storage.Inventory, logger.WithField("component", "transfer"), m)

	checkoutSvc := checkout.NewService(
		storage.Orders,
		inventorySvc,
		catalogSvc,
		storage.Outbox,
		logger.WithField("component", "checkout"),
		m,
	)
	orderSvc := order.NewService(
		storage.Orders,
		inventorySvc,
		storage.Outbox,
		logger.WithField("component", "order"),
		m,
	)
	wholesaleSvc := wholesale.NewService(
		storage.Wholesale,
		inventorySvc,
		catalogSvc,
		directory.NewMockDirectory(),
		invoice.NewURLRenderer(cfg.InvoiceBaseURL),
		transferEngine,
		storage.Outbox,
		logger.WithField("component", "wholesale"),
		m,
	)

	return &Dependencies{
		Storage:   storage,
		Catalog:   catalogSvc,
		Checkout:  checkoutSvc,
		Orders:    orderSvc,
		Wholesale: wholesaleSvc,
		Metrics:   m,
		Logger:    logger,
	}
}
