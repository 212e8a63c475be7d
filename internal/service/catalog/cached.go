package catalog

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const defaultProductTTL = 5 * time.Minute

// CachedService — read-through кэш поверх каталога: цены товаров читаются
// часто (каждый checkout), а меняются редко. Ошибки кэша деградируют до
// прямого похода в каталог, а не валят запрос.
type CachedService struct {
	inner  domain.CatalogService
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Entry
}

// NewCachedService оборачивает каталог в кэш с TTL (0 — значение по умолчанию).
func NewCachedService(inner domain.CatalogService, c cache.Cache, ttl time.Duration, logger *log.Entry) *CachedService {
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	if logger == nil {
		logger = log.New().WithField("component", "catalog-cache")
	}
	return &CachedService{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Product возвращает товар из кэша или каталога, прогревая кэш на промахе.
func (s *CachedService) Product(ctx context.Context, productID string) (domain.Product, error) {
	key := s.cache.GenerateKey("product", productID)

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("cache read failed")
	} else if raw != "" {
		var product domain.Product
		if err := json.Unmarshal([]byte(raw), &product); err == nil {
			return product, nil
		}
		s.logger.WithField("product_id", productID).Warn("corrupt cache entry, falling through")
	}

	product, err := s.inner.Product(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			s.logger.WithError(err).WithField("product_id", productID).Warn("cache write failed")
		}
	}
	return product, nil
}

var _ domain.CatalogService = (*CachedService)(nil)
