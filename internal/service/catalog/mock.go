package catalog

import (
	"context"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// MockService — конфигурируемая заглушка каталога для тестов.
type MockService struct {
	Products map[string]domain.Product
	Err      error

	ProductCalls int
}

// NewMockService возвращает mock с пустым каталогом.
func NewMockService() *MockService {
	return &MockService{Products: make(map[string]domain.Product)}
}

// Add кладёт товар в каталог заглушки.
func (m *MockService) Add(product domain.Product) {
	m.Products[product.ID] = product
}

// Product возвращает товар из карты или заранее настроенную ошибку.
func (m *MockService) Product(_ context.Context, productID string) (domain.Product, error) {
	m.ProductCalls++
	if m.Err != nil {
		return domain.Product{}, m.Err
	}
	product, ok := m.Products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductRequired
	}
	return product, nil
}

var _ domain.CatalogService = (*MockService)(nil)
