package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// URLRenderer формирует непрозрачный URL счёта по завершённому оптовому
// заказу. Сам документ готовит внешний сервис документов; ядру достаточно
// детерминированной ссылки.
type URLRenderer struct {
	baseURL string
}

// NewURLRenderer создаёт рендерер со срезанным хвостовым слэшем базового URL.
func NewURLRenderer(baseURL string) *URLRenderer {
	return &URLRenderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render возвращает URL счёта для заказа.
func (r *URLRenderer) Render(_ context.Context, order domain.WholesalerOrder) (string, error) {
	if order.OrderNumber == "" {
		return "", domain.ErrWholesaleOrderNotFound
	}
	return fmt.Sprintf("%s/invoices/%s.pdf", r.baseURL, order.OrderNumber), nil
}

// MockRenderer — заглушка рендерера для тестов.
type MockRenderer struct {
	URL string
	Err error

	RenderCalls int
}

// Render возвращает настроенные URL или ошибку и считает вызовы.
func (m *MockRenderer) Render(_ context.Context, order domain.WholesalerOrder) (string, error) {
	m.RenderCalls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.URL != "" {
		return m.URL, nil
	}
	return "https://docs.test/invoices/" + order.OrderNumber + ".pdf", nil
}

var _ domain.InvoiceRenderer = (*URLRenderer)(nil)
var _ domain.InvoiceRenderer = (*MockRenderer)(nil)
