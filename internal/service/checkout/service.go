package checkout

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/inventory"
)

// RequestItem — позиция корзины в запросе checkout: цены подставляются
// из каталога на стороне сервиса, клиенту они не доверяются.
type RequestItem struct {
	ProductID  string
	RetailerID string
	Qty        int32
}

// Request — входные данные checkout.
type Request struct {
	CustomerID      string
	DeliveryAddress string
	Items           []RequestItem
	Discount        domain.DiscountSnapshot
}

// Service выполняет checkout мультивендорной корзины: раскладывает её по
// ритейлерам, резервирует остатки и атомарно сохраняет агрегат заказа.
type Service struct {
	orders    domain.OrderRepository
	inventory *inventory.Service
	catalog   domain.CatalogService
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
}

// NewService создаёт checkout-сервис.
func NewService(
	orders domain.OrderRepository,
	inv *inventory.Service,
	catalog domain.CatalogService,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	m *metrics.FulfillmentMetrics,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Service{
		orders:    orders,
		inventory: inv,
		catalog:   catalog,
		outbox:    outbox,
		logger:    logger,
		metrics:   m,
	}
}

// Checkout создаёт заказ из корзины. Резервы, сделанные по ходу неудавшегося
// checkout, освобождаются до возврата ошибки: частично зарезервированных
// корзин не остаётся.
func (s *Service) Checkout(ctx context.Context, req Request) (domain.Order, error) {
	start := time.Now()

	order, err := s.checkout(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutFailed()
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckout()
		s.metrics.RecordSubOrders(len(order.SubOrders))
		s.metrics.RecordCheckoutDuration(time.Since(start))
	}
	return order, nil
}

func (s *Service) checkout(ctx context.Context, req Request) (domain.Order, error) {
	if req.CustomerID == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if req.DeliveryAddress == "" {
		return domain.Order{}, domain.ErrDeliveryAddressRequired
	}
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	lines, err := s.priceLines(ctx, req.Items)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	subOrders, err := Split(lines, req.Discount, now)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.reserveSubOrders(subOrders); err != nil {
		return domain.Order{}, err
	}

	var amount int64
	for i := range subOrders {
		amount += subOrders[i].Pricing.TotalAmountMinor
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(),
		CustomerID:      req.CustomerID,
		SubOrders:       subOrders,
		AmountMinor:     amount,
		DeliveryAddress: req.DeliveryAddress,
		Discount:        req.Discount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(order); err != nil {
		s.releaseSubOrders(subOrders, len(subOrders))
		s.logger.WithError(err).WithField("order_id", order.ID).Error("persist order failed")
		return domain.Order{}, err
	}

	s.emitCreated(&order)
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"sub_orders":   len(order.SubOrders),
		"amount_minor": order.AmountMinor,
	}).Info("checkout completed")
	return order, nil
}

// priceLines подставляет в позиции корзины снимок цен каталога.
func (s *Service) priceLines(ctx context.Context, items []RequestItem) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return nil, domain.ErrProductRequired
		}
		product, err := s.catalog.Product(ctx, item.ProductID)
		if err != nil {
			s.logger.WithError(err).WithField("product_id", item.ProductID).Warn("catalog lookup failed")
			return nil, err
		}
		lines = append(lines, CartLine{
			ProductID:      item.ProductID,
			RetailerID:     item.RetailerID,
			Qty:            item.Qty,
			ListPriceMinor: product.ListPriceMinor,
			DiscountMinor:  product.DiscountMinor,
		})
	}
	return lines, nil
}

// reserveSubOrders резервирует остатки по каждому ритейлеру. При ошибке
// резервы уже обработанных ритейлеров освобождаются до возврата.
func (s *Service) reserveSubOrders(subOrders []domain.SubOrder) error {
	for i := range subOrders {
		sub := &subOrders[i]
		if err := s.inventory.ReserveAll(sub.RetailerID, subOrderLines(sub)); err != nil {
			s.releaseSubOrders(subOrders, i)
			return err
		}
	}
	return nil
}

func (s *Service) releaseSubOrders(subOrders []domain.SubOrder, upTo int) {
	for i := 0; i < upTo; i++ {
		sub := &subOrders[i]
		if err := s.inventory.ReleaseAll(sub.RetailerID, subOrderLines(sub)); err != nil {
			s.logger.WithError(err).WithField("retailer_id", sub.RetailerID).Error("compensating release failed")
		}
	}
}

func subOrderLines(sub *domain.SubOrder) []inventory.Line {
	lines := make([]inventory.Line, 0, len(sub.Items))
	for _, item := range sub.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
	}
	return lines
}

func (s *Service) emitCreated(order *domain.Order) {
	retailers := make([]string, 0, len(order.SubOrders))
	for i := range order.SubOrders {
		retailers = append(retailers, order.SubOrders[i].RetailerID)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"amount_minor": order.AmountMinor,
		"retailers":    retailers,
		"ts":           order.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order-created failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "order-created",
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue order-created failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
