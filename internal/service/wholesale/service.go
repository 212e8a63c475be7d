package wholesale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/inventory"
	"github.com/vladislavdragonenkov/marketplace/internal/service/transfer"
)

// defaultNetTermsDays — платёжная отсрочка, если профиль оптовика её не задаёт.
const defaultNetTermsDays = 30

// CreateItem — позиция запроса на создание оптового заказа.
type CreateItem struct {
	ProductID string
	Qty       int32
}

// CreateRequest — входные данные создания оптового заказа.
type CreateRequest struct {
	RetailerID   string
	WholesalerID string
	Items        []CreateItem
}

// Service управляет жизненным циклом оптовых (B2B) заказов: создание
// с резервированием стока оптовика, цепочка подтверждения и отгрузки,
// ортогональная машина оплаты и перенос стока ритейлеру при завершении.
type Service struct {
	orders    domain.WholesalerOrderRepository
	inventory *inventory.Service
	catalog   domain.CatalogService
	directory domain.WholesalerDirectory
	invoices  domain.InvoiceRenderer
	transfer  *transfer.Engine
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
}

// NewService создаёт сервис оптовых заказов.
func NewService(
	orders domain.WholesalerOrderRepository,
	inv *inventory.Service,
	catalog domain.CatalogService,
	directory domain.WholesalerDirectory,
	invoices domain.InvoiceRenderer,
	engine *transfer.Engine,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	m *metrics.FulfillmentMetrics,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "wholesale")
	}
	return &Service{
		orders:    orders,
		inventory: inv,
		catalog:   catalog,
		directory: directory,
		invoices:  invoices,
		transfer:  engine,
		outbox:    outbox,
		logger:    logger,
		metrics:   m,
	}
}

// Get возвращает оптовый заказ.
func (s *Service) Get(orderID string) (domain.WholesalerOrder, error) {
	return s.orders.Get(orderID)
}

// ListByRetailer возвращает заказы ритейлера.
func (s *Service) ListByRetailer(retailerID string, limit int) ([]domain.WholesalerOrder, error) {
	if retailerID == "" {
		return nil, domain.ErrRetailerRequired
	}
	return s.orders.ListByRetailer(retailerID, limit)
}

// ListByWholesaler возвращает заказы оптовика.
func (s *Service) ListByWholesaler(wholesalerID string, limit int) ([]domain.WholesalerOrder, error) {
	if wholesalerID == "" {
		return nil, domain.ErrWholesalerRequired
	}
	return s.orders.ListByWholesaler(wholesalerID, limit)
}

// Create создаёт оптовый заказ: объёмная скидка из сетки оптовика, резерв
// каждой позиции у оптовика, проверка минимальной суммы. Любая ошибка после
// первого успешного резерва освобождает всё зарезервированное этим запросом.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.WholesalerOrder, error) {
	if req.RetailerID == "" {
		return domain.WholesalerOrder{}, domain.ErrRetailerRequired
	}
	if req.WholesalerID == "" {
		return domain.WholesalerOrder{}, domain.ErrWholesalerRequired
	}
	if len(req.Items) == 0 {
		return domain.WholesalerOrder{}, domain.ErrItemsRequired
	}

	profile, err := s.directory.Profile(ctx, req.WholesalerID)
	if err != nil {
		s.logger.WithError(err).WithField("wholesaler_id", req.WholesalerID).Warn("wholesaler lookup failed")
		return domain.WholesalerOrder{}, err
	}

	now := time.Now().UTC()
	items, err := s.priceItems(ctx, profile, req.Items, now)
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	var reserved []inventory.Line
	for _, item := range items {
		if err := s.inventory.Reserve(item.ProductID, req.WholesalerID, item.Qty); err != nil {
			s.releaseLines(req.WholesalerID, reserved)
			return domain.WholesalerOrder{}, err
		}
		reserved = append(reserved, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
	}

	var amount int64
	for _, item := range items {
		amount += item.SubtotalMinor
	}
	if amount < profile.MinimumOrderValueMinor {
		s.releaseLines(req.WholesalerID, reserved)
		s.logger.WithFields(log.Fields{
			"wholesaler_id": req.WholesalerID,
			"amount_minor":  amount,
			"minimum_minor": profile.MinimumOrderValueMinor,
		}).Warn("minimum order value not met")
		return domain.WholesalerOrder{}, domain.ErrMinimumOrderViolation
	}

	netTerms := profile.NetTermsDays
	if netTerms <= 0 {
		netTerms = defaultNetTermsDays
	}

	order := domain.WholesalerOrder{
		ID:             uuid.NewString(),
		OrderNumber:    newOrderNumber(),
		RetailerID:     req.RetailerID,
		WholesalerID:   req.WholesalerID,
		Items:          items,
		Status:         domain.WholesaleStatusPending,
		PaymentStatus:  domain.WholesalePaymentStatusPending,
		AmountMinor:    amount,
		PaymentDueDate: now.AddDate(0, 0, netTerms),
		History: []domain.StatusChange{
			{Status: string(domain.WholesaleStatusPending), OccurredAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(order); err != nil {
		s.releaseLines(req.WholesalerID, reserved)
		s.logger.WithError(err).WithField("order_id", order.ID).Error("persist wholesale order failed")
		return domain.WholesalerOrder{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordWholesaleCreated()
	}
	s.emit(&order, "order-created", map[string]interface{}{
		"amount_minor": order.AmountMinor,
		"lines":        len(order.Items),
	})
	s.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"order_number":  order.OrderNumber,
		"retailer_id":   order.RetailerID,
		"wholesaler_id": order.WholesalerID,
		"amount_minor":  order.AmountMinor,
	}).Info("wholesale order created")
	return order, nil
}

// priceItems резолвит цены каталога и сетку объёмных скидок в позиции заказа.
func (s *Service) priceItems(ctx context.Context, profile domain.WholesalerProfile, items []CreateItem, now time.Time) ([]domain.WholesaleItem, error) {
	result := make([]domain.WholesaleItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return nil, domain.ErrProductRequired
		}
		if item.Qty <= 0 {
			return nil, domain.ErrItemQtyInvalid
		}
		product, err := s.catalog.Product(ctx, item.ProductID)
		if err != nil {
			s.logger.WithError(err).WithField("product_id", item.ProductID).Warn("catalog lookup failed")
			return nil, err
		}

		pct := profile.VolumeSchedule.DiscountFor(item.Qty)
		unitPrice := product.ListPriceMinor * int64(100-pct) / 100
		result = append(result, domain.WholesaleItem{
			ID:                    uuid.NewString(),
			ProductID:             item.ProductID,
			Qty:                   item.Qty,
			UnitPriceMinor:        unitPrice,
			VolumeDiscountPercent: pct,
			SubtotalMinor:         unitPrice * int64(item.Qty),
			CreatedAt:             now,
		})
	}
	return result, nil
}

// Confirm переводит заказ pending → confirmed. Доступно только оптовику-владельцу.
func (s *Service) Confirm(orderID, actorID string) (domain.WholesalerOrder, error) {
	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.WholesalerID {
			return domain.ErrUnauthorizedActor
		}
		if order.Status != domain.WholesaleStatusPending {
			return domain.ErrInvalidStateTransition
		}
		order.Status = domain.WholesaleStatusConfirmed
		order.AppendHistory(domain.WholesaleStatusConfirmed, "", time.Now().UTC())
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.emit(&order, "order-confirmed", nil)
	return order, nil
}

// Reject отклоняет заказ из pending и освобождает весь резерв.
func (s *Service) Reject(orderID, actorID, note string) (domain.WholesalerOrder, error) {
	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.WholesalerID {
			return domain.ErrUnauthorizedActor
		}
		if order.Status != domain.WholesaleStatusPending {
			return domain.ErrInvalidStateTransition
		}
		order.Status = domain.WholesaleStatusRejected
		order.AppendHistory(domain.WholesaleStatusRejected, note, time.Now().UTC())
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.releaseLines(order.WholesalerID, orderLines(&order))
	if s.metrics != nil {
		s.metrics.RecordWholesaleRejected()
	}
	s.emit(&order, "status-changed", map[string]interface{}{
		"status": string(domain.WholesaleStatusRejected),
		"note":   note,
	})
	return order, nil
}

// UpdateStatus двигает машину отгрузки на единственный разрешённый шаг
// вперёд. Доставка автоматически запускает перенос стока и завершение.
func (s *Service) UpdateStatus(ctx context.Context, orderID, actorID string, next domain.WholesaleStatus, note string) (domain.WholesalerOrder, error) {
	if !next.Valid() {
		return domain.WholesalerOrder{}, domain.ErrInvalidStateTransition
	}
	if next == domain.WholesaleStatusCancelled {
		return s.Cancel(orderID, actorID, note)
	}
	if next == domain.WholesaleStatusRejected {
		return s.Reject(orderID, actorID, note)
	}
	if next == domain.WholesaleStatusCompleted {
		return s.complete(ctx, orderID, actorID)
	}

	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.WholesalerID {
			return domain.ErrUnauthorizedActor
		}
		if !order.Status.CanTransitionTo(next) {
			return domain.ErrInvalidStateTransition
		}
		order.Status = next
		order.AppendHistory(next, note, time.Now().UTC())
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.emit(&order, "status-changed", map[string]interface{}{"status": string(next)})

	// Доставленный заказ сразу завершается переносом стока. Ошибка переноса
	// оставляет заказ в delivered: завершение можно повторить отдельным шагом.
	if next == domain.WholesaleStatusDelivered {
		completed, err := s.complete(ctx, orderID, actorID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Error("auto-complete after delivery failed")
			return order, fmt.Errorf("order delivered, auto-complete pending retry: %w", err)
		}
		return completed, nil
	}
	return order, nil
}

// errAlreadyCompleted помечает проигравшего гонки завершения: заказ уже
// закрыт конкурентным вызовом, переносить сток второй раз нельзя.
var errAlreadyCompleted = errors.New("wholesale order already completed")

// complete закрывает заказ и переносит сток ритейлеру. Переход
// delivered → completed сериализуется версией заказа: перенос выполняет
// только тот вызов, чья запись прошла первой. Повторный вызов для
// завершённого заказа возвращает заказ без изменений.
func (s *Service) complete(ctx context.Context, orderID, actorID string) (domain.WholesalerOrder, error) {
	var delivered domain.WholesalerOrder

	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.WholesalerID {
			return domain.ErrUnauthorizedActor
		}
		switch order.Status {
		case domain.WholesaleStatusCompleted:
			return errAlreadyCompleted
		case domain.WholesaleStatusDelivered:
			delivered = *order
			order.Status = domain.WholesaleStatusCompleted
			order.AppendHistory(domain.WholesaleStatusCompleted, "", time.Now().UTC())
			return nil
		default:
			return domain.ErrInvalidStateTransition
		}
	})
	if errors.Is(err, errAlreadyCompleted) {
		return s.orders.Get(orderID)
	}
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	// Перенос идёт по снимку до перехода: резервы заказа ещё учтены как
	// reserved. Неудача возвращает заказ в delivered для повторной попытки.
	if err := s.transfer.Transfer(&delivered); err != nil {
		if _, revertErr := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
			if order.Status != domain.WholesaleStatusCompleted {
				return nil
			}
			order.Status = domain.WholesaleStatusDelivered
			order.AppendHistory(domain.WholesaleStatusDelivered, "stock transfer failed, completion postponed", time.Now().UTC())
			return nil
		}); revertErr != nil {
			s.logger.WithError(revertErr).WithField("order_id", orderID).Error("revert to delivered after transfer failure failed")
		}
		return domain.WholesalerOrder{}, fmt.Errorf("%w: %v", domain.ErrStockTransferFailed, err)
	}

	if order.InvoiceURL == "" && s.invoices != nil {
		s.attachInvoice(ctx, &order)
	}

	if s.metrics != nil {
		s.metrics.RecordWholesaleCompleted()
	}
	s.emit(&order, "order-completed", map[string]interface{}{
		"amount_minor": order.AmountMinor,
		"invoice_url":  order.InvoiceURL,
	})
	return order, nil
}

// attachInvoice рендерит счёт и кэширует URL на заказе. Ошибка рендеринга
// не валит завершение: счёт можно запросить повторно через Invoice.
func (s *Service) attachInvoice(ctx context.Context, order *domain.WholesalerOrder) {
	url, err := s.invoices.Render(ctx, *order)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("invoice render failed")
		return
	}

	updated, err := s.updateOrder(order.ID, func(o *domain.WholesalerOrder) error {
		if o.InvoiceURL == "" {
			o.InvoiceURL = url
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("persist invoice url failed")
		return
	}
	*order = updated
}

// Invoice возвращает URL счёта, рендеря его при первом обращении.
func (s *Service) Invoice(ctx context.Context, orderID, actorID string) (string, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return "", err
	}
	if actorID != order.RetailerID && actorID != order.WholesalerID {
		return "", domain.ErrUnauthorizedActor
	}
	if order.InvoiceURL != "" {
		return order.InvoiceURL, nil
	}
	if s.invoices == nil {
		return "", domain.ErrInvoiceRender
	}
	s.attachInvoice(ctx, &order)
	if order.InvoiceURL == "" {
		return "", domain.ErrInvoiceRender
	}
	return order.InvoiceURL, nil
}

// NotifyPaymentSent — ритейлер сообщает об отправке оплаты: pending → processing.
func (s *Service) NotifyPaymentSent(orderID, actorID string) (domain.WholesalerOrder, error) {
	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.RetailerID {
			return domain.ErrUnauthorizedActor
		}
		if order.PaymentStatus == domain.WholesalePaymentStatusCompleted {
			return domain.ErrAlreadyPaid
		}
		if !order.PaymentStatus.CanAdvanceTo(domain.WholesalePaymentStatusProcessing) {
			return domain.ErrInvalidStateTransition
		}
		order.PaymentStatus = domain.WholesalePaymentStatusProcessing
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.emit(&order, "payment-sent", nil)
	return order, nil
}

// MarkAsPaid — оптовик подтверждает получение оплаты: processing → completed.
func (s *Service) MarkAsPaid(orderID, actorID string) (domain.WholesalerOrder, error) {
	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.WholesalerID {
			return domain.ErrUnauthorizedActor
		}
		if order.PaymentStatus == domain.WholesalePaymentStatusCompleted {
			return domain.ErrAlreadyPaid
		}
		if !order.PaymentStatus.CanAdvanceTo(domain.WholesalePaymentStatusCompleted) {
			return domain.ErrInvalidStateTransition
		}
		order.PaymentStatus = domain.WholesalePaymentStatusCompleted
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.emit(&order, "status-changed", map[string]interface{}{
		"payment_status": string(domain.WholesalePaymentStatusCompleted),
	})
	return order, nil
}

// Cancel отменяет заказ ритейлером: допустимо из любого статуса, кроме
// delivered и конечных. Весь резерв освобождается; если оплата успела уйти
// дальше pending, статус оплаты помечается refunded.
func (s *Service) Cancel(orderID, actorID, note string) (domain.WholesalerOrder, error) {
	order, err := s.updateOrder(orderID, func(order *domain.WholesalerOrder) error {
		if actorID != order.RetailerID {
			return domain.ErrUnauthorizedActor
		}
		if !order.CanCancel() {
			return domain.ErrCancellationNotAllowed
		}
		order.Status = domain.WholesaleStatusCancelled
		if order.PaymentStatus != domain.WholesalePaymentStatusPending {
			order.PaymentStatus = domain.WholesalePaymentStatusRefunded
		}
		order.AppendHistory(domain.WholesaleStatusCancelled, note, time.Now().UTC())
		return nil
	})
	if err != nil {
		return domain.WholesalerOrder{}, err
	}

	s.releaseLines(order.WholesalerID, orderLines(&order))
	if s.metrics != nil {
		s.metrics.RecordWholesaleCancelled()
	}
	s.emit(&order, "order-cancelled", map[string]interface{}{"note": note})
	return order, nil
}

// updateOrder перечитывает заказ, применяет мутацию и сохраняет с повтором
// при конфликте версий.
func (s *Service) updateOrder(orderID string, mutate func(*domain.WholesalerOrder) error) (domain.WholesalerOrder, error) {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		order, err := s.orders.Get(orderID)
		if err != nil {
			return domain.WholesalerOrder{}, err
		}
		if err := mutate(&order); err != nil {
			return domain.WholesalerOrder{}, err
		}
		order.UpdatedAt = time.Now().UTC()

		if err := s.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": orderID,
					"attempt":  attempt + 1,
				}).Warn("version conflict, retrying")
				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			s.logger.WithError(err).WithField("order_id", orderID).Error("persist wholesale order failed")
			return domain.WholesalerOrder{}, err
		}
		order.Version++
		return order, nil
	}
	return domain.WholesalerOrder{}, domain.ErrOrderVersionConflict
}

func (s *Service) releaseLines(ownerID string, lines []inventory.Line) {
	if len(lines) == 0 {
		return
	}
	if err := s.inventory.ReleaseAll(ownerID, lines); err != nil {
		s.logger.WithError(err).WithField("owner_id", ownerID).Error("release reservations failed")
	}
}

func (s *Service) emit(order *domain.WholesalerOrder, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	payload["order_number"] = order.OrderNumber
	payload["retailer_id"] = order.RetailerID
	payload["wholesaler_id"] = order.WholesalerID
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}
	msg := domain.OutboxMessage{
		AggregateType: "wholesale_order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func orderLines(order *domain.WholesalerOrder) []inventory.Line {
	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
	}
	return lines
}

func newOrderNumber() string {
	return "WO-" + strings.ToUpper(uuid.NewString()[:8])
}
