package order

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/inventory"
)

// Service управляет жизненным циклом sub-заказов: переходы статусов строго
// вперёд, история append-only, агрегатный статус заказа выводится, а не
// хранится. Конкурентные переходы сериализуются optimistic locking'ом
// с повторами.
type Service struct {
	orders    domain.OrderRepository
	inventory *inventory.Service
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
}

// NewService создаёт сервис жизненного цикла заказов.
func NewService(
	orders domain.OrderRepository,
	inv *inventory.Service,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	m *metrics.FulfillmentMetrics,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order")
	}
	return &Service{orders: orders, inventory: inv, outbox: outbox, logger: logger, metrics: m}
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// ListByCustomer возвращает заказы клиента.
func (s *Service) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrCustomerRequired
	}
	return s.orders.ListByCustomer(customerID, limit)
}

// UpdateSubOrderStatus переводит sub-заказ ритейлера в следующий статус.
// Действовать может только ритейлер-владелец sub-заказа. Отмена идёт через
// Cancel: у неё свои предусловия и освобождение резерва.
func (s *Service) UpdateSubOrderStatus(orderID, retailerID, actorID string, next domain.SubOrderStatus, note string) (domain.Order, error) {
	if next == domain.SubOrderStatusCancelled {
		return s.CancelSubOrder(orderID, retailerID, actorID, note)
	}
	if !next.Valid() {
		return domain.Order{}, domain.ErrInvalidStateTransition
	}

	order, err := s.updateOrder(orderID, func(order *domain.Order) error {
		sub, err := order.SubOrderFor(retailerID)
		if err != nil {
			return err
		}
		if actorID != sub.RetailerID {
			return domain.ErrUnauthorizedActor
		}
		if !sub.Status.CanTransitionTo(next) {
			return domain.ErrInvalidStateTransition
		}
		sub.Status = next
		sub.History = append(sub.History, domain.StatusChange{
			Status:     string(next),
			Note:       note,
			OccurredAt: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.applyStockEffect(&order, retailerID, next)
	s.emit(&order, retailerID, "status-changed", map[string]interface{}{"status": string(next)})
	return order, nil
}

// CancelSubOrder отменяет sub-заказ: допустимо только из pending/confirmed
// при незавершённой оплате. Резерв освобождается синхронно — следующая
// попытка резервирования уже видит возвращённый остаток.
func (s *Service) CancelSubOrder(orderID, retailerID, actorID string, note string) (domain.Order, error) {
	var released []inventory.Line
	order, err := s.updateOrder(orderID, func(order *domain.Order) error {
		sub, err := order.SubOrderFor(retailerID)
		if err != nil {
			return err
		}
		if actorID != sub.RetailerID && actorID != order.CustomerID {
			return domain.ErrUnauthorizedActor
		}
		if !sub.CanCancel() {
			return domain.ErrCancellationNotAllowed
		}
		sub.Status = domain.SubOrderStatusCancelled
		sub.History = append(sub.History, domain.StatusChange{
			Status:     string(domain.SubOrderStatusCancelled),
			Note:       note,
			OccurredAt: time.Now().UTC(),
		})
		released = subOrderLines(sub)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.inventory.ReleaseAll(retailerID, released); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":    orderID,
			"retailer_id": retailerID,
		}).Error("release after cancel failed")
	}
	s.emit(&order, retailerID, "order-cancelled", map[string]interface{}{"note": note})
	return order, nil
}

// MarkSubOrderPaid отмечает оплату sub-заказа завершённой.
func (s *Service) MarkSubOrderPaid(orderID, retailerID string) (domain.Order, error) {
	order, err := s.updateOrder(orderID, func(order *domain.Order) error {
		sub, err := order.SubOrderFor(retailerID)
		if err != nil {
			return err
		}
		if sub.PaymentStatus == domain.OrderPaymentStatusCompleted {
			return domain.ErrAlreadyPaid
		}
		sub.PaymentStatus = domain.OrderPaymentStatusCompleted
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.emit(&order, retailerID, "payment-sent", nil)
	return order, nil
}

// applyStockEffect двигает остатки вслед за статусом: при отгрузке резерв
// списывается навсегда, при возврате товар приходит обратно на склад.
func (s *Service) applyStockEffect(order *domain.Order, retailerID string, next domain.SubOrderStatus) {
	sub, err := order.SubOrderFor(retailerID)
	if err != nil {
		return
	}
	switch next {
	case domain.SubOrderStatusShipped:
		for _, line := range subOrderLines(sub) {
			if err := s.inventory.Commit(line.ProductID, retailerID, line.Qty); err != nil {
				s.logger.WithError(err).WithFields(log.Fields{
					"order_id":    order.ID,
					"retailer_id": retailerID,
					"product_id":  line.ProductID,
				}).Error("commit on ship failed")
			}
		}
	case domain.SubOrderStatusReturned:
		for _, line := range subOrderLines(sub) {
			if err := s.inventory.Restock(line.ProductID, retailerID, line.Qty); err != nil {
				s.logger.WithError(err).WithFields(log.Fields{
					"order_id":    order.ID,
					"retailer_id": retailerID,
					"product_id":  line.ProductID,
				}).Error("restock on return failed")
			}
		}
	}
}

// updateOrder перечитывает заказ, применяет мутацию и сохраняет с повтором
// при конфликте версий: exponential backoff, свежая копия на каждой попытке.
func (s *Service) updateOrder(orderID string, mutate func(*domain.Order) error) (domain.Order, error) {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		order, err := s.orders.Get(orderID)
		if err != nil {
			return domain.Order{}, err
		}
		if err := mutate(&order); err != nil {
			return domain.Order{}, err
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
			s.logger.WithError(err).WithField("order_id", orderID).Error("persist order failed")
			return domain.Order{}, err
		}
		order.Version++
		return order, nil
	}
	return domain.Order{}, domain.ErrOrderVersionConflict
}

func (s *Service) emit(order *domain.Order, retailerID, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	payload["retailer_id"] = retailerID
	payload["master_status"] = string(order.MasterStatus())
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
		AggregateType: "order",
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

func subOrderLines(sub *domain.SubOrder) []inventory.Line {
	lines := make([]inventory.Line, 0, len(sub.Items))
	for _, item := range sub.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
	}
	return lines
}
