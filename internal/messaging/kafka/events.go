package kafka

import "time"

// EventType определяет тип публикуемого события.
type EventType string

const (
	// События клиентских заказов.
	EventTypeOrderCreated   EventType = "order-created"
	EventTypeOrderConfirmed EventType = "order-confirmed"
	EventTypeStatusChanged  EventType = "status-changed"
	EventTypeOrderCancelled EventType = "order-cancelled"
	EventTypePaymentSent    EventType = "payment-sent"
	EventTypeOrderCompleted EventType = "order-completed"
)

// Topics для Kafka.
const (
	TopicOrderEvents     = "marketplace.order.events"
	TopicWholesaleEvents = "marketplace.wholesale.events"
	TopicDeadLetterQueue = "marketplace.dlq"
)

// Kafka headers для retry-логики.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// FulfillmentEvent — событие жизненного цикла заказа для внешних подписчиков
// (уведомления, аналитика).
type FulfillmentEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewFulfillmentEvent создаёт событие жизненного цикла заказа.
func NewFulfillmentEvent(eventType EventType, orderID string, metadata map[string]interface{}) *FulfillmentEvent {
	return &FulfillmentEvent{
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
