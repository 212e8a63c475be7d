package domain

import (
	"context"
	"time"
)

// Product — срез каталожных данных, необходимый ядру: цена, каталожная
// скидка и минимальный размер заказа. Каталог — внешний коллаборатор.
type Product struct {
	ID             string
	ListPriceMinor int64
	// DiscountMinor — каталожная скидка за единицу, применённая до уровня корзины.
	DiscountMinor   int64
	MinimumOrderQty int32
	Unit            string
}

// CatalogService описывает взаимодействие с сервисом каталога.
type CatalogService interface {
	// Product возвращает данные товара или ErrProductRequired/ошибку каталога.
	Product(ctx context.Context, productID string) (Product, error)
}

// VolumeDiscountTier — ступень объёмной скидки: от minQty единиц действует
// discountPercent процентов.
type VolumeDiscountTier struct {
	MinQty          int32
	DiscountPercent int32
}

// VolumeSchedule — сетка объёмных скидок оптовика, отсортированная по MinQty.
type VolumeSchedule []VolumeDiscountTier

// DiscountFor возвращает процент скидки для запрошенного количества:
// берётся самая глубокая ступень, порог которой достигнут.
func (s VolumeSchedule) DiscountFor(qty int32) int32 {
	var best int32
	var bestMin int32 = -1
	for _, tier := range s {
		if qty >= tier.MinQty && tier.MinQty > bestMin {
			best = tier.DiscountPercent
			bestMin = tier.MinQty
		}
	}
	return best
}

// WholesalerProfile — срез справочника оптовиков: минимальная сумма заказа,
// сетка скидок и отсрочка платежа.
type WholesalerProfile struct {
	ID                     string
	MinimumOrderValueMinor int64
	VolumeSchedule         VolumeSchedule
	// NetTermsDays — длина платёжной отсрочки; 0 означает значение по умолчанию.
	NetTermsDays int
}

// WholesalerDirectory описывает справочник оптовиков.
type WholesalerDirectory interface {
	Profile(ctx context.Context, wholesalerID string) (WholesalerProfile, error)
}

// InvoiceRenderer рендерит счёт по завершённому оптовому заказу и возвращает
// непрозрачный URL. Повторный рендеринг того же заказа не вызывается:
// URL кэшируется на самом заказе.
type InvoiceRenderer interface {
	Render(ctx context.Context, order WholesalerOrder) (string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
