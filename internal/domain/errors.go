package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего идентификатора ритейлера.
	ErrRetailerRequired = errors.New("retailer_id is required")
	// Ошибка отсутствующего идентификатора оптовика.
	ErrWholesalerRequired = errors.New("wholesaler_id is required")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка отсутствующего владельца строки остатков.
	ErrOwnerRequired = errors.New("owner_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего адреса доставки.
	ErrDeliveryAddressRequired = errors.New("delivery address is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм sub-заказов.
	ErrAmountMismatch = errors.New("order amount does not match sub-order totals")
	// Ошибка нулевой корзины: распределять скидку не по чему.
	ErrZeroGrandSubtotal = errors.New("cart grand subtotal must be greater than zero")
	// Ошибка отрицательной скидки на уровне корзины.
	ErrDiscountNegative = errors.New("cart discount must be non-negative")
	// Ошибка скидки, превышающей сумму корзины после каталожных скидок.
	ErrDiscountExceedsSubtotal = errors.New("cart discount exceeds grand subtotal")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSubOrderNotFound возвращается, если в заказе нет sub-заказа указанного ритейлера.
	ErrSubOrderNotFound = errors.New("sub-order not found")
	// ErrWholesaleOrderNotFound возвращается, если оптовый заказ не найден.
	ErrWholesaleOrderNotFound = errors.New("wholesale order not found")
	// ErrInventoryNotFound возвращается, если строка остатков (product, owner) отсутствует.
	ErrInventoryNotFound = errors.New("inventory row not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrInsufficientStock — доступного остатка не хватает для резервирования.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockInvariant — операция нарушила бы инвариант 0 <= reserved <= current.
	ErrStockInvariant = errors.New("stock invariant violation")
	// ErrMinimumOrderViolation — сумма оптового заказа ниже минимальной для оптовика.
	ErrMinimumOrderViolation = errors.New("order total is below wholesaler minimum order value")
	// ErrUnauthorizedActor — действие над чужим заказом запрещено.
	ErrUnauthorizedActor = errors.New("actor is not allowed to act on this order")
	// ErrInvalidStateTransition — переход статуса не разрешён из текущего состояния.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrAlreadyPaid — платёж по заказу уже завершён.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrCancellationNotAllowed — отмена запрещена текущим статусом или статусом оплаты.
	ErrCancellationNotAllowed = errors.New("cancellation is not allowed")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrStockTransferFailed — перенос стока не выполнен, заказ остался
	// в delivered и завершение можно повторить.
	ErrStockTransferFailed = errors.New("stock transfer failed")
	// ErrInvoiceRender — внешний сервис документов не отдал счёт.
	ErrInvoiceRender = errors.New("invoice render failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key в запросе.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash тела запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже обрабатывается или обработан.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — тот же ключ пришёл с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key request hash mismatch")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// InsufficientStockError уточняет, какой строки остатков не хватило и насколько.
type InsufficientStockError struct {
	ProductID string
	OwnerID   string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (owner %s): requested %d, available %d",
		e.ProductID, e.OwnerID, e.Requested, e.Available)
}

// Unwrap позволяет сопоставлять ошибку с ErrInsufficientStock через errors.Is.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsNotFound проверяет, относится ли ошибка к категории "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrSubOrderNotFound) ||
		errors.Is(err, ErrWholesaleOrderNotFound) ||
		errors.Is(err, ErrInventoryNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsInvalidTransition проверяет, является ли ошибка запрещённым переходом статуса.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}

// IsInsufficientStock проверяет, вызвана ли ошибка нехваткой остатков.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// IsUnauthorized проверяет, запрещено ли действие актору.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorizedActor)
}

// IsIdempotencyConflict проверяет, относится ли ошибка к конфликтам idempotency-ключей.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) ||
		errors.Is(err, ErrIdempotencyHashMismatch)
}
