package domain

import "time"

// WholesaleStatus описывает жизненный цикл оптового (B2B) заказа
// ритейлера у оптовика.
type WholesaleStatus string

const (
	// WholesaleStatusPending — заказ создан, сток зарезервирован, ждём решения оптовика.
	WholesaleStatusPending WholesaleStatus = "pending"
	// WholesaleStatusConfirmed — оптовик принял заказ.
	WholesaleStatusConfirmed WholesaleStatus = "confirmed"
	// WholesaleStatusProcessing — заказ комплектуется.
	WholesaleStatusProcessing WholesaleStatus = "processing"
	// WholesaleStatusShipped — заказ отгружен ритейлеру.
	WholesaleStatusShipped WholesaleStatus = "shipped"
	// WholesaleStatusDelivered — заказ доставлен; в этот момент выполняется перенос стока.
	WholesaleStatusDelivered WholesaleStatus = "delivered"
	// WholesaleStatusCompleted — сток перенесён ритейлеру, цикл закрыт.
	WholesaleStatusCompleted WholesaleStatus = "completed"
	// WholesaleStatusCancelled — ритейлер отменил заказ до доставки.
	WholesaleStatusCancelled WholesaleStatus = "cancelled"
	// WholesaleStatusRejected — оптовик отклонил заказ.
	WholesaleStatusRejected WholesaleStatus = "rejected"
)

// WholesalePaymentStatus — независимая от отгрузки машина состояний оплаты.
type WholesalePaymentStatus string

const (
	WholesalePaymentStatusPending    WholesalePaymentStatus = "pending"
	WholesalePaymentStatusProcessing WholesalePaymentStatus = "processing"
	WholesalePaymentStatusCompleted  WholesalePaymentStatus = "completed"
	WholesalePaymentStatusRefunded   WholesalePaymentStatus = "refunded"
)

// wholesaleForwardEdge задаёт единственный разрешённый шаг вперёд для каждого
// статуса. Произвольные прыжки запрещены.
var wholesaleForwardEdge = map[WholesaleStatus]WholesaleStatus{
	WholesaleStatusPending:    WholesaleStatusConfirmed,
	WholesaleStatusConfirmed:  WholesaleStatusProcessing,
	WholesaleStatusProcessing: WholesaleStatusShipped,
	WholesaleStatusShipped:    WholesaleStatusDelivered,
	WholesaleStatusDelivered:  WholesaleStatusCompleted,
}

// Valid проверяет принадлежность статуса закрытому набору.
func (s WholesaleStatus) Valid() bool {
	switch s {
	case WholesaleStatusPending, WholesaleStatusConfirmed, WholesaleStatusProcessing,
		WholesaleStatusShipped, WholesaleStatusDelivered, WholesaleStatusCompleted,
		WholesaleStatusCancelled, WholesaleStatusRejected:
		return true
	default:
		return false
	}
}

// Next возвращает следующий статус отгрузки и false, если движение вперёд
// из текущего статуса невозможно.
func (s WholesaleStatus) Next() (WholesaleStatus, bool) {
	next, ok := wholesaleForwardEdge[s]
	return next, ok
}

// IsTerminal отвечает, является ли статус конечным.
func (s WholesaleStatus) IsTerminal() bool {
	return s == WholesaleStatusCompleted || s == WholesaleStatusCancelled || s == WholesaleStatusRejected
}

// CanTransitionTo разрешает только единственный forward-переход.
func (s WholesaleStatus) CanTransitionTo(next WholesaleStatus) bool {
	allowed, ok := s.Next()
	return ok && allowed == next
}

// paymentForwardEdge: pending → processing → completed.
var paymentForwardEdge = map[WholesalePaymentStatus]WholesalePaymentStatus{
	WholesalePaymentStatusPending:    WholesalePaymentStatusProcessing,
	WholesalePaymentStatusProcessing: WholesalePaymentStatusCompleted,
}

// CanAdvanceTo проверяет шаг машины оплаты.
func (s WholesalePaymentStatus) CanAdvanceTo(next WholesalePaymentStatus) bool {
	allowed, ok := paymentForwardEdge[s]
	return ok && allowed == next
}

// WholesaleItem — позиция оптового заказа с уже применённой объёмной скидкой.
type WholesaleItem struct {
	ID        string
	ProductID string
	Qty       int32
	// UnitPriceMinor — цена за единицу после объёмной скидки.
	UnitPriceMinor int64
	// VolumeDiscountPercent — применённый процент скидки из сетки оптовика.
	VolumeDiscountPercent int32
	SubtotalMinor         int64
	CreatedAt             time.Time
}

// WholesalerOrder агрегирует B2B-заказ: позиции, машину статусов отгрузки,
// ортогональную машину оплаты и историю.
type WholesalerOrder struct {
	ID           string
	OrderNumber  string
	RetailerID   string
	WholesalerID string
	Items        []WholesaleItem
	Status       WholesaleStatus
	PaymentStatus WholesalePaymentStatus
	AmountMinor  int64
	// PaymentDueDate фиксируется при создании (дата создания + net terms)
	// и никогда не пересчитывается.
	PaymentDueDate time.Time
	History        []StatusChange
	// InvoiceURL кэшируется после первой генерации счёта; повторный запрос
	// возвращает кэш, а не рендерит заново.
	InvoiceURL string
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanCancel отвечает, допустима ли отмена ритейлером: из любого состояния,
// кроме delivered, completed и уже конечных.
func (o *WholesalerOrder) CanCancel() bool {
	if o.Status == WholesaleStatusDelivered || o.Status.IsTerminal() {
		return false
	}
	return true
}

// IsPaymentOverdue — производный флаг: срок прошёл, а оплата не завершена.
// Нигде не хранится, вычисляется на чтении.
func (o *WholesalerOrder) IsPaymentOverdue(now time.Time) bool {
	return now.After(o.PaymentDueDate) && o.PaymentStatus != WholesalePaymentStatusCompleted
}

// AppendHistory добавляет запись в append-only историю статусов.
func (o *WholesalerOrder) AppendHistory(status WholesaleStatus, note string, at time.Time) {
	o.History = append(o.History, StatusChange{
		Status:     string(status),
		Note:       note,
		OccurredAt: at,
	})
}

// ValidateInvariants проверяет инварианты оптового заказа.
func (o *WholesalerOrder) ValidateInvariants() []error {
	var errs []error

	if o.RetailerID == "" {
		errs = append(errs, ErrRetailerRequired)
	}
	if o.WholesalerID == "" {
		errs = append(errs, ErrWholesalerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.SubtotalMinor != int64(item.Qty)*item.UnitPriceMinor {
			errs = append(errs, ErrAmountMismatch)
		}
		calc += item.SubtotalMinor
	}
	if len(o.Items) > 0 && calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
