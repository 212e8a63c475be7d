package domain

import "time"

// DiscountType описывает источник скидки уровня корзины: выбирается большая
// из скидки лояльности и промокода, обе сразу не применяются.
type DiscountType string

const (
	DiscountTypeNone DiscountType = "none"
	DiscountTypeTier DiscountType = "tier"
	DiscountTypeCode DiscountType = "code"
)

// SubOrderStatus описывает жизненный цикл sub-заказа одного ритейлера.
type SubOrderStatus string

const (
	// SubOrderStatusPending — sub-заказ создан, ритейлер его ещё не подтвердил.
	SubOrderStatusPending SubOrderStatus = "pending"
	// SubOrderStatusConfirmed — ритейлер подтвердил sub-заказ.
	SubOrderStatusConfirmed SubOrderStatus = "confirmed"
	// SubOrderStatusProcessing — заказ собирается.
	SubOrderStatusProcessing SubOrderStatus = "processing"
	// SubOrderStatusShipped — заказ передан в доставку.
	SubOrderStatusShipped SubOrderStatus = "shipped"
	// SubOrderStatusOutForDelivery — курьер везёт заказ клиенту.
	SubOrderStatusOutForDelivery SubOrderStatus = "out_for_delivery"
	// SubOrderStatusDelivered — заказ доставлен.
	SubOrderStatusDelivered SubOrderStatus = "delivered"
	// SubOrderStatusCancelled — sub-заказ отменён до доставки.
	SubOrderStatusCancelled SubOrderStatus = "cancelled"
	// SubOrderStatusReturned — клиент вернул доставленный заказ.
	SubOrderStatusReturned SubOrderStatus = "returned"
)

// OrderPaymentStatus описывает состояние оплаты sub-заказа.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending   OrderPaymentStatus = "pending"
	OrderPaymentStatusCompleted OrderPaymentStatus = "completed"
	OrderPaymentStatusRefunded  OrderPaymentStatus = "refunded"
	OrderPaymentStatusFailed    OrderPaymentStatus = "failed"
)

// subOrderTransitions перечисляет разрешённые переходы. Движение строго вперёд,
// пропуск шагов ритейлеру недоступен.
var subOrderTransitions = map[SubOrderStatus][]SubOrderStatus{
	SubOrderStatusPending:        {SubOrderStatusConfirmed, SubOrderStatusCancelled},
	SubOrderStatusConfirmed:      {SubOrderStatusProcessing, SubOrderStatusCancelled},
	SubOrderStatusProcessing:     {SubOrderStatusShipped},
	SubOrderStatusShipped:        {SubOrderStatusOutForDelivery},
	SubOrderStatusOutForDelivery: {SubOrderStatusDelivered},
	SubOrderStatusDelivered:      {SubOrderStatusReturned},
	SubOrderStatusCancelled:      nil,
	SubOrderStatusReturned:       nil,
}

// Valid проверяет, что статус относится к закрытому набору значений.
func (s SubOrderStatus) Valid() bool {
	_, ok := subOrderTransitions[s]
	return ok
}

// CanTransitionTo отвечает, разрешён ли переход в статус next.
func (s SubOrderStatus) CanTransitionTo(next SubOrderStatus) bool {
	for _, allowed := range subOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal отвечает, является ли статус конечным для sub-заказа.
func (s SubOrderStatus) IsTerminal() bool {
	return s == SubOrderStatusDelivered || s == SubOrderStatusCancelled || s == SubOrderStatusReturned
}

// StatusChange — запись в append-only истории статусов.
type StatusChange struct {
	Status     string
	Note       string
	OccurredAt time.Time
}

// OrderItem представляет одну позицию корзины, уже привязанную к ритейлеру.
type OrderItem struct {
	ID        string
	ProductID string
	Qty       int32
	// ListPriceMinor — каталожная цена за единицу в минимальных денежных единицах.
	ListPriceMinor int64
	// DiscountMinor — каталожная скидка за единицу, применённая до уровня корзины.
	DiscountMinor int64
	CreatedAt     time.Time
}

// LineSubtotalMinor возвращает стоимость позиции после каталожной скидки.
func (i OrderItem) LineSubtotalMinor() int64 {
	return int64(i.Qty) * (i.ListPriceMinor - i.DiscountMinor)
}

// PricingBreakdown фиксирует разбивку цены sub-заказа на момент checkout.
type PricingBreakdown struct {
	SubtotalBeforeProductDiscountsMinor int64
	ProductDiscountSavingsMinor         int64
	SubtotalAfterProductDiscountsMinor  int64
	// TierCodeDiscountShareMinor — доля скидки корзины, выделенная этому sub-заказу.
	TierCodeDiscountShareMinor int64
	TotalAmountMinor           int64
}

// SubOrder — часть заказа, исполняемая одним ритейлером. Живёт внутри
// агрегата Order и сохраняется с ним в одной транзакции.
type SubOrder struct {
	RetailerID    string
	Items         []OrderItem
	Pricing       PricingBreakdown
	Status        SubOrderStatus
	PaymentStatus OrderPaymentStatus
	History       []StatusChange
}

// CanCancel отвечает, допустима ли отмена sub-заказа: только до начала сборки
// и только пока оплата не завершена и не возвращена.
func (s *SubOrder) CanCancel() bool {
	if s.Status != SubOrderStatusPending && s.Status != SubOrderStatusConfirmed {
		return false
	}
	if s.PaymentStatus == OrderPaymentStatusCompleted || s.PaymentStatus == OrderPaymentStatusRefunded {
		return false
	}
	return true
}

// DiscountSnapshot — зафиксированная на checkout скидка уровня корзины.
type DiscountSnapshot struct {
	Type        DiscountType
	Code        string
	AmountMinor int64
}

// Order агрегирует мультивендорный заказ клиента и его sub-заказы.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	SubOrders       []SubOrder
	AmountMinor     int64
	DeliveryAddress string
	Discount        DiscountSnapshot
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MasterStatus выводит агрегатный статус заказа из статусов sub-заказов.
// Статус не хранится: он пересчитывается по списку приоритетов сверху вниз.
// Единственный отменённый sub-заказ помечает весь заказ как cancelled, даже
// если остальные доставлены — намеренно пессимистичная свёртка.
func (o *Order) MasterStatus() SubOrderStatus {
	if len(o.SubOrders) == 0 {
		return SubOrderStatusPending
	}

	allDelivered := true
	allShippedOrDelivered := true
	anyCancelled := false
	anyConfirmed := false

	for i := range o.SubOrders {
		switch o.SubOrders[i].Status {
		case SubOrderStatusDelivered:
		case SubOrderStatusShipped:
			allDelivered = false
		case SubOrderStatusCancelled:
			anyCancelled = true
			allDelivered = false
			allShippedOrDelivered = false
		case SubOrderStatusConfirmed:
			anyConfirmed = true
			allDelivered = false
			allShippedOrDelivered = false
		default:
			allDelivered = false
			allShippedOrDelivered = false
		}
	}

	switch {
	case allDelivered:
		return SubOrderStatusDelivered
	case anyCancelled:
		return SubOrderStatusCancelled
	case allShippedOrDelivered:
		return SubOrderStatusShipped
	case anyConfirmed:
		return SubOrderStatusConfirmed
	default:
		return SubOrderStatusPending
	}
}

// SubOrderFor возвращает sub-заказ указанного ритейлера.
func (o *Order) SubOrderFor(retailerID string) (*SubOrder, error) {
	for i := range o.SubOrders {
		if o.SubOrders[i].RetailerID == retailerID {
			return &o.SubOrders[i], nil
		}
	}
	return nil, ErrSubOrderNotFound
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.DeliveryAddress == "" {
		errs = append(errs, ErrDeliveryAddressRequired)
	}
	if len(o.SubOrders) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.Discount.AmountMinor < 0 {
		errs = append(errs, ErrDiscountNegative)
	}

	// Сверяем сумму заказа с суммами sub-заказов: после распределения скидки
	// они обязаны сходиться копейка в копейку.
	var total int64
	for i := range o.SubOrders {
		sub := &o.SubOrders[i]
		if sub.RetailerID == "" {
			errs = append(errs, ErrRetailerRequired)
		}
		if len(sub.Items) == 0 {
			errs = append(errs, ErrItemsRequired)
		}
		for _, item := range sub.Items {
			if item.Qty <= 0 {
				errs = append(errs, ErrItemQtyInvalid)
			}
			if item.ListPriceMinor < 0 || item.DiscountMinor < 0 || item.DiscountMinor > item.ListPriceMinor {
				errs = append(errs, ErrItemPriceInvalid)
			}
		}
		total += sub.Pricing.TotalAmountMinor
	}
	if len(o.SubOrders) > 0 && total != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
