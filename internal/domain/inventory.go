package domain

import "time"

// StockSourceType описывает происхождение строки остатков.
type StockSourceType string

const (
	// StockSourceManual — строка заведена владельцем вручную.
	StockSourceManual StockSourceType = "manual"
	// StockSourceB2BOrder — строка создана переносом стока из оптового заказа.
	StockSourceB2BOrder StockSourceType = "b2b_order"
)

// Inventory — одна строка остатков на пару (товар, владелец). Строка — общий
// изменяемый ресурс обоих потоков заказов; ей никто не владеет.
type Inventory struct {
	ID        string
	ProductID string
	// OwnerID — ритейлер или оптовик, которому принадлежит сток.
	OwnerID string
	// CurrentStock — физический остаток.
	CurrentStock int32
	// ReservedStock — часть остатка, условно обещанная незавершённым заказам.
	ReservedStock     int32
	SellingPriceMinor int64

	// Поля происхождения заполняются только при создании строки B2B-переносом.
	SourceType              StockSourceType
	SourceOrderID           string
	WholesalerID            string
	WholesalePricePaidMinor int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailableStock возвращает остаток, доступный для новых резервов.
func (i *Inventory) AvailableStock() int32 {
	return i.CurrentStock - i.ReservedStock
}

// CheckInvariant проверяет 0 <= reserved <= current. Инвариант обязан
// выполняться после каждой мутации; нарушившая его операция падает с ошибкой,
// а не корректируется задним числом.
func (i *Inventory) CheckInvariant() error {
	if i.ReservedStock < 0 || i.ReservedStock > i.CurrentStock {
		return ErrStockInvariant
	}
	return nil
}

// Validate проверяет обязательные поля строки остатков.
func (i *Inventory) Validate() []error {
	var errs []error
	if i.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if i.OwnerID == "" {
		errs = append(errs, ErrOwnerRequired)
	}
	if i.SellingPriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if err := i.CheckInvariant(); err != nil {
		errs = append(errs, err)
	}
	return errs
}
