package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// CartLine — позиция корзины с зафиксированными ценами каталога.
type CartLine struct {
	ProductID  string
	RetailerID string
	Qty        int32
	// ListPriceMinor и DiscountMinor — снимок цен каталога на момент checkout.
	ListPriceMinor int64
	DiscountMinor  int64
}

// Split раскладывает корзину по ритейлерам и распределяет скидку уровня
// корзины пропорционально subtotal'ам групп. Распределение целочисленное:
// доля каждой группы, кроме последней, округляется к ближайшему, последняя
// группа впитывает остаток, так что сумма долей в точности равна скидке.
func Split(lines []CartLine, discount domain.DiscountSnapshot, now time.Time) ([]domain.SubOrder, error) {
	if len(lines) == 0 {
		return nil, domain.ErrItemsRequired
	}
	if discount.AmountMinor < 0 {
		return nil, domain.ErrDiscountNegative
	}

	// Группируем в порядке первого появления ритейлера в корзине.
	groups := make(map[string][]domain.OrderItem)
	order := make([]string, 0)
	for _, line := range lines {
		if line.RetailerID == "" {
			return nil, domain.ErrRetailerRequired
		}
		if line.ProductID == "" {
			return nil, domain.ErrProductRequired
		}
		if line.Qty <= 0 {
			return nil, domain.ErrItemQtyInvalid
		}
		if line.ListPriceMinor < 0 || line.DiscountMinor < 0 || line.DiscountMinor > line.ListPriceMinor {
			return nil, domain.ErrItemPriceInvalid
		}
		if _, seen := groups[line.RetailerID]; !seen {
			order = append(order, line.RetailerID)
		}
		groups[line.RetailerID] = append(groups[line.RetailerID], domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			ListPriceMinor: line.ListPriceMinor,
			DiscountMinor:  line.DiscountMinor,
			CreatedAt:      now,
		})
	}

	subOrders := make([]domain.SubOrder, 0, len(order))
	var grandSubtotal int64
	for _, retailerID := range order {
		items := groups[retailerID]
		var before, savings int64
		for _, item := range items {
			before += int64(item.Qty) * item.ListPriceMinor
			savings += int64(item.Qty) * item.DiscountMinor
		}
		after := before - savings
		grandSubtotal += after

		subOrders = append(subOrders, domain.SubOrder{
			RetailerID: retailerID,
			Items:      items,
			Pricing: domain.PricingBreakdown{
				SubtotalBeforeProductDiscountsMinor: before,
				ProductDiscountSavingsMinor:         savings,
				SubtotalAfterProductDiscountsMinor:  after,
			},
			Status:        domain.SubOrderStatusPending,
			PaymentStatus: domain.OrderPaymentStatusPending,
			History: []domain.StatusChange{
				{Status: string(domain.SubOrderStatusPending), OccurredAt: now},
			},
		})
	}

	if grandSubtotal == 0 {
		return nil, domain.ErrZeroGrandSubtotal
	}
	if discount.AmountMinor > grandSubtotal {
		return nil, domain.ErrDiscountExceedsSubtotal
	}

	allocateDiscount(subOrders, discount.AmountMinor, grandSubtotal)
	return subOrders, nil
}

// allocateDiscount распределяет amount между группами пропорционально их
// subtotal'ам. Последняя группа получает остаток: сумма долей всегда равна
// amount, и округление никогда не теряет и не создаёт копейки.
func allocateDiscount(subOrders []domain.SubOrder, amount, grandSubtotal int64) {
	var allocated int64
	last := len(subOrders) - 1
	for i := range subOrders {
		pricing := &subOrders[i].Pricing
		var share int64
		if i == last {
			share = amount - allocated
		} else if grandSubtotal > 0 {
			share = (amount*pricing.SubtotalAfterProductDiscountsMinor + grandSubtotal/2) / grandSubtotal
		}
		allocated += share
		pricing.TierCodeDiscountShareMinor = share
		pricing.TotalAmountMinor = pricing.SubtotalAfterProductDiscountsMinor - share
	}
}
