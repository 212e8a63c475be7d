package httpx

import (
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// DTO-слой существует, чтобы доменные структуры не обрастали json-тегами
// и формат API можно было менять независимо от ядра.

type statusChangeResponse struct {
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type orderItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	ListPriceMinor int64  `json:"list_price_minor"`
	DiscountMinor  int64  `json:"discount_minor"`
}

type pricingResponse struct {
	SubtotalBeforeProductDiscountsMinor int64 `json:"subtotal_before_product_discounts_minor"`
	ProductDiscountSavingsMinor         int64 `json:"product_discount_savings_minor"`
	SubtotalAfterProductDiscountsMinor  int64 `json:"subtotal_after_product_discounts_minor"`
	TierCodeDiscountShareMinor          int64 `json:"tier_code_discount_share_minor"`
	TotalAmountMinor                    int64 `json:"total_amount_minor"`
}

type subOrderResponse struct {
	RetailerID    string                 `json:"retailer_id"`
	Status        string                 `json:"status"`
	PaymentStatus string                 `json:"payment_status"`
	Items         []orderItemResponse    `json:"items"`
	Pricing       pricingResponse        `json:"pricing"`
	History       []statusChangeResponse `json:"history,omitempty"`
}

type orderResponse struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	CustomerID      string             `json:"customer_id"`
	MasterStatus    string             `json:"master_status"`
	SubOrders       []subOrderResponse `json:"sub_orders"`
	AmountMinor     int64              `json:"amount_minor"`
	DeliveryAddress string             `json:"delivery_address"`
	DiscountType    string             `json:"discount_type"`
	DiscountCode    string             `json:"discount_code,omitempty"`
	DiscountMinor   int64              `json:"discount_minor"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	subs := make([]subOrderResponse, 0, len(order.SubOrders))
	for i := range order.SubOrders {
		subs = append(subs, toSubOrderResponse(&order.SubOrders[i]))
	}
	return orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		MasterStatus:    string(order.MasterStatus()),
		SubOrders:       subs,
		AmountMinor:     order.AmountMinor,
		DeliveryAddress: order.DeliveryAddress,
		DiscountType:    string(order.Discount.Type),
		DiscountCode:    order.Discount.Code,
		DiscountMinor:   order.Discount.AmountMinor,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func toSubOrderResponse(sub *domain.SubOrder) subOrderResponse {
	items := make([]orderItemResponse, 0, len(sub.Items))
	for _, item := range sub.Items {
		items = append(items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			ListPriceMinor: item.ListPriceMinor,
			DiscountMinor:  item.DiscountMinor,
		})
	}
	return subOrderResponse{
		RetailerID:    sub.RetailerID,
		Status:        string(sub.Status),
		PaymentStatus: string(sub.PaymentStatus),
		Items:         items,
		Pricing: pricingResponse{
			SubtotalBeforeProductDiscountsMinor: sub.Pricing.SubtotalBeforeProductDiscountsMinor,
			ProductDiscountSavingsMinor:         sub.Pricing.ProductDiscountSavingsMinor,
			SubtotalAfterProductDiscountsMinor:  sub.Pricing.SubtotalAfterProductDiscountsMinor,
			TierCodeDiscountShareMinor:          sub.Pricing.TierCodeDiscountShareMinor,
			TotalAmountMinor:                    sub.Pricing.TotalAmountMinor,
		},
		History: toHistoryResponse(sub.History),
	}
}

type wholesaleItemResponse struct {
	ID                    string `json:"id"`
	ProductID             string `json:"product_id"`
	Qty                   int32  `json:"qty"`
	UnitPriceMinor        int64  `json:"unit_price_minor"`
	VolumeDiscountPercent int32  `json:"volume_discount_percent"`
	SubtotalMinor         int64  `json:"subtotal_minor"`
}

type wholesaleOrderResponse struct {
	ID               string                  `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	RetailerID       string                  `json:"retailer_id"`
	WholesalerID     string                  `json:"wholesaler_id"`
	Items            []wholesaleItemResponse `json:"items"`
	Status           string                  `json:"status"`
	PaymentStatus    string                  `json:"payment_status"`
	AmountMinor      int64                   `json:"amount_minor"`
	PaymentDueDate   time.Time               `json:"payment_due_date"`
	IsPaymentOverdue bool                    `json:"is_payment_overdue"`
	InvoiceURL       string                  `json:"invoice_url,omitempty"`
	History          []statusChangeResponse  `json:"history,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func toWholesaleResponse(order domain.WholesalerOrder, now time.Time) wholesaleOrderResponse {
	items := make([]wholesaleItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, wholesaleItemResponse{
			ID:                    item.ID,
			ProductID:             item.ProductID,
			Qty:                   item.Qty,
			UnitPriceMinor:        item.UnitPriceMinor,
			VolumeDiscountPercent: item.VolumeDiscountPercent,
			SubtotalMinor:         item.SubtotalMinor,
		})
	}
	return wholesaleOrderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		RetailerID:       order.RetailerID,
		WholesalerID:     order.WholesalerID,
		Items:            items,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		AmountMinor:      order.AmountMinor,
		PaymentDueDate:   order.PaymentDueDate,
		IsPaymentOverdue: order.IsPaymentOverdue(now),
		InvoiceURL:       order.InvoiceURL,
		History:          toHistoryResponse(order.History),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func toHistoryResponse(history []domain.StatusChange) []statusChangeResponse {
	if len(history) == 0 {
		return nil
	}
	out := make([]statusChangeResponse, 0, len(history))
	for _, change := range history {
		out = append(out, statusChangeResponse{
			Status:     change.Status,
			Note:       change.Note,
			OccurredAt: change.OccurredAt,
		})
	}
	return out
}

type inventoryResponse struct {
	ProductID               string `json:"product_id"`
	OwnerID                 string `json:"owner_id"`
	CurrentStock            int32  `json:"current_stock"`
	ReservedStock           int32  `json:"reserved_stock"`
	AvailableStock          int32  `json:"available_stock"`
	SellingPriceMinor       int64  `json:"selling_price_minor"`
	SourceType              string `json:"source_type,omitempty"`
	SourceOrderID           string `json:"source_order_id,omitempty"`
	WholesalerID            string `json:"wholesaler_id,omitempty"`
	WholesalePricePaidMinor int64  `json:"wholesale_price_paid_minor,omitempty"`
}

func toInventoryResponse(inv domain.Inventory) inventoryResponse {
	return inventoryResponse{
		ProductID:               inv.ProductID,
		OwnerID:                 inv.OwnerID,
		CurrentStock:            inv.CurrentStock,
		ReservedStock:           inv.ReservedStock,
		AvailableStock:          inv.AvailableStock(),
		SellingPriceMinor:       inv.SellingPriceMinor,
		SourceType:              string(inv.SourceType),
		SourceOrderID:           inv.SourceOrderID,
		WholesalerID:            inv.WholesalerID,
		WholesalePricePaidMinor: inv.WholesalePricePaidMinor,
	}
}
