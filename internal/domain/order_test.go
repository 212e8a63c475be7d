package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// helper для заказа с двумя sub-заказами разных ритейлеров.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:              "order-1",
		OrderNumber:     "ORD-1001",
		CustomerID:      "customer-1",
		DeliveryAddress: "Some street 1",
		AmountMinor:     900,
		Discount: domain.DiscountSnapshot{
			Type:        domain.DiscountTypeCode,
			Code:        "WELCOME",
			AmountMinor: 100,
		},
		SubOrders: []domain.SubOrder{
			{
				RetailerID: "retailer-1",
				Status:     domain.SubOrderStatusPending,
				PaymentStatus: domain.OrderPaymentStatusPending,
				Items: []domain.OrderItem{
					{ID: "item-1", ProductID: "sku-1", Qty: 2, ListPriceMinor: 300, CreatedAt: now},
				},
				Pricing: domain.PricingBreakdown{
					SubtotalBeforeProductDiscountsMinor: 600,
					SubtotalAfterProductDiscountsMinor:  600,
					TierCodeDiscountShareMinor:          60,
					TotalAmountMinor:                    540,
				},
			},
			{
				RetailerID: "retailer-2",
				Status:     domain.SubOrderStatusPending,
				PaymentStatus: domain.OrderPaymentStatusPending,
				Items: []domain.OrderItem{
					{ID: "item-2", ProductID: "sku-2", Qty: 4, ListPriceMinor: 100, CreatedAt: now},
				},
				Pricing: domain.PricingBreakdown{
					SubtotalBeforeProductDiscountsMinor: 400,
					SubtotalAfterProductDiscountsMinor:  400,
					TierCodeDiscountShareMinor:          40,
					TotalAmountMinor:                    360,
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer",
			mut:  func(o *domain.Order) { o.CustomerID = "" },
		},
		{
			name: "no delivery address",
			mut:  func(o *domain.Order) { o.DeliveryAddress = "" },
		},
		{
			name: "no sub-orders",
			mut:  func(o *domain.Order) { o.SubOrders = nil },
		},
		{
			name: "sub-order totals do not add up",
			mut:  func(o *domain.Order) { o.AmountMinor = 901 },
		},
		{
			name: "qty invalid",
			mut:  func(o *domain.Order) { o.SubOrders[0].Items[0].Qty = 0 },
		},
		{
			name: "catalog discount above list price",
			mut:  func(o *domain.Order) { o.SubOrders[0].Items[0].DiscountMinor = 1000 },
		},
		{
			name: "negative cart discount",
			mut:  func(o *domain.Order) { o.Discount.AmountMinor = -1 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)
			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestSubOrderStatus_Transitions(t *testing.T) {
	cases := []struct {
		from domain.SubOrderStatus
		to   domain.SubOrderStatus
		want bool
	}{
		{domain.SubOrderStatusPending, domain.SubOrderStatusConfirmed, true},
		{domain.SubOrderStatusPending, domain.SubOrderStatusCancelled, true},
		{domain.SubOrderStatusPending, domain.SubOrderStatusShipped, false},
		{domain.SubOrderStatusConfirmed, domain.SubOrderStatusProcessing, true},
		{domain.SubOrderStatusConfirmed, domain.SubOrderStatusCancelled, true},
		{domain.SubOrderStatusProcessing, domain.SubOrderStatusShipped, true},
		{domain.SubOrderStatusProcessing, domain.SubOrderStatusCancelled, false},
		{domain.SubOrderStatusShipped, domain.SubOrderStatusOutForDelivery, true},
		{domain.SubOrderStatusShipped, domain.SubOrderStatusPending, false},
		{domain.SubOrderStatusOutForDelivery, domain.SubOrderStatusDelivered, true},
		{domain.SubOrderStatusDelivered, domain.SubOrderStatusReturned, true},
		{domain.SubOrderStatusCancelled, domain.SubOrderStatusConfirmed, false},
		{domain.SubOrderStatusReturned, domain.SubOrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrder_MasterStatus(t *testing.T) {
	set := func(statuses ...domain.SubOrderStatus) domain.Order {
		order := domain.Order{}
		for _, s := range statuses {
			order.SubOrders = append(order.SubOrders, domain.SubOrder{Status: s})
		}
		return order
	}

	cases := []struct {
		name     string
		statuses []domain.SubOrderStatus
		want     domain.SubOrderStatus
	}{
		{
			name:     "all delivered",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusDelivered, domain.SubOrderStatusDelivered},
			want:     domain.SubOrderStatusDelivered,
		},
		{
			name:     "single cancelled leg marks the whole order",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusDelivered, domain.SubOrderStatusCancelled},
			want:     domain.SubOrderStatusCancelled,
		},
		{
			name:     "mixed shipped and delivered",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusShipped, domain.SubOrderStatusDelivered},
			want:     domain.SubOrderStatusShipped,
		},
		{
			name:     "any confirmed wins over pending",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusConfirmed, domain.SubOrderStatusPending},
			want:     domain.SubOrderStatusConfirmed,
		},
		{
			name:     "all pending",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusPending, domain.SubOrderStatusPending},
			want:     domain.SubOrderStatusPending,
		},
		{
			name:     "processing falls back to pending",
			statuses: []domain.SubOrderStatus{domain.SubOrderStatusProcessing, domain.SubOrderStatusShipped},
			want:     domain.SubOrderStatusPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := set(tc.statuses...)
			if got := order.MasterStatus(); got != tc.want {
				t.Fatalf("master status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSubOrder_CanCancel(t *testing.T) {
	cases := []struct {
		name    string
		status  domain.SubOrderStatus
		payment domain.OrderPaymentStatus
		want    bool
	}{
		{"pending unpaid", domain.SubOrderStatusPending, domain.OrderPaymentStatusPending, true},
		{"confirmed unpaid", domain.SubOrderStatusConfirmed, domain.OrderPaymentStatusPending, true},
		{"processing", domain.SubOrderStatusProcessing, domain.OrderPaymentStatusPending, false},
		{"confirmed but paid", domain.SubOrderStatusConfirmed, domain.OrderPaymentStatusCompleted, false},
		{"confirmed but refunded", domain.SubOrderStatusConfirmed, domain.OrderPaymentStatusRefunded, false},
		{"delivered", domain.SubOrderStatusDelivered, domain.OrderPaymentStatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := domain.SubOrder{Status: tc.status, PaymentStatus: tc.payment}
			if got := sub.CanCancel(); got != tc.want {
				t.Fatalf("CanCancel() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrder_SubOrderFor(t *testing.T) {
	order := makeOrder()

	sub, err := order.SubOrderFor("retailer-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.RetailerID != "retailer-2" {
		t.Fatalf("wrong sub-order: %s", sub.RetailerID)
	}

	if _, err := order.SubOrderFor("retailer-404"); err != domain.ErrSubOrderNotFound {
		t.Fatalf("expected ErrSubOrderNotFound, got %v", err)
	}
}
