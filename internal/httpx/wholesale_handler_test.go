package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func wholesaleCreateBody() map[string]any {
	return map[string]any{
		"retailer_id":   "retailer-a",
		"wholesaler_id": "wholesaler-1",
		"items": []map[string]any{
			{"product_id": "sku-b2b", "qty": 20},
		},
	}
}

func createWholesaleOrder(t *testing.T, f *apiFixture) wholesaleOrderResponse {
	t.Helper()
	var created wholesaleOrderResponse
	resp := f.do(t, http.MethodPost, "/api/v1/wholesale-orders", wholesaleCreateBody(), nil, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created
}

func TestWholesaleCreate_AppliesVolumeDiscount(t *testing.T) {
	f := newAPIFixture(t)

	created := createWholesaleOrder(t, f)
	// 20 единиц по 50 со скидкой 10% → unit 45, итог 900.
	require.Equal(t, "pending", created.Status)
	require.Equal(t, int64(900), created.AmountMinor)
	require.Equal(t, int64(45), created.Items[0].UnitPriceMinor)
	require.False(t, created.IsPaymentOverdue)

	inv, err := f.inventory.Get("sku-b2b", "wholesaler-1")
	require.NoError(t, err)
	require.Equal(t, int32(20), inv.ReservedStock)
}

func TestWholesaleCreate_MinimumOrderUnprocessable(t *testing.T) {
	f := newAPIFixture(t)

	body := wholesaleCreateBody()
	body["items"] = []map[string]any{{"product_id": "sku-b2b", "qty": 2}}
	resp := f.do(t, http.MethodPost, "/api/v1/wholesale-orders", body, nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestWholesaleLifecycle_DeliveryTransfersStock(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	base := "/api/v1/wholesale-orders/" + created.ID
	asWholesaler := map[string]string{actorHeader: "wholesaler-1"}

	resp := f.do(t, http.MethodPost, base+"/confirm", nil, asWholesaler, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, status := range []string{"processing", "shipped", "delivered"} {
		resp = f.do(t, http.MethodPatch, base+"/status", map[string]string{"status": status}, asWholesaler, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var final wholesaleOrderResponse
	resp = f.do(t, http.MethodGet, base, nil, nil, &final)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "completed", final.Status)

	// Сток перенесён от оптовика ритейлеру с provenance-полями.
	wh, err := f.inventory.Get("sku-b2b", "wholesaler-1")
	require.NoError(t, err)
	require.Equal(t, int32(80), wh.CurrentStock)
	require.Equal(t, int32(0), wh.ReservedStock)

	rt, err := f.inventory.Get("sku-b2b", "retailer-a")
	require.NoError(t, err)
	require.Equal(t, int32(20), rt.CurrentStock)
	require.Equal(t, "b2b_order", string(rt.SourceType))
	require.Equal(t, created.ID, rt.SourceOrderID)
}

func TestWholesaleConfirm_StrangerForbidden(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	resp := f.do(t, http.MethodPost, "/api/v1/wholesale-orders/"+created.ID+"/confirm",
		nil, map[string]string{actorHeader: "wholesaler-999"}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWholesaleReject_ReleasesReservation(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	resp := f.do(t, http.MethodPost, "/api/v1/wholesale-orders/"+created.ID+"/reject",
		map[string]string{"note": "out of season"}, map[string]string{actorHeader: "wholesaler-1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inv, err := f.inventory.Get("sku-b2b", "wholesaler-1")
	require.NoError(t, err)
	require.Equal(t, int32(0), inv.ReservedStock)
}

func TestWholesaleCancel_ByRetailer(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	var cancelled wholesaleOrderResponse
	resp := f.do(t, http.MethodPost, "/api/v1/wholesale-orders/"+created.ID+"/cancel",
		nil, map[string]string{actorHeader: "retailer-a"}, &cancelled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cancelled", cancelled.Status)
}

func TestWholesalePayment_SentThenReceived(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	path := "/api/v1/wholesale-orders/" + created.ID + "/payment"

	var afterSent wholesaleOrderResponse
	resp := f.do(t, http.MethodPost, path, map[string]string{"action": "sent"},
		map[string]string{actorHeader: "retailer-a"}, &afterSent)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "processing", afterSent.PaymentStatus)

	var afterPaid wholesaleOrderResponse
	resp = f.do(t, http.MethodPost, path, map[string]string{"action": "received"},
		map[string]string{actorHeader: "wholesaler-1"}, &afterPaid)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "completed", afterPaid.PaymentStatus)

	// Неизвестное действие отклоняется до вызова сервиса.
	resp = f.do(t, http.MethodPost, path, map[string]string{"action": "refund"}, nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWholesaleInvoice_OnlyParticipants(t *testing.T) {
	f := newAPIFixture(t)
	created := createWholesaleOrder(t, f)

	base := "/api/v1/wholesale-orders/" + created.ID
	asWholesaler := map[string]string{actorHeader: "wholesaler-1"}
	f.do(t, http.MethodPost, base+"/confirm", nil, asWholesaler, nil)
	for _, status := range []string{"processing", "shipped", "delivered"} {
		f.do(t, http.MethodPatch, base+"/status", map[string]string{"status": status}, asWholesaler, nil)
	}

	var invoiceBody map[string]string
	resp := f.do(t, http.MethodGet, base+"/invoice", nil, map[string]string{actorHeader: "retailer-a"}, &invoiceBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://invoices.test/wo.pdf", invoiceBody["invoice_url"])

	resp = f.do(t, http.MethodGet, base+"/invoice", nil, map[string]string{actorHeader: "stranger"}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWholesaleList_BySide(t *testing.T) {
	f := newAPIFixture(t)
	createWholesaleOrder(t, f)

	var byRetailer struct {
		WholesaleOrders []wholesaleOrderResponse `json:"wholesale_orders"`
	}
	resp := f.do(t, http.MethodGet, "/api/v1/wholesale-orders?retailer_id=retailer-a", nil, nil, &byRetailer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, byRetailer.WholesaleOrders, 1)

	var byWholesaler struct {
		WholesaleOrders []wholesaleOrderResponse `json:"wholesale_orders"`
	}
	resp = f.do(t, http.MethodGet, "/api/v1/wholesale-orders?wholesaler_id=wholesaler-1", nil, nil, &byWholesaler)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, byWholesaler.WholesaleOrders, 1)

	// Ни одной стороны в запросе — ошибка валидации.
	resp = f.do(t, http.MethodGet, "/api/v1/wholesale-orders", nil, nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
