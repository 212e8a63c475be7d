package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func checkoutBody() map[string]any {
	return map[string]any{
		"customer_id":      "customer-1",
		"delivery_address": "Tverskaya 1, Moscow",
		"items": []map[string]any{
			{"product_id": "sku-1", "retailer_id": "retailer-a", "qty": 3},
			{"product_id": "sku-2", "retailer_id": "retailer-b", "qty": 4},
		},
		"discount": map[string]any{"type": "tier", "amount_minor": 100},
	}
}

func TestCheckout_CreatesMultiVendorOrder(t *testing.T) {
	f := newAPIFixture(t)

	var created orderResponse
	resp := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// 3*200 + 4*100 = 1000, минус скидка корзины 100.
	require.Equal(t, int64(900), created.AmountMinor)
	require.Len(t, created.SubOrders, 2)
	require.Equal(t, "pending", created.MasterStatus)

	// Сток обоих ритейлеров зарезервирован.
	inv, err := f.inventory.Get("sku-1", "retailer-a")
	require.NoError(t, err)
	require.Equal(t, int32(3), inv.ReservedStock)
	inv, err = f.inventory.Get("sku-2", "retailer-b")
	require.NoError(t, err)
	require.Equal(t, int32(4), inv.ReservedStock)
}

func TestCheckout_InsufficientStockConflict(t *testing.T) {
	f := newAPIFixture(t)

	body := checkoutBody()
	body["items"] = []map[string]any{
		{"product_id": "sku-1", "retailer_id": "retailer-a", "qty": 50},
	}
	var errBody map[string]string
	resp := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil, &errBody)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, errBody["error"], "insufficient stock")
}

func TestCheckout_ValidationBadRequest(t *testing.T) {
	f := newAPIFixture(t)

	body := checkoutBody()
	body["customer_id"] = ""
	resp := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/orders/ghost", nil, nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOrders_ByCustomer(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var list struct {
		Orders []orderResponse `json:"orders"`
	}
	resp = f.do(t, http.MethodGet, "/api/v1/orders?customer_id=customer-1", nil, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list.Orders, 1)

	// Без customer_id — ошибка валидации.
	resp = f.do(t, http.MethodGet, "/api/v1/orders", nil, nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubOrderStatus_ActorGuard(t *testing.T) {
	f := newAPIFixture(t)

	var created orderResponse
	f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil, &created)

	path := "/api/v1/orders/" + created.ID + "/suborders/retailer-a/status"
	body := map[string]string{"status": "confirmed"}

	// Чужой актор не может двигать sub-заказ.
	resp := f.do(t, http.MethodPatch, path, body, map[string]string{actorHeader: "retailer-b"}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var updated orderResponse
	resp = f.do(t, http.MethodPatch, path, body, map[string]string{actorHeader: "retailer-a"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, sub := range updated.SubOrders {
		if sub.RetailerID == "retailer-a" {
			require.Equal(t, "confirmed", sub.Status)
		}
	}

	// Пропуск шага — конфликт.
	resp = f.do(t, http.MethodPatch, path, map[string]string{"status": "shipped"},
		map[string]string{actorHeader: "retailer-a"}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSubOrderCancel_ByCustomerReleasesStock(t *testing.T) {
	f := newAPIFixture(t)

	var created orderResponse
	f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil, &created)

	var updated orderResponse
	resp := f.do(t, http.MethodPost,
		"/api/v1/orders/"+created.ID+"/suborders/retailer-a/cancel",
		map[string]string{"note": "changed my mind"},
		map[string]string{actorHeader: "customer-1"},
		&updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inv, err := f.inventory.Get("sku-1", "retailer-a")
	require.NoError(t, err)
	require.Equal(t, int32(0), inv.ReservedStock)
}

func TestSubOrderPayment_DoubleConflict(t *testing.T) {
	f := newAPIFixture(t)

	var created orderResponse
	f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil, &created)

	path := "/api/v1/orders/" + created.ID + "/suborders/retailer-a/payment"
	resp := f.do(t, http.MethodPost, path, nil, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, path, nil, nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
