package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
)

// actorHeader передаёт идентификатор действующего лица: ритейлера для
// переходов статуса, клиента для отмены. Авторизация как таковая вне
// этого сервиса; здесь только проверка принадлежности.
const actorHeader = "X-Actor-ID"

// OrdersHandler обслуживает checkout и клиентские заказы.
type OrdersHandler struct {
	checkout    *checkout.Service
	orders      *order.Service
	idempotency *Idempotency
}

// NewOrdersHandler создаёт handler; idempotency может быть nil.
func NewOrdersHandler(c *checkout.Service, o *order.Service, idem *Idempotency) *OrdersHandler {
	return &OrdersHandler{checkout: c, orders: o, idempotency: idem}
}

// Register вешает маршруты на роутер.
func (h *OrdersHandler) Register(r chi.Router) {
	createOrder := http.Handler(http.HandlerFunc(h.handleCheckout))
	if h.idempotency != nil {
		createOrder = h.idempotency.Wrap(createOrder)
	}
	r.Method(http.MethodPost, "/checkout", createOrder)

	r.Get("/orders", h.handleList)
	r.Get("/orders/{orderID}", h.handleGet)
	r.Patch("/orders/{orderID}/suborders/{retailerID}/status", h.handleSubOrderStatus)
	r.Post("/orders/{orderID}/suborders/{retailerID}/cancel", h.handleSubOrderCancel)
	r.Post("/orders/{orderID}/suborders/{retailerID}/payment", h.handleSubOrderPayment)
}

type checkoutRequest struct {
	CustomerID      string `json:"customer_id"`
	DeliveryAddress string `json:"delivery_address"`
	Items           []struct {
		ProductID  string `json:"product_id"`
		RetailerID string `json:"retailer_id"`
		Qty        int32  `json:"qty"`
	} `json:"items"`
	Discount struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		AmountMinor int64  `json:"amount_minor"`
	} `json:"discount"`
}

func (h *OrdersHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req := checkout.Request{
		CustomerID:      body.CustomerID,
		DeliveryAddress: body.DeliveryAddress,
		Discount: domain.DiscountSnapshot{
			Type:        domain.DiscountType(body.Discount.Type),
			Code:        body.Discount.Code,
			AmountMinor: body.Discount.AmountMinor,
		},
	}
	if req.Discount.Type == "" {
		req.Discount.Type = domain.DiscountTypeNone
	}
	for _, item := range body.Items {
		req.Items = append(req.Items, checkout.RequestItem{
			ProductID:  item.ProductID,
			RetailerID: item.RetailerID,
			Qty:        item.Qty,
		})
	}

	created, err := h.checkout.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *OrdersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.orders.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(found))
}

func (h *OrdersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	limit := queryInt(r, "limit")

	list, err := h.orders.ListByCustomer(customerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *OrdersHandler) handleSubOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.orders.UpdateSubOrderStatus(
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "retailerID"),
		r.Header.Get(actorHeader),
		domain.SubOrderStatus(body.Status),
		body.Note,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

func (h *OrdersHandler) handleSubOrderCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	// Тело опционально.
	_ = json.NewDecoder(r.Body).Decode(&body)

	updated, err := h.orders.CancelSubOrder(
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "retailerID"),
		r.Header.Get(actorHeader),
		body.Note,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

func (h *OrdersHandler) handleSubOrderPayment(w http.ResponseWriter, r *http.Request) {
	updated, err := h.orders.MarkSubOrderPaid(
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "retailerID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}
