package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/wholesale"
)

// WholesaleHandler обслуживает B2B-заказы ритейлеров у оптовиков.
type WholesaleHandler struct {
	wholesale   *wholesale.Service
	idempotency *Idempotency
}

// NewWholesaleHandler создаёт handler; idempotency может быть nil.
func NewWholesaleHandler(s *wholesale.Service, idem *Idempotency) *WholesaleHandler {
	return &WholesaleHandler{wholesale: s, idempotency: idem}
}

// Register вешает маршруты на роутер.
func (h *WholesaleHandler) Register(r chi.Router) {
	create := http.Handler(http.HandlerFunc(h.handleCreate))
	if h.idempotency != nil {
		create = h.idempotency.Wrap(create)
	}
	r.Method(http.MethodPost, "/wholesale-orders", create)

	r.Get("/wholesale-orders", h.handleList)
	r.Get("/wholesale-orders/{orderID}", h.handleGet)
	r.Post("/wholesale-orders/{orderID}/confirm", h.handleConfirm)
	r.Post("/wholesale-orders/{orderID}/reject", h.handleReject)
	r.Post("/wholesale-orders/{orderID}/cancel", h.handleCancel)
	r.Patch("/wholesale-orders/{orderID}/status", h.handleStatus)
	r.Post("/wholesale-orders/{orderID}/payment", h.handlePayment)
	r.Get("/wholesale-orders/{orderID}/invoice", h.handleInvoice)
}

type wholesaleCreateRequest struct {
	RetailerID   string `json:"retailer_id"`
	WholesalerID string `json:"wholesaler_id"`
	Items        []struct {
		ProductID string `json:"product_id"`
		Qty       int32  `json:"qty"`
	} `json:"items"`
}

func (h *WholesaleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body wholesaleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req := wholesale.CreateRequest{
		RetailerID:   body.RetailerID,
		WholesalerID: body.WholesalerID,
	}
	for _, item := range body.Items {
		req.Items = append(req.Items, wholesale.CreateItem{ProductID: item.ProductID, Qty: item.Qty})
	}

	created, err := h.wholesale.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWholesaleResponse(created, time.Now().UTC()))
}

func (h *WholesaleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.wholesale.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(found, time.Now().UTC()))
}

// handleList отдаёт заказы либо ритейлера, либо оптовика, по query-параметру.
func (h *WholesaleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")

	var (
		list []domain.WholesalerOrder
		err  error
	)
	if wholesalerID := r.URL.Query().Get("wholesaler_id"); wholesalerID != "" {
		list, err = h.wholesale.ListByWholesaler(wholesalerID, limit)
	} else {
		list, err = h.wholesale.ListByRetailer(r.URL.Query().Get("retailer_id"), limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	out := make([]wholesaleOrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toWholesaleResponse(o, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"wholesale_orders": out})
}

func (h *WholesaleHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	updated, err := h.wholesale.Confirm(chi.URLParam(r, "orderID"), r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(updated, time.Now().UTC()))
}

func (h *WholesaleHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	updated, err := h.wholesale.Reject(chi.URLParam(r, "orderID"), r.Header.Get(actorHeader), body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(updated, time.Now().UTC()))
}

func (h *WholesaleHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	updated, err := h.wholesale.Cancel(chi.URLParam(r, "orderID"), r.Header.Get(actorHeader), body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(updated, time.Now().UTC()))
}

func (h *WholesaleHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.wholesale.UpdateStatus(
		r.Context(),
		chi.URLParam(r, "orderID"),
		r.Header.Get(actorHeader),
		domain.WholesaleStatus(body.Status),
		body.Note,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(updated, time.Now().UTC()))
}

// handlePayment обслуживает обе стороны платёжной машины: ритейлер сообщает
// об отправке оплаты, оптовик подтверждает получение.
func (h *WholesaleHandler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID := chi.URLParam(r, "orderID")
	actorID := r.Header.Get(actorHeader)

	var (
		updated domain.WholesalerOrder
		err     error
	)
	switch body.Action {
	case "sent":
		updated, err = h.wholesale.NotifyPaymentSent(orderID, actorID)
	case "received":
		updated, err = h.wholesale.MarkAsPaid(orderID, actorID)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be \"sent\" or \"received\""})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWholesaleResponse(updated, time.Now().UTC()))
}

func (h *WholesaleHandler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	url, err := h.wholesale.Invoice(r.Context(), chi.URLParam(r, "orderID"), r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invoice_url": url})
}
