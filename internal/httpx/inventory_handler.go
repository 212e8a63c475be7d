package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// InventoryHandler обслуживает строки остатков владельцев.
type InventoryHandler struct {
	repo domain.InventoryRepository
}

// NewInventoryHandler создаёт handler поверх репозитория остатков.
func NewInventoryHandler(repo domain.InventoryRepository) *InventoryHandler {
	return &InventoryHandler{repo: repo}
}

// Register вешает маршруты на роутер.
func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/inventory/{ownerID}", h.handleList)
	r.Get("/inventory/{ownerID}/{productID}", h.handleGet)
	r.Post("/inventory/{ownerID}", h.handleCreate)
	r.Post("/inventory/{ownerID}/{productID}/add-stock", h.handleAddStock)
}

func (h *InventoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListByOwner(chi.URLParam(r, "ownerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]inventoryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toInventoryResponse(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": out})
}

func (h *InventoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	row, err := h.repo.Get(chi.URLParam(r, "productID"), chi.URLParam(r, "ownerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(row))
}

type inventoryCreateRequest struct {
	ProductID         string `json:"product_id"`
	CurrentStock      int32  `json:"current_stock"`
	SellingPriceMinor int64  `json:"selling_price_minor"`
}

func (h *InventoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body inventoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	now := time.Now().UTC()
	row := domain.Inventory{
		ID:                uuid.New().String(),
		ProductID:         body.ProductID,
		OwnerID:           chi.URLParam(r, "ownerID"),
		CurrentStock:      body.CurrentStock,
		SellingPriceMinor: body.SellingPriceMinor,
		SourceType:        domain.StockSourceManual,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if errs := row.Validate(); len(errs) > 0 {
		writeError(w, errs[0])
		return
	}
	if err := h.repo.Create(row); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryResponse(row))
}

func (h *InventoryHandler) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Qty int32 `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Qty <= 0 {
		writeError(w, domain.ErrItemQtyInvalid)
		return
	}

	productID := chi.URLParam(r, "productID")
	ownerID := chi.URLParam(r, "ownerID")
	if err := h.repo.AddStock(productID, ownerID, body.Qty); err != nil {
		writeError(w, err)
		return
	}
	row, err := h.repo.Get(productID, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(row))
}
