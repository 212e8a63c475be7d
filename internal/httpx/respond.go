package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// queryInt читает неотрицательный целочисленный query-параметр; мусор и
// отсутствие значения дают 0.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor переводит доменную ошибку в HTTP-статус.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsUnauthorized(err):
		return http.StatusForbidden
	case domain.IsInsufficientStock(err),
		domain.IsVersionConflict(err),
		domain.IsInvalidTransition(err),
		errors.Is(err, domain.ErrCancellationNotAllowed),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMinimumOrderViolation),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrRetailerRequired),
		errors.Is(err, domain.ErrWholesalerRequired),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrOwnerRequired),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrDeliveryAddressRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrDiscountNegative),
		errors.Is(err, domain.ErrDiscountExceedsSubtotal),
		errors.Is(err, domain.ErrZeroGrandSubtotal),
		errors.Is(err, domain.ErrIdempotencyKeyRequired),
		errors.Is(err, domain.ErrIdempotencyRequestHashRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvoiceRender):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
