package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeCommerceError maps the commerce error taxonomy to HTTP responses,
// keeping enough detail for the caller to retry.
func writeCommerceError(w http.ResponseWriter, err error) {
	var notFound *commerce.ProductNotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":      err.Error(),
			"product_id": notFound.ProductID,
		})
		return
	}

	var invalidQty *commerce.InvalidQuantityError
	if errors.As(err, &invalidQty) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      err.Error(),
			"product_id": invalidQty.ProductID,
		})
		return
	}

	var noStock *commerce.InsufficientStockError
	if errors.As(err, &noStock) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      err.Error(),
			"product_id": noStock.ProductID,
			"available":  noStock.Available,
		})
		return
	}

	switch {
	case errors.Is(err, commerce.ErrEmptyOrder),
		errors.Is(err, commerce.ErrNotConfirmable),
		errors.Is(err, commerce.ErrNotCancellable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, commerce.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, commerce.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
