package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/codgamerofficial/Kultzr/internal/catalog"
	"github.com/codgamerofficial/Kultzr/internal/order"
	orderrepo "github.com/codgamerofficial/Kultzr/internal/order/repository"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the typed errors from the order and catalog layers
// to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation_error",
			Details: vErr.MissingFields,
		})
		return
	}

	var remoteErr *order.RemoteUnavailableError
	if errors.As(err, &remoteErr) {
		// The user must see the checkout failed so they can retry; the cart
		// is preserved server-side.
		respondError(w, http.StatusServiceUnavailable, "order_submission_failed", "could not place the order, please try again")
		return
	}

	switch {
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, orderrepo.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, catalog.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, "variant_not_found", "variant not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
