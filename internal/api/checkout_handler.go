package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/order"
)

type CheckoutHandler struct {
	sessions *Sessions
	orders   *order.Service
}

func NewCheckoutHandler(sessions *Sessions, orders *order.Service) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		orders:   orders,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
}

// Checkout freezes the session's cart into an order. Retries send the same
// Idempotency-Key header and get the original order back instead of a new one.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.DiscountAmount.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_discount", "discount_amount must not be negative")
		return
	}

	store := h.sessions.CartFor(r.Context(), userID)

	created, err := h.orders.Checkout(r.Context(), store, order.CheckoutInput{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		DiscountAmount:  req.DiscountAmount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}
