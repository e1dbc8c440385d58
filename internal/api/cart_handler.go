package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codgamerofficial/Kultzr/internal/cart"
	"github.com/codgamerofficial/Kultzr/internal/catalog"
	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

type CartHandler struct {
	sessions *Sessions
	catalog  catalog.Catalog
}

func NewCartHandler(sessions *Sessions, cat catalog.Catalog) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  cat,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	VariantID int64 `json:"variant_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

type CartResponseDTO struct {
	Items   []domain.LineItem `json:"items"`
	Summary pricing.Summary   `json:"summary"`
}

func cartResponse(store *cart.Store) CartResponseDTO {
	return CartResponseDTO{
		Items:   store.Items(),
		Summary: store.Summary(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	store := h.sessions.CartFor(r.Context(), userID)
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	// Parse request body
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Validate request
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var variant *domain.Variant
	if req.VariantID > 0 {
		variant, err = h.catalog.GetVariant(r.Context(), req.VariantID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if variant.ProductID != product.ID {
			respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant does not belong to product")
			return
		}
	}

	store := h.sessions.CartFor(r.Context(), userID)
	store.AddItem(product, variant, req.Quantity)

	respondJSON(w, http.StatusCreated, cartResponse(store))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	// Parse request body
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	store := h.sessions.CartFor(r.Context(), userID)
	store.UpdateQuantity(productID, req.VariantID, req.Quantity)

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	variantID, err := optionalVariantID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id must be a positive integer")
		return
	}

	store := h.sessions.CartFor(r.Context(), userID)
	store.RemoveItem(productID, variantID)

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	store := h.sessions.CartFor(r.Context(), userID)
	store.Clear()

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func optionalVariantID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("variant_id")
	if raw == "" {
		return 0, nil
	}
	variantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || variantID < 0 {
		return 0, errors.New("invalid variant_id")
	}
	return variantID, nil
}
