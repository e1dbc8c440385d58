package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/order"
	"github.com/codgamerofficial/Kultzr/internal/order/repository"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

type orderRepoMock struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	err    error
}

func newOrderRepoMock() *orderRepoMock {
	return &orderRepoMock{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *orderRepoMock) CreateOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.orders {
		if existing.IdempotencyKey == o.IdempotencyKey {
			return repository.ErrDuplicateSubmission
		}
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.orders[o.ID] = o
	return nil
}

func (r *orderRepoMock) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (r *orderRepoMock) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, o := range r.orders {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (r *orderRepoMock) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *orderRepoMock) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time, trackingNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return repository.ErrNoMatchingOrderStatus
	}
	o.Status = to
	return nil
}

func (r *orderRepoMock) RunMigrations(*repository.Credentials) error { return nil }

func (r *orderRepoMock) Close() error { return nil }

func newTestCheckoutHandler(repo repository.OrderRepository) (*CheckoutHandler, *Sessions) {
	sessions := NewSessions(pricing.DefaultConfig(), nil)
	svc := order.NewService(repo, newTestCatalog(), pricing.DefaultConfig())
	return NewCheckoutHandler(sessions, svc), sessions
}

func validCheckoutBody() []byte {
	body, _ := json.Marshal(CheckoutRequestDTO{
		ShippingAddress: domain.Address{
			Name:       "Arjun Mehta",
			Phone:      "+91 98765 43210",
			Line1:      "14 Residency Road",
			City:       "Bengaluru",
			PostalCode: "560025",
		},
	})
	return body
}

func TestCheckout_Success(t *testing.T) {
	repo := newOrderRepoMock()
	handler, sessions := newTestCheckoutHandler(repo)

	cat := newTestCatalog()
	store := sessions.CartFor(context.Background(), "user-1")
	store.AddItem(cat.products[2], nil, 1) // 1999

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody())), "user-1")

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusCreated, recorder.Code, recorder.Body)
	}

	var response domain.Order
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	// 1999 + 99 shipping + 360 tax
	if !response.TotalAmount.Equal(decimal.NewFromInt(2458)) {
		t.Errorf("Expected total 2458, got %s", response.TotalAmount)
	}
	if response.Status != domain.OrderStatusPending {
		t.Errorf("Expected status pending, got %s", response.Status)
	}
	if len(store.Items()) != 0 {
		t.Errorf("Expected cart cleared after checkout, got %d items", len(store.Items()))
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	handler, _ := newTestCheckoutHandler(newOrderRepoMock())

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody())), "user-1")

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "empty_cart" {
		t.Errorf("Expected error code 'empty_cart', got '%s'", response.Code)
	}
}

func TestCheckout_MissingAddressFields(t *testing.T) {
	repo := newOrderRepoMock()
	handler, sessions := newTestCheckoutHandler(repo)

	cat := newTestCatalog()
	store := sessions.CartFor(context.Background(), "user-1")
	store.AddItem(cat.products[1], nil, 1)

	body, _ := json.Marshal(CheckoutRequestDTO{
		ShippingAddress: domain.Address{Name: "Arjun Mehta", City: "Bengaluru"},
	})
	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(body)), "user-1")

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "validation_error" {
		t.Errorf("Expected error code 'validation_error', got '%s'", response.Code)
	}
	if len(response.Details) != 3 {
		t.Errorf("Expected 3 missing fields (phone, address, postal_code), got %v", response.Details)
	}
	if len(store.Items()) != 1 {
		t.Errorf("Expected cart untouched after rejected checkout, got %d items", len(store.Items()))
	}
}

func TestCheckout_IdempotencyKeyReplay(t *testing.T) {
	repo := newOrderRepoMock()
	handler, sessions := newTestCheckoutHandler(repo)

	cat := newTestCatalog()
	store := sessions.CartFor(context.Background(), "user-1")
	store.AddItem(cat.products[1], nil, 1)

	first := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody())), "user-1")
	request.Header.Set("Idempotency-Key", "retry-key-1")
	handler.Checkout(first, request)

	if first.Code != http.StatusCreated {
		t.Fatalf("Expected status code %d, got %d", http.StatusCreated, first.Code)
	}

	// Same key again: the original order comes back, no second one is made.
	second := httptest.NewRecorder()
	replay := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody())), "user-1")
	replay.Header.Set("Idempotency-Key", "retry-key-1")
	handler.Checkout(second, replay)

	if second.Code != http.StatusCreated {
		t.Fatalf("Expected status code %d, got %d", http.StatusCreated, second.Code)
	}

	var a, b domain.Order
	json.NewDecoder(first.Body).Decode(&a)
	json.NewDecoder(second.Body).Decode(&b)
	if a.OrderNumber != b.OrderNumber {
		t.Errorf("Expected replay to return order %s, got %s", a.OrderNumber, b.OrderNumber)
	}
	if len(repo.orders) != 1 {
		t.Errorf("Expected exactly 1 persisted order, got %d", len(repo.orders))
	}
}

func TestCheckout_RepositoryDown(t *testing.T) {
	repo := newOrderRepoMock()
	repo.err = context.DeadlineExceeded
	handler, sessions := newTestCheckoutHandler(repo)

	cat := newTestCatalog()
	store := sessions.CartFor(context.Background(), "user-1")
	store.AddItem(cat.products[1], nil, 1)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody())), "user-1")

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}
	if len(store.Items()) != 1 {
		t.Errorf("Expected cart kept after failed checkout, got %d items", len(store.Items()))
	}
}

func TestCheckout_NegativeDiscount(t *testing.T) {
	handler, _ := newTestCheckoutHandler(newOrderRepoMock())

	body, _ := json.Marshal(CheckoutRequestDTO{
		ShippingAddress: domain.Address{Name: "A"},
		DiscountAmount:  decimal.NewFromInt(-50),
	})
	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/checkout", bytes.NewReader(body)), "user-1")

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestCheckout_Unauthorized(t *testing.T) {
	handler, _ := newTestCheckoutHandler(newOrderRepoMock())

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/checkout", bytes.NewReader(validCheckoutBody()))
	// No user_id in context

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}
