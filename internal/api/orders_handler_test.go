package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/order"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

func newTestOrdersHandler(repo *orderRepoMock) *OrdersHandler {
	svc := order.NewService(repo, newTestCatalog(), pricing.DefaultConfig())
	return NewOrdersHandler(svc)
}

func seedOrder(repo *orderRepoMock, userID string) *domain.Order {
	o := &domain.Order{
		ID:             uuid.New(),
		OrderNumber:    "KLTZ00000001ABCDEF",
		UserID:         userID,
		Status:         domain.OrderStatusPending,
		IdempotencyKey: uuid.NewString(),
	}
	repo.CreateOrder(context.Background(), o)
	return o
}

func withOrderParam(request *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("order_id", orderID)
	return request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))
}

func TestListOrders_Success(t *testing.T) {
	repo := newOrderRepoMock()
	seedOrder(repo, "user-1")
	seedOrder(repo, "user-1")
	seedOrder(repo, "someone-else")
	handler := newTestOrdersHandler(repo)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/orders", nil), "user-1")

	handler.ListOrders(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response []domain.Order
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response) != 2 {
		t.Errorf("Expected 2 orders for user-1, got %d", len(response))
	}
	for _, o := range response {
		if o.UserID != "user-1" {
			t.Errorf("Expected only user-1 orders, got one for %s", o.UserID)
		}
	}
}

func TestListOrders_Unauthorized(t *testing.T) {
	handler := newTestOrdersHandler(newOrderRepoMock())

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/orders", nil)
	// No user_id in context

	handler.ListOrders(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestGetOrder_Success(t *testing.T) {
	repo := newOrderRepoMock()
	seeded := seedOrder(repo, "user-1")
	handler := newTestOrdersHandler(repo)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/orders/"+seeded.ID.String(), nil), "user-1")
	request = withOrderParam(request, seeded.ID.String())

	handler.GetOrder(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response domain.Order
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.OrderNumber != seeded.OrderNumber {
		t.Errorf("Expected order number %s, got %s", seeded.OrderNumber, response.OrderNumber)
	}
}

func TestGetOrder_InvalidID(t *testing.T) {
	handler := newTestOrdersHandler(newOrderRepoMock())

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/orders/not-a-uuid", nil), "user-1")
	request = withOrderParam(request, "not-a-uuid")

	handler.GetOrder(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	handler := newTestOrdersHandler(newOrderRepoMock())

	unknown := uuid.NewString()
	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/orders/"+unknown, nil), "user-1")
	request = withOrderParam(request, unknown)

	handler.GetOrder(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestGetOrder_OtherUsersOrderIsHidden(t *testing.T) {
	repo := newOrderRepoMock()
	seeded := seedOrder(repo, "someone-else")
	handler := newTestOrdersHandler(repo)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/orders/"+seeded.ID.String(), nil), "user-1")
	request = withOrderParam(request, seeded.ID.String())

	handler.GetOrder(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}
}
