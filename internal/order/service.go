package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/order/repository"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

// Cart is the slice of the cart store the assembler needs: a snapshot of the
// current line items and the clear that follows a confirmed submission.
type Cart interface {
	Items() []domain.LineItem
	Clear()
}

// StockRestorer is the catalog write used when a cancellation returns
// reserved inventory.
type StockRestorer interface {
	RestoreStock(ctx context.Context, variantID int64, quantity int) error
}

// CheckoutInput carries everything the user submits on the checkout form.
type CheckoutInput struct {
	UserID          string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address // nil defaults to the shipping address
	IdempotencyKey  string
	DiscountAmount  decimal.Decimal
}

type Service struct {
	repo    repository.OrderRepository
	catalog StockRestorer
	cfg     pricing.Config
	now     func() time.Time
}

func NewService(repo repository.OrderRepository, cat StockRestorer, cfg pricing.Config) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Checkout freezes the cart into an immutable order and submits it.
//
// Totals are recomputed from the line items at submission time, never reused
// from a client-side summary, so the order can't inherit a stale display
// value. The cart is cleared only after the order is confirmed persisted; on
// any failure it is left untouched so the user can retry. A duplicate
// idempotency key returns the previously created order instead of a second
// one.
func (s *Service) Checkout(ctx context.Context, cart Cart, input CheckoutInput) (*domain.Order, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			log.Printf("duplicate checkout for idempotency key %s, returning order %s", input.IdempotencyKey, existing.OrderNumber)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &RemoteUnavailableError{Err: err}
		}
	} else {
		input.IdempotencyKey = uuid.NewString()
	}

	summary := pricing.Summarize(items, input.DiscountAmount, s.cfg)

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     NewOrderNumber(s.now()),
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Items:           snapshotItems(items),
		Subtotal:        summary.Subtotal,
		TaxAmount:       summary.TaxAmount,
		ShippingAmount:  summary.ShippingAmount,
		DiscountAmount:  summary.DiscountAmount,
		TotalAmount:     summary.TotalAmount,
		Currency:        summary.Currency,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		IdempotencyKey:  input.IdempotencyKey,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			// Lost a race with our own retry; the first submission won.
			existing, getErr := s.repo.GetOrderByIdempotencyKey(ctx, input.IdempotencyKey)
			if getErr != nil {
				return nil, &RemoteUnavailableError{Err: getErr}
			}
			cart.Clear()
			return existing, nil
		}
		return nil, &RemoteUnavailableError{Err: err}
	}

	// Order is persisted; clearing the cart is a separate, non-atomic step.
	// If the process dies between the two, the idempotency key keeps a retry
	// from creating a duplicate order.
	cart.Clear()

	return order, nil
}

// GetOrder returns a persisted order by ID.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

// ListOrders returns a user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// ApplyFulfillmentEvent moves an order through its status lifecycle in
// response to an external fulfillment notification. Illegal transitions are
// rejected with ErrIllegalTransition. A cancellation restores variant stock
// exactly once: the compare-and-swap status update fails on replay before
// any stock is touched.
func (s *Service) ApplyFulfillmentEvent(ctx context.Context, orderID uuid.UUID, newStatus domain.OrderStatus, at time.Time, trackingNumber string) error {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !domain.CanTransitionTo(order.Status, newStatus) {
		return ErrIllegalTransition
	}

	if err := s.repo.UpdateStatus(ctx, orderID, order.Status, newStatus, at, trackingNumber); err != nil {
		if errors.Is(err, repository.ErrNoMatchingOrderStatus) {
			// Another consumer already applied this (or a conflicting)
			// transition; treat like any other illegal move.
			return ErrIllegalTransition
		}
		return err
	}

	if newStatus == domain.OrderStatusCancelled {
		s.restoreStock(ctx, order)
	}

	return nil
}

// restoreStock returns each variant-tracked line's quantity to the catalog.
// Failures are logged per line and do not undo the cancellation itself.
func (s *Service) restoreStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		if item.VariantID == 0 {
			continue
		}
		if err := s.catalog.RestoreStock(ctx, item.VariantID, item.Quantity); err != nil {
			log.Printf("failed to restore stock for variant %d on order %s: %v", item.VariantID, order.OrderNumber, err)
		}
	}
}

func snapshotItems(items []domain.LineItem) []domain.OrderItem {
	snapshot := make([]domain.OrderItem, len(items))
	for i, item := range items {
		snapshot[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return snapshot
}

func validateCheckout(input CheckoutInput) error {
	var missing []string

	addr := input.ShippingAddress
	if addr.Name == "" {
		missing = append(missing, "name")
	}
	if addr.Phone == "" {
		missing = append(missing, "phone")
	}
	if addr.Line1 == "" {
		missing = append(missing, "address")
	}
	if addr.City == "" {
		missing = append(missing, "city")
	}
	if addr.PostalCode == "" {
		missing = append(missing, "postal_code")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}
	return nil
}
