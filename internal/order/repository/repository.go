package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrDuplicateSubmission   = errors.New("order for this idempotency key already exists")
	ErrDuplicateOrderNumber  = errors.New("order number already exists")
	ErrNoMatchingOrderStatus = errors.New("no order updated for that id and status")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// UpdateStatus moves the order from one status to another, recording the
	// transition timestamp and any tracking number. The expected current
	// status makes the update a compare-and-swap, so a replayed fulfillment
	// event cannot apply the same transition twice.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time, trackingNumber string) error
	RunMigrations(*Credentials) error
	Close() error
}
