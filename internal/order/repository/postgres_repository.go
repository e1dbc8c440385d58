package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const orderColumns = `id, order_number, user_id, status, payment_status, items,
	subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency,
	shipping_address, billing_address, tracking_number, idempotency_key,
	created_at, updated_at, shipped_at, delivered_at, cancelled_at`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW(), NULL, NULL, NULL)`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		itemsJSON,
		order.Subtotal.String(),
		order.TaxAmount.String(),
		order.ShippingAmount.String(),
		order.DiscountAmount.String(),
		order.TotalAmount.String(),
		order.Currency,
		shippingJSON,
		billingJSON,
		order.TrackingNumber,
		order.IdempotencyKey)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "orders_order_number_key" {
				return ErrDuplicateOrderNumber
			}
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, key))
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, scanErr := r.scanOrder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time, trackingNumber string) error {
	var stampColumn string
	switch to {
	case domain.OrderStatusShipped:
		stampColumn = "shipped_at"
	case domain.OrderStatusDelivered:
		stampColumn = "delivered_at"
	case domain.OrderStatusCancelled:
		stampColumn = "cancelled_at"
	}

	query := `UPDATE orders SET status = $1, updated_at = NOW()`
	args := []interface{}{to}
	if stampColumn != "" {
		query += fmt.Sprintf(", %s = $2", stampColumn)
		args = append(args, at)
	}
	if trackingNumber != "" {
		query += fmt.Sprintf(", tracking_number = $%d", len(args)+1)
		args = append(args, trackingNumber)
	}
	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
	args = append(args, id, from)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoMatchingOrderStatus
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanOrder(row scanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, shippingJSON, billingJSON []byte
	var subtotal, tax, shipping, discount, total string

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&itemsJSON,
		&subtotal,
		&tax,
		&shipping,
		&discount,
		&total,
		&order.Currency,
		&shippingJSON,
		&billingJSON,
		&order.TrackingNumber,
		&order.IdempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ShippedAt,
		&order.DeliveredAt,
		&order.CancelledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}

	amounts := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{subtotal, &order.Subtotal},
		{tax, &order.TaxAmount},
		{shipping, &order.ShippingAmount},
		{discount, &order.DiscountAmount},
		{total, &order.TotalAmount},
	}
	for _, a := range amounts {
		d, parseErr := decimal.NewFromString(a.raw)
		if parseErr != nil {
			return nil, fmt.Errorf("bad amount %q in stored order: %w", a.raw, parseErr)
		}
		*a.dst = d
	}

	return &order, nil
}
