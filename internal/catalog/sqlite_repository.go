package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, sizes, colors, image_url, is_active, created_at
		FROM products
		WHERE id = ?
	`

	p := &domain.Product{}
	var price, sizes, colors string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&sizes,
		&colors,
		&p.ImageURL,
		&p.IsActive,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("bad price %q for product %d: %w", price, id, err)
	}
	p.Sizes = splitList(sizes)
	p.Colors = splitList(colors)

	return p, nil
}

func (r *Repository) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	query := `
		SELECT id, product_id, size, color, price, stock_quantity
		FROM product_variants
		WHERE id = ?
	`

	v := &domain.Variant{}
	var price string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.ProductID,
		&v.Size,
		&v.Color,
		&price,
		&v.StockQuantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}

	if v.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("bad price %q for variant %d: %w", price, id, err)
	}

	return v, nil
}

// RestoreStock returns a cancelled order line's quantity to the variant's
// stock pool.
func (r *Repository) RestoreStock(ctx context.Context, variantID int64, quantity int) error {
	query := `UPDATE product_variants SET stock_quantity = stock_quantity + ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, quantity, variantID)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVariantNotFound
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
