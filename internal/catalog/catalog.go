package catalog

import (
	"context"
	"errors"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Catalog is the product collaborator: price lookups for cart snapshots and
// the stock restoration write used when a cancelled order returns inventory.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetVariant(ctx context.Context, id int64) (*domain.Variant, error)
	RestoreStock(ctx context.Context, variantID int64, quantity int) error
	Close() error
}
