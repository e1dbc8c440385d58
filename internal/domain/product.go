package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Sizes       []string
	Colors      []string
	ImageURL    string
	IsActive    bool
	CreatedAt   time.Time
}

// Variant is a concrete size/color combination of a product. Price overrides
// the product price when positive; StockQuantity is tracked per variant.
type Variant struct {
	ID            int64
	ProductID     int64
	Size          string
	Color         string
	Price         decimal.Decimal
	StockQuantity int
}

// UnitPrice returns the price a cart snapshot should freeze for this
// product/variant pair.
func UnitPrice(p *Product, v *Variant) decimal.Decimal {
	if v != nil && v.Price.IsPositive() {
		return v.Price
	}
	return p.Price
}
