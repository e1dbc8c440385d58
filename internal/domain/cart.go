package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product/variant entry in a cart. Identity is the
// (ProductID, VariantID) pair; VariantID is 0 for products sold without
// variants. UnitPrice is snapshotted when the item is first added and does
// not follow later catalog price changes.
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"added_at"`
}

// SameIdentity reports whether two line items refer to the same
// product/variant pair.
func (li LineItem) SameIdentity(other LineItem) bool {
	return li.ProductID == other.ProductID && li.VariantID == other.VariantID
}

// LineTotal is UnitPrice multiplied by Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
