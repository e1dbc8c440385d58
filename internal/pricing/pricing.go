package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

// Config holds the pricing knobs. These come from configuration, not
// constants: the store runs with threshold 2999, flat fee 99 and 18% GST,
// but tests and future storefronts set their own.
type Config struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              string
}

// DefaultConfig returns the production values observed for the INR store.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(2999),
		FlatShippingFee:       decimal.NewFromInt(99),
		TaxRate:               decimal.NewFromFloat(0.18),
		Currency:              "INR",
	}
}

// Summary is the derived cart totals. It is a pure function of the line
// items and never stored; every cart mutation recomputes it.
type Summary struct {
	ItemCount      int             `json:"item_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
}

// Summarize computes cart totals from the given line items.
//
// Shipping is free strictly above the threshold (subtotal == threshold still
// pays the flat fee) and zero for an empty cart. Tax is rounded half-up to
// the smallest currency denomination, so client and server always agree on
// the final paisa. The discount is clamped to the gross order value; no
// combination of inputs yields a negative total.
func Summarize(items []domain.LineItem, discount decimal.Decimal, cfg Config) Summary {
	s := Summary{
		Subtotal:       decimal.Zero,
		ShippingAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.Zero,
		Currency:       cfg.Currency,
	}

	for _, item := range items {
		s.ItemCount += item.Quantity
		s.Subtotal = s.Subtotal.Add(item.LineTotal())
	}

	if s.ItemCount == 0 {
		return s
	}

	if s.Subtotal.LessThanOrEqual(cfg.FreeShippingThreshold) {
		s.ShippingAmount = cfg.FlatShippingFee
	}

	s.TaxAmount = s.Subtotal.Mul(cfg.TaxRate).Round(0)

	// A discount can never push the total below zero: anything outside
	// [0, subtotal+shipping+tax] is clamped to the nearest bound.
	gross := s.Subtotal.Add(s.ShippingAmount).Add(s.TaxAmount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(gross) {
		discount = gross
	}
	s.DiscountAmount = discount
	s.TotalAmount = gross.Sub(s.DiscountAmount)

	return s
}
