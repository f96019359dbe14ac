package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

// Totals is the server-side amount breakdown for a checkout, in cents.
type Totals struct {
	SubtotalCents    int64 `json:"subtotal_cents"`
	DiscountCents    int64 `json:"discount_cents"`
	TaxCents         int64 `json:"tax_cents"`
	DeliveryFeeCents int64 `json:"delivery_fee_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// ParseTaxRate converts the configured tax rate string into a decimal.
func ParseTaxRate(rate string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse tax rate %q: %w", rate, err)
	}
	if parsed.IsNegative() || parsed.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("tax rate %q out of range", rate)
	}
	return parsed, nil
}

// Subtotal sums the cart lines at their current catalog prices. Every line
// must reference a loaded, active product.
func Subtotal(lines []models.CartItem) (int64, error) {
	if len(lines) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidCartState, "cart is empty")
	}
	var subtotal int64
	for _, line := range lines {
		if line.Product == nil {
			return 0, pkgerrors.New(pkgerrors.CodeInvalidCartState, "cart references a missing product")
		}
		if !line.Product.IsActive {
			return 0, pkgerrors.New(pkgerrors.CodeInvalidCartState,
				fmt.Sprintf("product %s is no longer available", line.Product.Slug))
		}
		if line.Qty <= 0 {
			return 0, pkgerrors.New(pkgerrors.CodeInvalidCartState, "cart line has a non-positive quantity")
		}
		subtotal += line.Product.PriceCents * int64(line.Qty)
	}
	return subtotal, nil
}

// ComputeTotals derives the full breakdown. Tax applies to the discounted
// subtotal, not the delivery fee, and rounds half up to the cent.
func ComputeTotals(subtotalCents, discountCents, deliveryFeeCents int64, taxRate decimal.Decimal) Totals {
	if discountCents > subtotalCents {
		discountCents = subtotalCents
	}
	if discountCents < 0 {
		discountCents = 0
	}

	taxable := decimal.NewFromInt(subtotalCents - discountCents)
	tax := taxable.Mul(taxRate).Round(0).IntPart()

	return Totals{
		SubtotalCents:    subtotalCents,
		DiscountCents:    discountCents,
		TaxCents:         tax,
		DeliveryFeeCents: deliveryFeeCents,
		TotalCents:       subtotalCents - discountCents + tax + deliveryFeeCents,
	}
}
