package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

func TestParseTaxRate(t *testing.T) {
	t.Parallel()

	rate, err := ParseTaxRate("0.1025")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("0.1025")) {
		t.Fatalf("unexpected rate %s", rate)
	}

	if _, err := ParseTaxRate("abc"); err == nil {
		t.Fatalf("expected error for garbage rate")
	}
	if _, err := ParseTaxRate("-0.1"); err == nil {
		t.Fatalf("expected error for negative rate")
	}
	if _, err := ParseTaxRate("1.5"); err == nil {
		t.Fatalf("expected error for rate above 1")
	}
}

func TestSubtotal(t *testing.T) {
	t.Parallel()

	lines := []models.CartItem{
		{Qty: 2, Product: &models.Product{ID: uuid.New(), Slug: "a", PriceCents: 4999, IsActive: true}},
		{Qty: 1, Product: &models.Product{ID: uuid.New(), Slug: "b", PriceCents: 1500, IsActive: true}},
	}
	got, err := Subtotal(lines)
	if err != nil {
		t.Fatalf("subtotal: %v", err)
	}
	if got != 11498 {
		t.Fatalf("expected 11498, got %d", got)
	}
}

func TestSubtotalEmptyCart(t *testing.T) {
	t.Parallel()

	_, err := Subtotal(nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidCartState) {
		t.Fatalf("expected invalid cart state, got %v", err)
	}
}

func TestSubtotalInactiveProduct(t *testing.T) {
	t.Parallel()

	lines := []models.CartItem{
		{Qty: 1, Product: &models.Product{ID: uuid.New(), Slug: "gone", PriceCents: 100, IsActive: false}},
	}
	_, err := Subtotal(lines)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidCartState) {
		t.Fatalf("expected invalid cart state, got %v", err)
	}
}

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	rate := decimal.RequireFromString("0.1")
	totals := ComputeTotals(10000, 1000, 799, rate)

	if totals.TaxCents != 900 {
		t.Fatalf("expected tax on discounted subtotal, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 10699 {
		t.Fatalf("expected total 10699, got %d", totals.TotalCents)
	}
}

func TestComputeTotalsClampsDiscount(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals(500, 900, 0, decimal.Zero)
	if totals.DiscountCents != 500 || totals.TotalCents != 0 {
		t.Fatalf("expected full clamp, got %+v", totals)
	}
}
