package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

// DiscountDTO describes a validated promo code and its effect on a subtotal.
type DiscountDTO struct {
	Code           string `json:"code"`
	PercentOff     *int   `json:"percent_off,omitempty"`
	AmountOffCents *int64 `json:"amount_off_cents,omitempty"`
	DiscountCents  int64  `json:"discount_cents"`
}

type repository interface {
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

// Service validates promo codes against cart subtotals.
type Service interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*DiscountDTO, error)
}

type service struct {
	repo repository
	now  func() time.Time
}

// NewService constructs a discount service instance.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, subtotalCents int64) (*DiscountDTO, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if subtotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be non-negative")
	}

	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if !row.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is no longer active")
	}
	if row.ExpiresAt != nil && s.now().After(*row.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code has expired")
	}

	return &DiscountDTO{
		Code:           row.Code,
		PercentOff:     row.PercentOff,
		AmountOffCents: row.AmountOffCents,
		DiscountCents:  Compute(row, subtotalCents),
	}, nil
}

// Compute returns the discount in cents for the subtotal, clamped so the
// payable amount never goes negative. Percentages round half up.
func Compute(code *models.DiscountCode, subtotalCents int64) int64 {
	if code == nil || subtotalCents <= 0 {
		return 0
	}

	var discount int64
	switch {
	case code.PercentOff != nil && *code.PercentOff > 0:
		pct := decimal.NewFromInt(int64(*code.PercentOff)).Div(decimal.NewFromInt(100))
		discount = decimal.NewFromInt(subtotalCents).Mul(pct).Round(0).IntPart()
	case code.AmountOffCents != nil && *code.AmountOffCents > 0:
		discount = *code.AmountOffCents
	}

	if discount > subtotalCents {
		return subtotalCents
	}
	return discount
}
