package discounts

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

// Repository persists promo codes.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByCode loads a promo code, matched case-insensitively.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var row models.DiscountCode
	if err := r.db.WithContext(ctx).
		First(&row, "LOWER(code) = ?", strings.ToLower(code)).
		Error; err != nil {
		return nil, err
	}
	return &row, nil
}
