package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

// Repository persists session-scoped wishlist entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBySession returns the session's saved products, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]models.WishlistItem, error) {
	var rows []models.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Inventory").
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// Add saves a product for the session. Re-adding is a no-op.
func (r *Repository) Add(ctx context.Context, sessionID string, productID uuid.UUID) error {
	item := models.WishlistItem{
		ID:        uuid.New(),
		SessionID: sessionID,
		ProductID: productID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&item).
		Error
}

// Remove drops one saved product. Removing an absent entry succeeds.
func (r *Repository) Remove(ctx context.Context, sessionID string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.WishlistItem{}).
		Error
}
