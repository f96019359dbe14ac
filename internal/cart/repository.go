package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

// Repository persists session-scoped cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListBySession returns every cart line for the session with products preloaded.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Inventory").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// Upsert adds the quantity to an existing line or inserts a new one.
func (r *Repository) Upsert(ctx context.Context, sessionID string, productID uuid.UUID, qty int) error {
	item := models.CartItem{
		ID:        uuid.New(),
		SessionID: sessionID,
		ProductID: productID,
		Qty:       qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("cart_items.qty + ?", qty)}),
		}).
		Create(&item).
		Error
}

// SetQty replaces the quantity on an existing line.
func (r *Repository) SetQty(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Update("qty", qty)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Remove deletes one line from the session's cart.
func (r *Repository) Remove(ctx context.Context, sessionID string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.CartItem{}).
		Error
}

// Clear deletes every line for the session.
func (r *Repository) Clear(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.CartItem{}).
		Error
}
