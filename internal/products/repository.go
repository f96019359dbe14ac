package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/pagination"
)

// Repository wires together product and inventory persistence.
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

// FindByID loads the product with its inventory row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Inventory").
		First(&product, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads an active product by its storefront slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Inventory").
		First(&product, "slug = ? AND is_active = ?", slug, true).
		Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByIDs returns the active products among the requested IDs,
// with inventory preloaded.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).
		Error
	return rows, err
}

// List returns a cursor page of active products, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Pagination.Limit)
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("is_active = ?", true)

	if search := strings.TrimSpace(params.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(slug) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Pagination.Limit)).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	page, hasNext := pagination.TrimPage(rows, pageSize)
	nextCursor := ""
	if hasNext {
		last := page[len(page)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Products: page, NextCursor: nextCursor}, nil
}

// DecrementStock reduces on-hand quantity only when enough stock remains.
// The returned count is zero when stock was insufficient.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND available_qty >= ?", productID, qty).
		UpdateColumn("available_qty", gorm.Expr("available_qty - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DecrementStockTx is DecrementStock bound to an open transaction.
func (r *Repository) DecrementStockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	return r.WithTx(tx).DecrementStock(ctx, productID, qty)
}
