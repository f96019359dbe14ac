package product

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

const testSchema = `
CREATE TABLE products (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	price_cents INTEGER NOT NULL,
	image_url TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE inventory_items (
	product_id TEXT PRIMARY KEY,
	available_qty INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME
);
`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.Exec(testSchema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return conn
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, slug string, qty int, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Slug:       slug,
		Name:       "Test " + slug,
		PriceCents: 2499,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	item := &models.InventoryItem{ProductID: product.ID, AvailableQty: qty}
	if err := tx.Create(item).Error; err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	product.Inventory = item
	return product
}
