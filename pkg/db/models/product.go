package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a storefront listing.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string         `gorm:"column:slug;uniqueIndex:uq_products_slug;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	PriceCents  int64          `gorm:"column:price_cents;not null"`
	ImageURL    *string        `gorm:"column:image_url"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Inventory   *InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
