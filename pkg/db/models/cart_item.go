package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product/quantity pair in a browser session's cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID string    `gorm:"column:session_id;not null;uniqueIndex:uq_cart_items_session_product,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_cart_items_session_product,priority:2"`
	Qty       int       `gorm:"column:qty;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
