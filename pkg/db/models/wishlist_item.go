package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is a saved product reference for a browser session.
type WishlistItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID string    `gorm:"column:session_id;not null;uniqueIndex:uq_wishlist_items_session_product,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_wishlist_items_session_product,priority:2"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
