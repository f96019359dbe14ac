package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountCode is a storefront promo code. Exactly one of PercentOff or
// AmountOffCents is expected to be set.
type DiscountCode struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string     `gorm:"column:code;uniqueIndex:uq_discount_codes_code;not null"`
	PercentOff     *int       `gorm:"column:percent_off"`
	AmountOffCents *int64     `gorm:"column:amount_off_cents"`
	Active         bool       `gorm:"column:active;not null;default:true"`
	ExpiresAt      *time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
