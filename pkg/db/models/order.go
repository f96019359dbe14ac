package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

// Order is the durable record materialized from a succeeded payment intent.
//
// The unique index on payment_intent_id is the authoritative guard against
// duplicate materialization; application-level lookups are a fast path only.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;uniqueIndex:uq_orders_order_number;not null"`
	PaymentIntentID string              `gorm:"column:payment_intent_id;uniqueIndex:uq_orders_payment_intent_id;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'confirmed'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'paid'"`

	// Audit columns added after a duplicate-charge incident. Neither drives
	// control flow.
	IsDuplicatePayment          bool    `gorm:"column:is_duplicate_payment;not null;default:false"`
	PaymentIntentStatusAtCreate string  `gorm:"column:payment_intent_status_at_creation;not null"`
	CancellationReason          *string `gorm:"column:cancellation_reason"`

	DeliveryType     enums.DeliveryType `gorm:"column:delivery_type;type:text;not null"`
	DeliveryQuoteID  *string            `gorm:"column:delivery_quote_id"`
	SubtotalCents    int64              `gorm:"column:subtotal_cents;not null"`
	TaxCents         int64              `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents int64              `gorm:"column:delivery_fee_cents;not null;default:0"`
	DiscountCents    int64              `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int64              `gorm:"column:total_cents;not null"`
	Currency         string             `gorm:"column:currency;not null;default:'usd'"`
	DiscountCode     *string            `gorm:"column:discount_code"`
	CustomerName     string             `gorm:"column:customer_name;not null"`
	CustomerEmail    string             `gorm:"column:customer_email;not null"`
	CustomerPhone    *string            `gorm:"column:customer_phone"`
	ShippingAddress  *types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	Items    []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Dispatch *DeliveryDispatch `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
