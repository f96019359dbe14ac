package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
)

// DeliveryDispatch records the courier delivery requested for an order.
// Its absence means dispatch was not attempted or failed; the order stands
// either way.
type DeliveryDispatch struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;uniqueIndex:uq_delivery_dispatches_order_id;not null"`
	ExternalDeliveryID string               `gorm:"column:external_delivery_id;not null"`
	TrackingURL        string               `gorm:"column:tracking_url;not null"`
	Status             enums.DispatchStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
