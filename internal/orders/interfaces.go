package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

// Repository defines persistence operations for materialized orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateDispatch(ctx context.Context, dispatch *models.DeliveryDispatch) (*models.DeliveryDispatch, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}
