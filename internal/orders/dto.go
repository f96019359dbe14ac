package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID               uuid.UUID      `json:"id"`
	OrderNumber      string         `json:"order_number"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	DeliveryType     string         `json:"delivery_type"`
	SubtotalCents    int64          `json:"subtotal_cents"`
	TaxCents         int64          `json:"tax_cents"`
	DeliveryFeeCents int64          `json:"delivery_fee_cents"`
	DiscountCents    int64          `json:"discount_cents"`
	TotalCents       int64          `json:"total_cents"`
	Currency         string         `json:"currency"`
	DiscountCode     *string        `json:"discount_code,omitempty"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email"`
	ShippingAddress  *types.Address `json:"shipping_address,omitempty"`
	Items            []OrderItemDTO `json:"items"`
	Dispatch         *DispatchDTO   `json:"dispatch,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}

// DispatchDTO surfaces courier tracking for delivered orders.
type DispatchDTO struct {
	ExternalDeliveryID string `json:"external_delivery_id"`
	TrackingURL        string `json:"tracking_url,omitempty"`
	Status             string `json:"status"`
}

// NewOrderDTO builds a DTO from the persisted model.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           order.Status.String(),
		PaymentStatus:    order.PaymentStatus.String(),
		DeliveryType:     order.DeliveryType.String(),
		SubtotalCents:    order.SubtotalCents,
		TaxCents:         order.TaxCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		DiscountCents:    order.DiscountCents,
		TotalCents:       order.TotalCents,
		Currency:         order.Currency,
		DiscountCode:     order.DiscountCode,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		ShippingAddress:  order.ShippingAddress,
		CreatedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	if order.Dispatch != nil {
		dto.Dispatch = &DispatchDTO{
			ExternalDeliveryID: order.Dispatch.ExternalDeliveryID,
			TrackingURL:        order.Dispatch.TrackingURL,
			Status:             order.Dispatch.Status.String(),
		}
	}
	return dto
}
