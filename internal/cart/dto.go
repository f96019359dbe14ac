package cart

import (
	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
)

// LineDTO is a single cart line with its price snapshot.
type LineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	ImageURL       *string   `json:"image_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	LineTotalCents int64     `json:"line_total_cents"`
	AvailableQty   int       `json:"available_qty"`
}

// CartDTO is the full cart payload returned to clients.
type CartDTO struct {
	Items         []LineDTO `json:"items"`
	ItemCount     int       `json:"item_count"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

// NewCartDTO summarizes the persisted lines into the response shape.
func NewCartDTO(items []models.CartItem) *CartDTO {
	dto := &CartDTO{Items: make([]LineDTO, 0, len(items))}
	for _, item := range items {
		line := LineDTO{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		}
		if item.Product != nil {
			line.Slug = item.Product.Slug
			line.Name = item.Product.Name
			line.ImageURL = item.Product.ImageURL
			line.UnitPriceCents = item.Product.PriceCents
			if item.Product.Inventory != nil {
				line.AvailableQty = item.Product.Inventory.AvailableQty
			}
		}
		line.LineTotalCents = line.UnitPriceCents * int64(item.Qty)
		dto.Items = append(dto.Items, line)
		dto.ItemCount += item.Qty
		dto.SubtotalCents += line.LineTotalCents
	}
	return dto
}
