package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/pagination"
)

// ProductDTO represents the storefront product payload returned to clients.
type ProductDTO struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	ImageURL     *string   `json:"image_url,omitempty"`
	InStock      bool      `json:"in_stock"`
	AvailableQty int       `json:"available_qty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListParams captures storefront listing inputs.
type ListParams struct {
	Pagination pagination.Params
	Query      string
}

// ListResult is one cursor page of products.
type ListResult struct {
	Products   []models.Product
	NextCursor string
}

// ProductListDTO is the serialized page returned to clients.
type ProductListDTO struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		ImageURL:    product.ImageURL,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.Inventory != nil {
		dto.AvailableQty = product.Inventory.AvailableQty
		dto.InStock = product.Inventory.AvailableQty > 0
	}
	return dto
}

// NewProductListDTO converts a repository page into its response shape.
func NewProductListDTO(result *ListResult) *ProductListDTO {
	dto := &ProductListDTO{
		Products:   make([]ProductDTO, 0, len(result.Products)),
		NextCursor: result.NextCursor,
	}
	for i := range result.Products {
		dto.Products = append(dto.Products, *NewProductDTO(&result.Products[i]))
	}
	return dto
}
