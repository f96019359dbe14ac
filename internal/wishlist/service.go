package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/sandroescobar/lovemenow-sub001/internal/products"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type repository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.WishlistItem, error)
	Add(ctx context.Context, sessionID string, productID uuid.UUID) error
	Remove(ctx context.Context, sessionID string, productID uuid.UUID) error
}

// ItemDTO is one saved product in the wishlist response.
type ItemDTO struct {
	Product product.ProductDTO `json:"product"`
	SavedAt time.Time          `json:"saved_at"`
}

// WishlistDTO is the session's full wishlist.
type WishlistDTO struct {
	Items []ItemDTO `json:"items"`
}

// Service exposes session wishlist operations.
type Service interface {
	GetWishlist(ctx context.Context, sessionID string) (*WishlistDTO, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*WishlistDTO, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*WishlistDTO, error)
}

type service struct {
	repo     repository
	products productLoader
}

// NewService builds a wishlist service backed by the provided stack.
func NewService(repo repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetWishlist(ctx context.Context, sessionID string) (*WishlistDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}

	dto := &WishlistDTO{Items: make([]ItemDTO, 0, len(rows))}
	for _, row := range rows {
		if row.Product == nil {
			continue
		}
		dto.Items = append(dto.Items, ItemDTO{
			Product: *product.NewProductDTO(row.Product),
			SavedAt: row.CreatedAt,
		})
	}
	return dto, nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*WishlistDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	row, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	if err := s.repo.Add(ctx, sessionID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist item")
	}
	return s.GetWishlist(ctx, sessionID)
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*WishlistDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.Remove(ctx, sessionID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return s.GetWishlist(ctx, sessionID)
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
