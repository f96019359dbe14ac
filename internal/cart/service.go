package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

// MaxQtyPerLine caps any single cart line.
const MaxQtyPerLine = 25

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type repository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.CartItem, error)
	Upsert(ctx context.Context, sessionID string, productID uuid.UUID, qty int) error
	SetQty(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (bool, error)
	Remove(ctx context.Context, sessionID string, productID uuid.UUID) error
	Clear(ctx context.Context, sessionID string) error
}

// Service exposes session cart operations.
type Service interface {
	GetCart(ctx context.Context, sessionID string) (*CartDTO, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error)
	UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type service struct {
	repo     repository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetCart(ctx context.Context, sessionID string) (*CartDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartDTO(items), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if qty <= 0 || qty > MaxQtyPerLine {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxQtyPerLine))
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if product.Inventory != nil && product.Inventory.AvailableQty < qty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "not enough stock available")
	}

	if err := s.repo.Upsert(ctx, sessionID, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.GetCart(ctx, sessionID)
}

func (s *service) UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if qty < 0 || qty > MaxQtyPerLine {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 0 and %d", MaxQtyPerLine))
	}
	if qty == 0 {
		return s.RemoveItem(ctx, sessionID, productID)
	}

	updated, err := s.repo.SetQty(ctx, sessionID, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.GetCart(ctx, sessionID)
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*CartDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.Remove(ctx, sessionID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.GetCart(ctx, sessionID)
}

func (s *service) ClearCart(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
