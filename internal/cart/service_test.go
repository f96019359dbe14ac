package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubCartRepo struct {
	lines map[uuid.UUID]*models.CartItem
	byRef map[uuid.UUID]*models.Product
}

func newStubCartRepo(products map[uuid.UUID]*models.Product) *stubCartRepo {
	return &stubCartRepo{
		lines: map[uuid.UUID]*models.CartItem{},
		byRef: products,
	}
}

func (s *stubCartRepo) ListBySession(_ context.Context, sessionID string) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, line := range s.lines {
		if line.SessionID == sessionID {
			copied := *line
			copied.Product = s.byRef[line.ProductID]
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *stubCartRepo) Upsert(_ context.Context, sessionID string, productID uuid.UUID, qty int) error {
	if existing, ok := s.lines[productID]; ok && existing.SessionID == sessionID {
		existing.Qty += qty
		return nil
	}
	s.lines[productID] = &models.CartItem{
		ID:        uuid.New(),
		SessionID: sessionID,
		ProductID: productID,
		Qty:       qty,
	}
	return nil
}

func (s *stubCartRepo) SetQty(_ context.Context, sessionID string, productID uuid.UUID, qty int) (bool, error) {
	if existing, ok := s.lines[productID]; ok && existing.SessionID == sessionID {
		existing.Qty = qty
		return true, nil
	}
	return false, nil
}

func (s *stubCartRepo) Remove(_ context.Context, sessionID string, productID uuid.UUID) error {
	if existing, ok := s.lines[productID]; ok && existing.SessionID == sessionID {
		delete(s.lines, productID)
	}
	return nil
}

func (s *stubCartRepo) Clear(_ context.Context, sessionID string) error {
	for id, line := range s.lines {
		if line.SessionID == sessionID {
			delete(s.lines, id)
		}
	}
	return nil
}

func fixtureProduct(price int64, qty int) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		Slug:       "rose-gift-set",
		Name:       "Rose Gift Set",
		PriceCents: price,
		IsActive:   true,
		Inventory:  &models.InventoryItem{AvailableQty: qty},
	}
}

func TestServiceAddItemComputesSubtotal(t *testing.T) {
	t.Parallel()

	prod := fixtureProduct(4999, 10)
	products := map[uuid.UUID]*models.Product{prod.ID: prod}
	svc, err := NewService(newStubCartRepo(products), &stubProducts{products: products})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dto, err := svc.AddItem(context.Background(), "sess-1", prod.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if dto.ItemCount != 2 || dto.SubtotalCents != 9998 {
		t.Fatalf("unexpected cart %+v", dto)
	}

	dto, err = svc.AddItem(context.Background(), "sess-1", prod.ID, 1)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if dto.ItemCount != 3 || dto.SubtotalCents != 14997 {
		t.Fatalf("expected merged line, got %+v", dto)
	}
}

func TestServiceAddItemRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	prod := fixtureProduct(4999, 10)
	prod.IsActive = false
	products := map[uuid.UUID]*models.Product{prod.ID: prod}
	svc, err := NewService(newStubCartRepo(products), &stubProducts{products: products})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.AddItem(context.Background(), "sess-1", prod.ID, 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceAddItemRejectsInsufficientStock(t *testing.T) {
	t.Parallel()

	prod := fixtureProduct(4999, 1)
	products := map[uuid.UUID]*models.Product{prod.ID: prod}
	svc, err := NewService(newStubCartRepo(products), &stubProducts{products: products})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.AddItem(context.Background(), "sess-1", prod.ID, 3)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newStubCartRepo(nil), &stubProducts{products: map[uuid.UUID]*models.Product{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.AddItem(context.Background(), "sess-1", uuid.New(), 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceUpdateItemZeroRemovesLine(t *testing.T) {
	t.Parallel()

	prod := fixtureProduct(4999, 10)
	products := map[uuid.UUID]*models.Product{prod.ID: prod}
	svc, err := NewService(newStubCartRepo(products), &stubProducts{products: products})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.AddItem(context.Background(), "sess-1", prod.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	dto, err := svc.UpdateItem(context.Background(), "sess-1", prod.ID, 0)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", dto)
	}
}

func TestServiceUpdateItemMissingLine(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newStubCartRepo(nil), &stubProducts{products: map[uuid.UUID]*models.Product{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.UpdateItem(context.Background(), "sess-1", uuid.New(), 2)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
