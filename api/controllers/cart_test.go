package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/api/middleware"
	cartsvc "github.com/sandroescobar/lovemenow-sub001/internal/cart"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

type stubCartService struct {
	dto       *cartsvc.CartDTO
	err       error
	sessionID string
	productID uuid.UUID
	qty       int
}

func (s *stubCartService) GetCart(ctx context.Context, sessionID string) (*cartsvc.CartDTO, error) {
	s.sessionID = sessionID
	return s.dto, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*cartsvc.CartDTO, error) {
	s.sessionID = sessionID
	s.productID = productID
	s.qty = qty
	return s.dto, s.err
}

func (s *stubCartService) UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*cartsvc.CartDTO, error) {
	s.sessionID = sessionID
	s.productID = productID
	s.qty = qty
	return s.dto, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.sessionID = sessionID
	s.productID = productID
	return s.dto, s.err
}

func (s *stubCartService) ClearCart(ctx context.Context, sessionID string) error {
	s.sessionID = sessionID
	return s.err
}

func withSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
}

func TestAddCartItemSuccess(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{dto: &cartsvc.CartDTO{ItemCount: 2, SubtotalCents: 5000}}
	handler := AddCartItem(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"qty":2}`, productID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body))
	req = withSession(req, "sess-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.sessionID != "sess-1" {
		t.Fatalf("expected session forwarded, got %q", svc.sessionID)
	}
	if svc.productID != productID || svc.qty != 2 {
		t.Fatalf("unexpected service input %s qty %d", svc.productID, svc.qty)
	}
}

func TestAddCartItemRejectsBadBody(t *testing.T) {
	svc := &stubCartService{}
	handler := AddCartItem(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"qty":2}`))
	req = withSession(req, "sess-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateCartItemRejectsBadProductID(t *testing.T) {
	svc := &stubCartService{}
	handler := UpdateCartItem(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/not-a-uuid", bytes.NewBufferString(`{"qty":1}`))
	req = withSession(req, "sess-1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetCartSurfacesServiceError(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "missing")}
	handler := GetCart(svc, nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestClearCart(t *testing.T) {
	svc := &stubCartService{}
	handler := ClearCart(svc, nil)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.(map[string]any)["cleared"] != true {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}
