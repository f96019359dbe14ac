package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/sandroescobar/lovemenow-sub001/internal/discounts"
	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
	"github.com/sandroescobar/lovemenow-sub001/pkg/uber"
)

type stubCarts struct {
	lines []models.CartItem
}

func (s *stubCarts) ListBySession(_ context.Context, _ string) ([]models.CartItem, error) {
	return s.lines, nil
}

type stubDiscounts struct {
	dto *discounts.DiscountDTO
	err error
}

func (s *stubDiscounts) Validate(_ context.Context, code string, _ int64) (*discounts.DiscountDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.dto != nil {
		return s.dto, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("code %s not found", code))
}

type stubIntents struct {
	created         []*stripe.PaymentIntentCreateParams
	createDeadlines []bool
	canceled        []string
	cancelDeadlines []bool
	cancelErr       error
	nextID          int
}

func (s *stubIntents) Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	_, bounded := ctx.Deadline()
	s.createDeadlines = append(s.createDeadlines, bounded)
	s.created = append(s.created, params)
	s.nextID++
	return &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", s.nextID),
		ClientSecret: fmt.Sprintf("pi_%d_secret", s.nextID),
		Currency:     stripe.CurrencyUSD,
		Amount:       *params.Amount,
	}, nil
}

func (s *stubIntents) Retrieve(_ context.Context, id string, _ *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: id}, nil
}

func (s *stubIntents) Cancel(ctx context.Context, id string, _ *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	_, bounded := ctx.Deadline()
	s.cancelDeadlines = append(s.cancelDeadlines, bounded)
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	s.canceled = append(s.canceled, id)
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

type stubQuotes struct {
	quote *uber.Quote
	err   error
}

func (s *stubQuotes) CreateQuote(_ context.Context, _ uber.QuoteRequest) (*uber.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

type memSessions struct {
	intents map[string]string
	quotes  map[string]*QuoteState
	codes   map[string]string
}

func newMemSessions() *memSessions {
	return &memSessions{
		intents: map[string]string{},
		quotes:  map[string]*QuoteState{},
		codes:   map[string]string{},
	}
}

func (m *memSessions) ActiveIntent(_ context.Context, sessionID string) (string, error) {
	return m.intents[sessionID], nil
}

func (m *memSessions) SetActiveIntent(_ context.Context, sessionID, intentID string) error {
	m.intents[sessionID] = intentID
	return nil
}

func (m *memSessions) Quote(_ context.Context, sessionID string) (*QuoteState, error) {
	return m.quotes[sessionID], nil
}

func (m *memSessions) SetQuote(_ context.Context, sessionID string, state QuoteState) error {
	m.quotes[sessionID] = &state
	return nil
}

func (m *memSessions) DiscountCode(_ context.Context, sessionID string) (string, error) {
	return m.codes[sessionID], nil
}

func (m *memSessions) SetDiscountCode(_ context.Context, sessionID, code string) error {
	m.codes[sessionID] = code
	return nil
}

func (m *memSessions) ClearDiscountCode(_ context.Context, sessionID string) error {
	delete(m.codes, sessionID)
	return nil
}

type serviceFixture struct {
	carts     *stubCarts
	discounts *stubDiscounts
	intents   *stubIntents
	quotes    *stubQuotes
	sessions  *memSessions
	svc       Service
}

func cartLine(price int64, qty, stock int) models.CartItem {
	id := uuid.New()
	return models.CartItem{
		ProductID: id,
		Qty:       qty,
		Product: &models.Product{
			ID:         id,
			Slug:       fmt.Sprintf("item-%s", id.String()[:8]),
			Name:       "Item",
			PriceCents: price,
			IsActive:   true,
			Inventory:  &models.InventoryItem{ProductID: id, AvailableQty: stock},
		},
	}
}

func newFixture(t *testing.T, lines []models.CartItem) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		carts:     &stubCarts{lines: lines},
		discounts: &stubDiscounts{},
		intents:   &stubIntents{},
		quotes:    &stubQuotes{},
		sessions:  newMemSessions(),
	}
	svc, err := NewService(
		f.carts,
		f.discounts,
		f.intents,
		f.quotes,
		f.sessions,
		config.CheckoutConfig{TaxRate: "0.1", SessionTTL: time.Hour, QuoteTTL: 15 * time.Minute, ProviderTimeout: 5 * time.Second},
		config.StoreOriginConfig{Name: "LoveMeNow", Line1: "351 NE 1st Ave", City: "Miami", State: "FL", PostalCode: "33132", Country: "US"},
		nil,
		logger.New(logger.Options{Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func TestIssueIntentPickupTotals(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 2, 10)})

	dto, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerName:  "Demo Buyer",
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}

	if dto.Totals.SubtotalCents != 10000 || dto.Totals.TaxCents != 1000 || dto.Totals.TotalCents != 11000 {
		t.Fatalf("unexpected totals %+v", dto.Totals)
	}
	if dto.ClientSecret == "" || dto.PaymentIntentID == "" {
		t.Fatalf("expected intent identifiers, got %+v", dto)
	}
	if f.sessions.intents["sess-1"] != dto.PaymentIntentID {
		t.Fatalf("active intent not tracked")
	}

	params := f.intents.created[0]
	if *params.Amount != 11000 {
		t.Fatalf("unexpected charge amount %d", *params.Amount)
	}
	meta := params.Metadata
	if meta[MetaSessionID] != "sess-1" || meta[MetaDeliveryType] != "pickup" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta[MetaSubtotal] != "10000" || meta[MetaTax] != "1000" {
		t.Fatalf("unexpected amount metadata %+v", meta)
	}
}

func TestIssueIntentEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidCartState) {
		t.Fatalf("expected invalid cart state, got %v", err)
	}
	if len(f.intents.created) != 0 {
		t.Fatalf("no intent should have been created")
	}
}

func TestIssueIntentCancelsStaleIntent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	ctx := context.Background()
	input := IssueIntentInput{DeliveryType: enums.DeliveryTypePickup, CustomerEmail: "buyer@example.com"}

	first, err := f.svc.IssueIntent(ctx, "sess-1", input)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := f.svc.IssueIntent(ctx, "sess-1", input)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if first.PaymentIntentID == second.PaymentIntentID {
		t.Fatalf("expected a fresh intent")
	}
	if len(f.intents.canceled) != 1 || f.intents.canceled[0] != first.PaymentIntentID {
		t.Fatalf("expected first intent canceled, got %v", f.intents.canceled)
	}
	if f.sessions.intents["sess-1"] != second.PaymentIntentID {
		t.Fatalf("active intent should point at the replacement")
	}
}

func TestIssueIntentCancelFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.sessions.intents["sess-1"] = "pi_stale"
	f.intents.cancelErr = fmt.Errorf("stripe unavailable")

	dto, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}
	if dto.PaymentIntentID == "pi_stale" {
		t.Fatalf("expected replacement intent")
	}
}

func TestIssueIntentBoundsProviderCalls(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.sessions.intents["sess-1"] = "pi_stale"

	_, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}

	if len(f.intents.createDeadlines) != 1 || !f.intents.createDeadlines[0] {
		t.Fatalf("expected create call with a deadline, got %v", f.intents.createDeadlines)
	}
	if len(f.intents.cancelDeadlines) != 1 || !f.intents.cancelDeadlines[0] {
		t.Fatalf("expected cancel call with a deadline, got %v", f.intents.cancelDeadlines)
	}
}

func TestIssueIntentDeliveryRequiresQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})

	_, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypeDelivery,
		CustomerEmail: "buyer@example.com",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeQuoteExpired) {
		t.Fatalf("expected quote expired, got %v", err)
	}
}

func TestIssueIntentDeliveryExpiredQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.sessions.quotes["sess-1"] = &QuoteState{
		ID:        "dqt_old",
		FeeCents:  799,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	_, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypeDelivery,
		CustomerEmail: "buyer@example.com",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeQuoteExpired) {
		t.Fatalf("expected quote expired, got %v", err)
	}
}

func TestIssueIntentDeliveryIncludesFeeAndShipping(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.sessions.quotes["sess-1"] = &QuoteState{
		ID:       "dqt_123",
		FeeCents: 799,
		Dropoff: types.Address{
			Line1:      "123 Demo St",
			City:       "Miami",
			State:      "FL",
			PostalCode: "33130",
			Country:    "US",
		},
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	dto, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypeDelivery,
		CustomerName:  "Demo Buyer",
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}

	if dto.Totals.DeliveryFeeCents != 799 {
		t.Fatalf("expected delivery fee, got %+v", dto.Totals)
	}
	// subtotal 5000 + tax 500 + fee 799
	if dto.Totals.TotalCents != 6299 {
		t.Fatalf("expected total 6299, got %d", dto.Totals.TotalCents)
	}

	params := f.intents.created[0]
	if params.Shipping == nil || *params.Shipping.Address.City != "Miami" {
		t.Fatalf("expected shipping details on intent")
	}
	if params.Metadata[MetaQuoteID] != "dqt_123" {
		t.Fatalf("expected quote id metadata, got %+v", params.Metadata)
	}
}

func TestIssueIntentDropsInvalidDiscount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.sessions.codes["sess-1"] = "EXPIRED"
	f.discounts.err = pkgerrors.New(pkgerrors.CodeValidation, "discount code has expired")

	dto, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}
	if dto.Totals.DiscountCents != 0 {
		t.Fatalf("expected no discount, got %+v", dto.Totals)
	}
	if _, still := f.sessions.codes["sess-1"]; still {
		t.Fatalf("expected invalid code removed from session")
	}
}

func TestIssueIntentAppliesDiscount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 2, 10)})
	f.sessions.codes["sess-1"] = "LOVE10"
	f.discounts.dto = &discounts.DiscountDTO{Code: "LOVE10", DiscountCents: 1000}

	dto, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("issue intent: %v", err)
	}
	// subtotal 10000 - 1000, tax 10% of 9000
	if dto.Totals.DiscountCents != 1000 || dto.Totals.TaxCents != 900 || dto.Totals.TotalCents != 9900 {
		t.Fatalf("unexpected totals %+v", dto.Totals)
	}
	if f.intents.created[0].Metadata[MetaDiscountCode] != "LOVE10" {
		t.Fatalf("expected discount code metadata")
	}
}

func TestIssueIntentInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 5, 2)})

	_, err := f.svc.IssueIntent(context.Background(), "sess-1", IssueIntentInput{
		DeliveryType:  enums.DeliveryTypePickup,
		CustomerEmail: "buyer@example.com",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidCartState) {
		t.Fatalf("expected invalid cart state, got %v", err)
	}
}

func TestCreateDeliveryQuotePinsSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.quotes.quote = &uber.Quote{
		ID:        "dqt_123",
		FeeCents:  799,
		Currency:  "usd",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	dto, err := f.svc.CreateDeliveryQuote(context.Background(), "sess-1", types.Address{
		Line1:      "123 Demo St",
		City:       "Miami",
		State:      "FL",
		PostalCode: "33130",
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if dto.QuoteID != "dqt_123" || dto.FeeCents != 799 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if f.sessions.quotes["sess-1"] == nil || f.sessions.quotes["sess-1"].ID != "dqt_123" {
		t.Fatalf("expected quote pinned to session")
	}
}

func TestApplyDiscountStoresCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartItem{cartLine(5000, 1, 10)})
	f.discounts.dto = &discounts.DiscountDTO{Code: "LOVE10", DiscountCents: 500}

	dto, err := f.svc.ApplyDiscount(context.Background(), "sess-1", "love10")
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if dto.Code != "LOVE10" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if f.sessions.codes["sess-1"] != "LOVE10" {
		t.Fatalf("expected code stored on session")
	}
}
