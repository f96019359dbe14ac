package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/sandroescobar/lovemenow-sub001/internal/discounts"
	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/metrics"
	pkgstripe "github.com/sandroescobar/lovemenow-sub001/pkg/stripe"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
	"github.com/sandroescobar/lovemenow-sub001/pkg/uber"
)

type cartReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.CartItem, error)
}

type discountValidator interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*discounts.DiscountDTO, error)
}

type quoteProvider interface {
	CreateQuote(ctx context.Context, req uber.QuoteRequest) (*uber.Quote, error)
}

type sessionState interface {
	ActiveIntent(ctx context.Context, sessionID string) (string, error)
	SetActiveIntent(ctx context.Context, sessionID, intentID string) error
	Quote(ctx context.Context, sessionID string) (*QuoteState, error)
	SetQuote(ctx context.Context, sessionID string, state QuoteState) error
	DiscountCode(ctx context.Context, sessionID string) (string, error)
	SetDiscountCode(ctx context.Context, sessionID, code string) error
	ClearDiscountCode(ctx context.Context, sessionID string) error
}

// IssueIntentInput is the validated payload to start a payment.
type IssueIntentInput struct {
	DeliveryType  enums.DeliveryType
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// IntentDTO is returned to the client to drive card confirmation.
type IntentDTO struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Currency        string `json:"currency"`
	Totals          Totals `json:"totals"`
}

// QuoteDTO describes a pinned delivery quote.
type QuoteDTO struct {
	QuoteID   string `json:"quote_id"`
	FeeCents  int64  `json:"fee_cents"`
	Currency  string `json:"currency"`
	ExpiresAt string `json:"expires_at"`
}

// Service drives the checkout flow: delivery quotes, discounts, and
// payment intent issuance.
type Service interface {
	CreateDeliveryQuote(ctx context.Context, sessionID string, dropoff types.Address) (*QuoteDTO, error)
	ApplyDiscount(ctx context.Context, sessionID, code string) (*discounts.DiscountDTO, error)
	RemoveDiscount(ctx context.Context, sessionID string) error
	IssueIntent(ctx context.Context, sessionID string, input IssueIntentInput) (*IntentDTO, error)
}

type service struct {
	carts     cartReader
	discounts discountValidator
	intents   pkgstripe.PaymentIntentClient
	quotes    quoteProvider
	sessions  sessionState
	cfg       config.CheckoutConfig
	origin    config.StoreOriginConfig
	taxRate   decimal.Decimal
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the checkout service.
func NewService(
	carts cartReader,
	discountSvc discountValidator,
	intents pkgstripe.PaymentIntentClient,
	quotes quoteProvider,
	sessions sessionState,
	cfg config.CheckoutConfig,
	origin config.StoreOriginConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if discountSvc == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if intents == nil {
		return nil, fmt.Errorf("payment intent client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	taxRate, err := ParseTaxRate(cfg.TaxRate)
	if err != nil {
		return nil, err
	}
	return &service{
		carts:     carts,
		discounts: discountSvc,
		intents:   intents,
		quotes:    quotes,
		sessions:  sessions,
		cfg:       cfg,
		origin:    origin,
		taxRate:   taxRate,
		metrics:   checkoutMetrics,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// CreateDeliveryQuote fetches a courier quote for the dropoff address and
// pins it to the session.
func (s *service) CreateDeliveryQuote(ctx context.Context, sessionID string, dropoff types.Address) (*QuoteDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if s.quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery quotes are not configured")
	}
	if dropoff.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff address is required")
	}

	quote, err := s.quotes.CreateQuote(ctx, uber.QuoteRequest{
		PickupAddress:  s.pickupAddress(),
		DropoffAddress: dropoff.Formatted(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request delivery quote")
	}

	state := QuoteState{
		ID:        quote.ID,
		FeeCents:  quote.FeeCents,
		Currency:  quote.Currency,
		Dropoff:   dropoff,
		ExpiresAt: quote.ExpiresAt,
	}
	if err := s.sessions.SetQuote(ctx, sessionID, state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin delivery quote")
	}

	dto := &QuoteDTO{QuoteID: quote.ID, FeeCents: quote.FeeCents, Currency: quote.Currency}
	if !quote.ExpiresAt.IsZero() {
		dto.ExpiresAt = quote.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return dto, nil
}

// ApplyDiscount validates the promo code against the current cart and
// stores it on the session.
func (s *service) ApplyDiscount(ctx context.Context, sessionID, code string) (*discounts.DiscountDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	lines, err := s.carts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	subtotal, err := Subtotal(lines)
	if err != nil {
		return nil, err
	}

	dto, err := s.discounts.Validate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetDiscountCode(ctx, sessionID, dto.Code); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store discount code")
	}
	return dto, nil
}

// RemoveDiscount drops any applied promo code.
func (s *service) RemoveDiscount(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	return s.sessions.ClearDiscountCode(ctx, sessionID)
}

// IssueIntent computes totals server-side and creates a new payment intent
// for the session. Any previously issued live intent is canceled first so a
// session never carries more than one.
func (s *service) IssueIntent(ctx context.Context, sessionID string, input IssueIntentInput) (*IntentDTO, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if !input.DeliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery type must be delivery or pickup")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	ctx = s.logg.WithSessionID(ctx, sessionID)

	lines, err := s.carts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	subtotal, err := Subtotal(lines)
	if err != nil {
		return nil, err
	}
	if err := checkStock(lines); err != nil {
		return nil, err
	}

	discountCents, discountCode := s.resolveDiscount(ctx, sessionID, subtotal)

	var feeCents int64
	var quote *QuoteState
	if input.DeliveryType == enums.DeliveryTypeDelivery {
		quote, err = s.sessions.Quote(ctx, sessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery quote")
		}
		if quote == nil {
			return nil, pkgerrors.New(pkgerrors.CodeQuoteExpired, "no delivery quote for this session")
		}
		if quote.Expired(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeQuoteExpired, "delivery quote has expired")
		}
		feeCents = quote.FeeCents
	}

	totals := ComputeTotals(subtotal, discountCents, feeCents, s.taxRate)

	s.cancelStaleIntent(ctx, sessionID)

	params := &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(totals.TotalCents),
		Currency:           stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ReceiptEmail:       stripe.String(input.CustomerEmail),
	}
	params.AddMetadata(MetaSessionID, sessionID)
	params.AddMetadata(MetaDeliveryType, input.DeliveryType.String())
	params.AddMetadata(MetaSubtotal, strconv.FormatInt(totals.SubtotalCents, 10))
	params.AddMetadata(MetaDiscount, strconv.FormatInt(totals.DiscountCents, 10))
	params.AddMetadata(MetaTax, strconv.FormatInt(totals.TaxCents, 10))
	params.AddMetadata(MetaDeliveryFee, strconv.FormatInt(totals.DeliveryFeeCents, 10))
	if discountCode != "" {
		params.AddMetadata(MetaDiscountCode, discountCode)
	}
	if quote != nil {
		params.AddMetadata(MetaQuoteID, quote.ID)
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:  stripe.String(input.CustomerName),
			Phone: stripe.String(input.CustomerPhone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(quote.Dropoff.Line1),
				Line2:      stripe.String(quote.Dropoff.Line2),
				City:       stripe.String(quote.Dropoff.City),
				State:      stripe.String(quote.Dropoff.State),
				PostalCode: stripe.String(quote.Dropoff.PostalCode),
				Country:    stripe.String(quote.Dropoff.Country),
			},
		}
	}

	createCtx, cancel := s.providerCtx(ctx)
	intent, err := s.intents.Create(createCtx, params)
	cancel()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if err := s.sessions.SetActiveIntent(ctx, sessionID, intent.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track active intent")
	}

	s.metrics.IncIntentIssued(input.DeliveryType.String())
	s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent issued")

	return &IntentDTO{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Currency:        string(intent.Currency),
		Totals:          totals,
	}, nil
}

// resolveDiscount re-validates any stored code against the live subtotal.
// A code that stopped validating is dropped from the session rather than
// failing the checkout.
func (s *service) resolveDiscount(ctx context.Context, sessionID string, subtotal int64) (int64, string) {
	code, err := s.sessions.DiscountCode(ctx, sessionID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("load discount code: %v", err))
		return 0, ""
	}
	if code == "" {
		return 0, ""
	}

	dto, err := s.discounts.Validate(ctx, code, subtotal)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("discount %q no longer valid, removing: %v", code, err))
		if clearErr := s.sessions.ClearDiscountCode(ctx, sessionID); clearErr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("clear discount code: %v", clearErr))
		}
		return 0, ""
	}
	return dto.DiscountCents, dto.Code
}

// cancelStaleIntent cancels the previous live intent, best-effort. A failed
// cancel never blocks issuing the replacement; Stripe rejects confirmation
// of canceled intents and the active pointer is overwritten either way.
func (s *service) cancelStaleIntent(ctx context.Context, sessionID string) {
	stale, err := s.sessions.ActiveIntent(ctx, sessionID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("load active intent: %v", err))
		return
	}
	if stale == "" {
		return
	}

	cancelCtx, cancel := s.providerCtx(ctx)
	_, err = s.intents.Cancel(cancelCtx, stale, &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String("duplicate"),
	})
	cancel()
	if err != nil {
		s.logg.Warn(s.logg.WithPaymentIntentID(ctx, stale), fmt.Sprintf("cancel stale intent: %v", err))
		return
	}
	s.metrics.IncIntentCanceled()
	s.logg.Info(s.logg.WithPaymentIntentID(ctx, stale), "stale payment intent canceled")
}

// providerCtx bounds an outbound provider call with the configured timeout.
func (s *service) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ProviderTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.ProviderTimeout)
}

func (s *service) pickupAddress() string {
	return s.origin.Address().Formatted()
}

func checkStock(lines []models.CartItem) error {
	for _, line := range lines {
		if line.Product == nil || line.Product.Inventory == nil {
			continue
		}
		if line.Product.Inventory.AvailableQty < line.Qty {
			return pkgerrors.New(pkgerrors.CodeInvalidCartState,
				fmt.Sprintf("not enough stock for %s", line.Product.Slug))
		}
	}
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
