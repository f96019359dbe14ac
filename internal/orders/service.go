package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/internal/checkout"
	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/metrics"
	pkgstripe "github.com/sandroescobar/lovemenow-sub001/pkg/stripe"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

const orderNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.CartItem, error)
	Clear(ctx context.Context, sessionID string) error
}

type inventoryAdjuster interface {
	DecrementStockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
}

type sessionResetter interface {
	Reset(ctx context.Context, sessionID string) error
}

// Dispatcher books a courier for a delivery order. Implementations persist
// their own dispatch record and return it.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *models.Order) (*models.DeliveryDispatch, error)
}

// Notifier fans out order confirmations. Failures must never fail the order.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
}

// MaterializeInput identifies the payment to turn into an order.
type MaterializeInput struct {
	PaymentIntentID string
	// SessionID is a fallback when intent metadata is missing it; the
	// metadata value wins.
	SessionID string
	// Source labels the caller for metrics: "confirm" or "webhook".
	Source string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Service materializes succeeded payments into durable orders.
type Service interface {
	Materialize(ctx context.Context, input MaterializeInput) (*OrderDTO, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderDTO, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	intents  pkgstripe.PaymentIntentClient
	carts    cartStore
	stock    inventoryAdjuster
	sessions sessionResetter
	dispatch Dispatcher
	notify   Notifier
	cfg      config.CheckoutConfig
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order materializer with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	intents pkgstripe.PaymentIntentClient,
	carts cartStore,
	stock inventoryAdjuster,
	sessions sessionResetter,
	dispatch Dispatcher,
	notify Notifier,
	cfg config.CheckoutConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if intents == nil {
		return nil, fmt.Errorf("payment intent client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session resetter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		intents:  intents,
		carts:    carts,
		stock:    stock,
		sessions: sessions,
		dispatch: dispatch,
		notify:   notify,
		cfg:      cfg,
		metrics:  checkoutMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Materialize turns a succeeded payment intent into exactly one order. The
// call is idempotent on payment intent id: repeats and concurrent calls all
// resolve to the same order.
func (s *service) Materialize(ctx context.Context, input MaterializeInput) (*OrderDTO, error) {
	intentID := strings.TrimSpace(input.PaymentIntentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	started := s.now()
	ctx = s.logg.WithPaymentIntentID(ctx, intentID)

	// Fast path: already materialized.
	if existing, err := s.repo.FindByPaymentIntentID(ctx, intentID); err == nil {
		s.metrics.IncDuplicateConfirmation()
		s.logg.Info(ctx, "payment already materialized, returning existing order")
		return NewOrderDTO(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up order")
	}

	retrieveCtx, cancel := s.providerCtx(ctx)
	intent, err := s.intents.Retrieve(retrieveCtx, intentID, nil)
	cancel()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete,
			fmt.Sprintf("payment intent status is %s", intent.Status))
	}

	sessionID := intent.Metadata[checkout.MetaSessionID]
	if sessionID == "" {
		sessionID = input.SessionID
	}
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent carries no session")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	lines, err := s.carts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(lines) == 0 {
		// A confirm call racing the webhook can observe the winner's
		// session cleanup before its own lookup; only surface the cart
		// error when no order exists for this intent.
		if existing := s.concurrentOrder(ctx, intentID); existing != nil {
			return NewOrderDTO(existing), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCartState, "no cart found for this payment")
	}

	breakdown, err := s.verifyAmounts(intent, lines)
	if err != nil {
		if existing := s.concurrentOrder(ctx, intentID); existing != nil {
			return NewOrderDTO(existing), nil
		}
		return nil, err
	}

	order, err := s.buildOrder(intent, input, lines, breakdown)
	if err != nil {
		return nil, err
	}

	created, alreadyExisted, err := s.persistOrder(ctx, order, lines)
	if err != nil {
		return nil, err
	}
	if alreadyExisted {
		// Another caller committed this intent first: its side effects
		// already ran, so the loser must not re-dispatch or re-notify.
		return NewOrderDTO(created), nil
	}

	// Post-commit side effects are best-effort: the paid order stands even
	// when courier booking, notifications, or session cleanup fail.
	s.cleanupSession(ctx, sessionID)
	s.dispatchDelivery(ctx, created)
	s.notifyConfirmed(ctx, created)

	s.metrics.IncOrderCreated(input.Source)
	s.metrics.ObserveConfirmDuration(s.now().Sub(started))
	s.logg.Info(s.logg.WithOrderNumber(ctx, created.OrderNumber), "order materialized")

	return NewOrderDTO(created), nil
}

// GetByOrderNumber returns a single order for the confirmation page.
func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderDTO, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(order), nil
}

type amountBreakdown struct {
	subtotal int64
	discount int64
	tax      int64
	fee      int64
	total    int64
}

// verifyAmounts recomputes the subtotal from the live cart and checks that
// the intent's charged amount matches the breakdown stamped at issue time.
func (s *service) verifyAmounts(intent *stripe.PaymentIntent, lines []models.CartItem) (*amountBreakdown, error) {
	subtotal, err := checkout.Subtotal(lines)
	if err != nil {
		return nil, err
	}

	meta := intent.Metadata
	metaSubtotal := parseCents(meta[checkout.MetaSubtotal])
	discount := parseCents(meta[checkout.MetaDiscount])
	tax := parseCents(meta[checkout.MetaTax])
	fee := parseCents(meta[checkout.MetaDeliveryFee])

	if metaSubtotal != subtotal {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch,
			fmt.Sprintf("cart subtotal %d does not match charged subtotal %d", subtotal, metaSubtotal))
	}

	expected := subtotal - discount + tax + fee
	if diff := expected - intent.Amount; diff > s.cfg.AmountToleranceCts || diff < -s.cfg.AmountToleranceCts {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch,
			fmt.Sprintf("charged amount %d does not match expected %d", intent.Amount, expected))
	}

	return &amountBreakdown{
		subtotal: subtotal,
		discount: discount,
		tax:      tax,
		fee:      fee,
		total:    intent.Amount,
	}, nil
}

func (s *service) buildOrder(intent *stripe.PaymentIntent, input MaterializeInput, lines []models.CartItem, amounts *amountBreakdown) (*models.Order, error) {
	deliveryType, err := enums.ParseDeliveryType(intent.Metadata[checkout.MetaDeliveryType])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent carries no delivery type")
	}

	order := &models.Order{
		PaymentIntentID:             intent.ID,
		Status:                      enums.OrderStatusConfirmed,
		PaymentStatus:               enums.PaymentStatusPaid,
		PaymentIntentStatusAtCreate: string(intent.Status),
		DeliveryType:                deliveryType,
		SubtotalCents:               amounts.subtotal,
		TaxCents:                    amounts.tax,
		DeliveryFeeCents:            amounts.fee,
		DiscountCents:               amounts.discount,
		TotalCents:                  amounts.total,
		Currency:                    string(intent.Currency),
		CustomerName:                input.CustomerName,
		CustomerEmail:               input.CustomerEmail,
	}

	if code := intent.Metadata[checkout.MetaDiscountCode]; code != "" {
		order.DiscountCode = &code
	}
	if quoteID := intent.Metadata[checkout.MetaQuoteID]; quoteID != "" {
		order.DeliveryQuoteID = &quoteID
	}
	if intent.ReceiptEmail != "" {
		order.CustomerEmail = intent.ReceiptEmail
	}
	if intent.Shipping != nil {
		if intent.Shipping.Name != "" {
			order.CustomerName = intent.Shipping.Name
		}
		if intent.Shipping.Phone != "" {
			phone := intent.Shipping.Phone
			order.CustomerPhone = &phone
		}
		if addr := intent.Shipping.Address; addr != nil {
			order.ShippingAddress = &types.Address{
				Line1:      addr.Line1,
				Line2:      addr.Line2,
				City:       addr.City,
				State:      addr.State,
				PostalCode: addr.PostalCode,
				Country:    addr.Country,
			}
		}
	}
	if order.CustomerPhone == nil && input.CustomerPhone != "" {
		phone := input.CustomerPhone
		order.CustomerPhone = &phone
	}
	if order.CustomerEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if order.CustomerName == "" {
		order.CustomerName = order.CustomerEmail
	}

	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Product.Name,
			UnitPriceCents: line.Product.PriceCents,
			Qty:            line.Qty,
			TotalCents:     line.Product.PriceCents * int64(line.Qty),
		})
	}

	return order, nil
}

// persistOrder writes the order and its items in one transaction and
// decrements inventory. The unique index on payment_intent_id is the final
// arbiter under concurrency: on a duplicate insert the already-committed
// order is returned with alreadyExisted true so the caller skips side
// effects the winner already ran.
func (s *service) persistOrder(ctx context.Context, order *models.Order, lines []models.CartItem) (created *models.Order, alreadyExisted bool, err error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = GenerateOrderNumber(s.now())

		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			row, err := txRepo.Create(ctx, order)
			if err != nil {
				return err
			}
			created = row

			for _, line := range lines {
				applied, err := s.stock.DecrementStockTx(ctx, tx, line.ProductID, line.Qty)
				if err != nil {
					return err
				}
				if !applied {
					// Oversell after payment: keep the order, flag for
					// manual restock.
					s.logg.Warn(ctx, fmt.Sprintf("insufficient stock for product %s, order kept", line.ProductID))
				}
			}
			return nil
		})
		if err == nil {
			return created, false, nil
		}

		if db.IsUniqueViolation(err, "uq_orders_payment_intent_id") {
			s.metrics.IncDuplicateConfirmation()
			existing, findErr := s.repo.FindByPaymentIntentID(ctx, order.PaymentIntentID)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load concurrent order")
			}
			s.logg.Info(ctx, "concurrent materialization detected, returning existing order")
			return existing, true, nil
		}
		if db.IsUniqueViolation(err, "uq_orders_order_number") {
			continue
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}

// concurrentOrder re-checks for an order another caller committed after the
// fast path missed. Returns nil when none exists.
func (s *service) concurrentOrder(ctx context.Context, intentID string) *models.Order {
	existing, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil
	}
	s.metrics.IncDuplicateConfirmation()
	s.logg.Info(ctx, "payment already materialized, returning existing order")
	return existing
}

// providerCtx bounds an outbound provider call with the configured timeout.
func (s *service) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ProviderTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.ProviderTimeout)
}

func (s *service) cleanupSession(ctx context.Context, sessionID string) {
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("clear cart: %v", err))
	}
	if err := s.sessions.Reset(ctx, sessionID); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("reset checkout session: %v", err))
	}
}

func (s *service) dispatchDelivery(ctx context.Context, order *models.Order) {
	if order.DeliveryType != enums.DeliveryTypeDelivery || s.dispatch == nil {
		return
	}
	dispatch, err := s.dispatch.Dispatch(ctx, order)
	if err != nil {
		s.metrics.IncDispatchFailure()
		s.logg.Error(ctx, "courier dispatch failed, order kept", err)
		return
	}
	order.Dispatch = dispatch
}

func (s *service) notifyConfirmed(ctx context.Context, order *models.Order) {
	if s.notify == nil {
		return
	}
	if err := s.notify.OrderConfirmed(ctx, order); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("order notifications failed: %v", err))
	}
}

func parseCents(value string) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
