package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	pkgredis "github.com/sandroescobar/lovemenow-sub001/pkg/redis"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

const (
	fieldActiveIntent = "active_intent"
	fieldQuote        = "quote"
	fieldDiscount     = "discount"
)

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(sessionID, field string) string
}

// QuoteState is the delivery quote pinned to a checkout session.
type QuoteState struct {
	ID        string        `json:"id"`
	FeeCents  int64         `json:"fee_cents"`
	Currency  string        `json:"currency"`
	Dropoff   types.Address `json:"dropoff"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the quote is past its validity window.
func (q QuoteState) Expired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}

// SessionStore keeps per-session checkout state in Redis: the currently
// active payment intent, the pinned delivery quote, and the applied
// discount code. All state expires with the session TTL.
type SessionStore struct {
	kv  kvStore
	cfg config.CheckoutConfig
}

// NewSessionStore builds the checkout session store.
func NewSessionStore(kv kvStore, cfg config.CheckoutConfig) (*SessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &SessionStore{kv: kv, cfg: cfg}, nil
}

// ActiveIntent returns the live payment intent id for the session, or ""
// when none is tracked.
func (s *SessionStore) ActiveIntent(ctx context.Context, sessionID string) (string, error) {
	value, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey(sessionID, fieldActiveIntent))
	if err != nil {
		if pkgredis.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("load active intent: %w", err)
	}
	return value, nil
}

// SetActiveIntent records the session's live payment intent id.
func (s *SessionStore) SetActiveIntent(ctx context.Context, sessionID, intentID string) error {
	return s.kv.Set(ctx, s.kv.CheckoutSessionKey(sessionID, fieldActiveIntent), intentID, s.cfg.SessionTTL)
}

// ClearActiveIntent drops the tracked intent id.
func (s *SessionStore) ClearActiveIntent(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey(sessionID, fieldActiveIntent))
}

// Quote returns the pinned delivery quote, or nil when none is stored.
func (s *SessionStore) Quote(ctx context.Context, sessionID string) (*QuoteState, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey(sessionID, fieldQuote))
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load quote: %w", err)
	}
	var state QuoteState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &state, nil
}

// SetQuote pins a delivery quote to the session until it expires.
func (s *SessionStore) SetQuote(ctx context.Context, sessionID string, state QuoteState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	ttl := s.cfg.QuoteTTL
	if !state.ExpiresAt.IsZero() {
		if until := time.Until(state.ExpiresAt); until > 0 && until < ttl {
			ttl = until
		}
	}
	return s.kv.Set(ctx, s.kv.CheckoutSessionKey(sessionID, fieldQuote), string(encoded), ttl)
}

// ClearQuote drops the pinned quote.
func (s *SessionStore) ClearQuote(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey(sessionID, fieldQuote))
}

// DiscountCode returns the applied promo code, or "" when none is set.
func (s *SessionStore) DiscountCode(ctx context.Context, sessionID string) (string, error) {
	value, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey(sessionID, fieldDiscount))
	if err != nil {
		if pkgredis.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("load discount code: %w", err)
	}
	return value, nil
}

// SetDiscountCode records the applied promo code for the session.
func (s *SessionStore) SetDiscountCode(ctx context.Context, sessionID, code string) error {
	return s.kv.Set(ctx, s.kv.CheckoutSessionKey(sessionID, fieldDiscount), code, s.cfg.SessionTTL)
}

// ClearDiscountCode drops the applied promo code.
func (s *SessionStore) ClearDiscountCode(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey(sessionID, fieldDiscount))
}

// Reset clears every piece of checkout state for the session. Used after an
// order is materialized.
func (s *SessionStore) Reset(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx,
		s.kv.CheckoutSessionKey(sessionID, fieldActiveIntent),
		s.kv.CheckoutSessionKey(sessionID, fieldQuote),
		s.kv.CheckoutSessionKey(sessionID, fieldDiscount),
	)
}
