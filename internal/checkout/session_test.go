package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = toString(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeKV) CheckoutSessionKey(sessionID, field string) string {
	return "lmn:checkout:" + sessionID + ":" + field
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		TaxRate:    "0.1",
		SessionTTL: 24 * time.Hour,
		QuoteTTL:   15 * time.Minute,
	}
}

func TestSessionStoreActiveIntent(t *testing.T) {
	t.Parallel()

	store, err := NewSessionStore(newFakeKV(), testCheckoutConfig())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	got, err := store.ActiveIntent(ctx, "sess-1")
	if err != nil || got != "" {
		t.Fatalf("expected empty intent, got %q %v", got, err)
	}

	if err := store.SetActiveIntent(ctx, "sess-1", "pi_123"); err != nil {
		t.Fatalf("set intent: %v", err)
	}
	got, err = store.ActiveIntent(ctx, "sess-1")
	if err != nil || got != "pi_123" {
		t.Fatalf("expected pi_123, got %q %v", got, err)
	}

	if err := store.ClearActiveIntent(ctx, "sess-1"); err != nil {
		t.Fatalf("clear intent: %v", err)
	}
	got, err = store.ActiveIntent(ctx, "sess-1")
	if err != nil || got != "" {
		t.Fatalf("expected cleared intent, got %q %v", got, err)
	}
}

func TestSessionStoreQuoteRoundTrip(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, err := NewSessionStore(kv, testCheckoutConfig())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	state := QuoteState{
		ID:       "dqt_123",
		FeeCents: 799,
		Currency: "usd",
		Dropoff: types.Address{
			Line1:      "123 Demo St",
			City:       "Miami",
			State:      "FL",
			PostalCode: "33130",
			Country:    "US",
		},
		ExpiresAt: time.Now().Add(10 * time.Minute).UTC(),
	}
	if err := store.SetQuote(ctx, "sess-1", state); err != nil {
		t.Fatalf("set quote: %v", err)
	}

	loaded, err := store.Quote(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if loaded == nil || loaded.ID != "dqt_123" || loaded.FeeCents != 799 {
		t.Fatalf("unexpected quote %+v", loaded)
	}
	if loaded.Dropoff.City != "Miami" {
		t.Fatalf("expected dropoff round trip, got %+v", loaded.Dropoff)
	}

	// TTL must not outlive the quote expiry.
	key := kv.CheckoutSessionKey("sess-1", "quote")
	if ttl := kv.ttls[key]; ttl > 10*time.Minute {
		t.Fatalf("expected ttl capped at quote expiry, got %s", ttl)
	}
}

func TestSessionStoreQuoteMissing(t *testing.T) {
	t.Parallel()

	store, err := NewSessionStore(newFakeKV(), testCheckoutConfig())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	quote, err := store.Quote(context.Background(), "sess-none")
	if err != nil || quote != nil {
		t.Fatalf("expected no quote, got %+v %v", quote, err)
	}
}

func TestSessionStoreReset(t *testing.T) {
	t.Parallel()

	store, err := NewSessionStore(newFakeKV(), testCheckoutConfig())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := store.SetActiveIntent(ctx, "sess-1", "pi_123"); err != nil {
		t.Fatalf("set intent: %v", err)
	}
	if err := store.SetDiscountCode(ctx, "sess-1", "LOVE10"); err != nil {
		t.Fatalf("set discount: %v", err)
	}
	if err := store.Reset(ctx, "sess-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	intent, _ := store.ActiveIntent(ctx, "sess-1")
	code, _ := store.DiscountCode(ctx, "sess-1")
	if intent != "" || code != "" {
		t.Fatalf("expected cleared state, got %q %q", intent, code)
	}
}

func TestQuoteStateExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fresh := QuoteState{ExpiresAt: now.Add(time.Minute)}
	stale := QuoteState{ExpiresAt: now.Add(-time.Minute)}
	open := QuoteState{}

	if fresh.Expired(now) {
		t.Fatalf("fresh quote reported expired")
	}
	if !stale.Expired(now) {
		t.Fatalf("stale quote reported fresh")
	}
	if open.Expired(now) {
		t.Fatalf("quote without expiry reported expired")
	}
}
