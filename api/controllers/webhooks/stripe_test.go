package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	ordersvc "github.com/sandroescobar/lovemenow-sub001/internal/orders"
)

func TestStripeWebhookMaterializesAndDeduplicates(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded)
	orders := &fakeMaterializer{}
	guard := NewEventGuard(newInMemoryStore())
	handler := Stripe(orders, &fakeSigningClient{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if orders.calls != 1 {
		t.Fatalf("expected one materialization, got %d", orders.calls)
	}
	if orders.lastInput.PaymentIntentID != "pi_webhook_1" {
		t.Fatalf("unexpected intent id %q", orders.lastInput.PaymentIntentID)
	}
	if orders.lastInput.Source != "webhook" {
		t.Fatalf("unexpected source %q", orders.lastInput.Source)
	}

	// Replay the same delivery
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req2.Header.Set("Stripe-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if orders.calls != 1 {
		t.Fatalf("duplicate delivery should not be processed, call count %d", orders.calls)
	}
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentCanceled)
	orders := &fakeMaterializer{}
	handler := Stripe(orders, &fakeSigningClient{secret: "whsec_test"}, NewEventGuard(newInMemoryStore()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if orders.calls != 0 {
		t.Fatalf("unrelated events should not be materialized")
	}
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded)
	orders := &fakeMaterializer{}
	handler := Stripe(orders, &fakeSigningClient{secret: "whsec_test"}, NewEventGuard(newInMemoryStore()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if orders.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestStripeWebhookReleasesGuardOnFailure(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded)
	orders := &fakeMaterializer{err: errors.New("db down")}
	guard := NewEventGuard(newInMemoryStore())
	handler := Stripe(orders, &fakeSigningClient{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	// Stripe retries the delivery and processing succeeds this time.
	orders.err = nil
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req2.Header.Set("Stripe-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if orders.calls != 2 {
		t.Fatalf("expected retry to reach the service, call count %d", orders.calls)
	}
}

func buildSignedEvent(t *testing.T, eventType stripe.EventType) ([]byte, string) {
	t.Helper()

	intent := &stripe.PaymentIntent{
		ID:     "pi_webhook_1",
		Amount: 11000,
		Status: stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{
			"session_id":    "sess-webhook",
			"delivery_type": "pickup",
		},
	}
	rawIntent, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_test_1",
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawIntent,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	header := buildStripeSignatureHeader(payload, "whsec_test", time.Now().Unix())
	return payload, header
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeMaterializer struct {
	calls     int
	lastInput ordersvc.MaterializeInput
	err       error
}

func (f *fakeMaterializer) Materialize(ctx context.Context, input ordersvc.MaterializeInput) (*ordersvc.OrderDTO, error) {
	f.calls++
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &ordersvc.OrderDTO{OrderNumber: "LMN-20260901-TEST"}, nil
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		data: make(map[string]string),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("lmn:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
