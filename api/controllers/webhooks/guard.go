package webhooks

import (
	"context"
	"time"

	pkgredis "github.com/sandroescobar/lovemenow-sub001/pkg/redis"
)

const (
	webhookGuardScope = "stripe-webhook"
	webhookGuardTTL   = 7 * 24 * time.Hour
)

// EventGuard deduplicates webhook deliveries by event id. Stripe retries
// aggressively, so processed ids are remembered for a week.
type EventGuard struct {
	store pkgredis.IdempotencyStore
}

// NewEventGuard wraps the redis-backed guard.
func NewEventGuard(store pkgredis.IdempotencyStore) *EventGuard {
	if store == nil {
		return nil
	}
	return &EventGuard{store: store}
}

// CheckAndMark records the event id; it reports true when the event was
// already processed.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(webhookGuardScope, eventID), "1", webhookGuardTTL)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete forgets an event id so a failed handler can be retried.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(webhookGuardScope, eventID))
}
