package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records payment intent and order materialization activity.
type CheckoutMetrics struct {
	intentsIssued   *prometheus.CounterVec
	intentsCanceled prometheus.Counter
	ordersCreated   *prometheus.CounterVec
	duplicateOrders prometheus.Counter
	dispatchFailed  prometheus.Counter
	confirmLatency  prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intentsIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_intents_issued",
		Help: "Payment intents issued, by delivery type.",
	}, []string{"delivery_type"})
	intentsCanceled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_intents_canceled",
		Help: "Stale payment intents canceled before reissue.",
	})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_created",
		Help: "Orders materialized from completed payments, by source.",
	}, []string{"source"})
	duplicateOrders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_duplicate_confirmations",
		Help: "Confirmations that resolved to an already materialized order.",
	})
	dispatchFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_dispatch_failures",
		Help: "Courier dispatch attempts that failed after an order was created.",
	})
	confirmLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_duration_seconds",
		Help:    "Duration of order materialization in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(intentsIssued, intentsCanceled, ordersCreated, duplicateOrders, dispatchFailed, confirmLatency)
	return &CheckoutMetrics{
		intentsIssued:   intentsIssued,
		intentsCanceled: intentsCanceled,
		ordersCreated:   ordersCreated,
		duplicateOrders: duplicateOrders,
		dispatchFailed:  dispatchFailed,
		confirmLatency:  confirmLatency,
	}
}

// IncIntentIssued increments the issued counter for the delivery type.
func (c *CheckoutMetrics) IncIntentIssued(deliveryType string) {
	if c == nil || c.intentsIssued == nil {
		return
	}
	c.intentsIssued.WithLabelValues(normalizeLabel(deliveryType)).Inc()
}

// IncIntentCanceled increments the stale intent cancellation counter.
func (c *CheckoutMetrics) IncIntentCanceled() {
	if c == nil || c.intentsCanceled == nil {
		return
	}
	c.intentsCanceled.Inc()
}

// IncOrderCreated increments the order counter for the named source.
func (c *CheckoutMetrics) IncOrderCreated(source string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncDuplicateConfirmation increments the duplicate confirmation counter.
func (c *CheckoutMetrics) IncDuplicateConfirmation() {
	if c == nil || c.duplicateOrders == nil {
		return
	}
	c.duplicateOrders.Inc()
}

// IncDispatchFailure increments the dispatch failure counter.
func (c *CheckoutMetrics) IncDispatchFailure() {
	if c == nil || c.dispatchFailed == nil {
		return
	}
	c.dispatchFailed.Inc()
}

// ObserveConfirmDuration records how long a materialization took.
func (c *CheckoutMetrics) ObserveConfirmDuration(duration time.Duration) {
	if c == nil || c.confirmLatency == nil {
		return
	}
	c.confirmLatency.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
