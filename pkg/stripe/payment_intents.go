package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
)

// PaymentIntentClient exposes the subset of Stripe payment-intent operations
// the checkout flow requires.
type PaymentIntentClient interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	Retrieve(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type paymentIntentWrapper struct {
	api *stripe.Client
}

// NewPaymentIntentClient wraps the initialized Stripe client so the checkout
// service can be tested against a stub.
func NewPaymentIntentClient(api *Client) PaymentIntentClient {
	if api == nil || api.API() == nil {
		return nil
	}
	return &paymentIntentWrapper{api: api.API()}
}

func (w *paymentIntentWrapper) Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Create(ctx, params)
}

func (w *paymentIntentWrapper) Retrieve(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Retrieve(ctx, id, params)
}

func (w *paymentIntentWrapper) Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Cancel(ctx, id, params)
}
