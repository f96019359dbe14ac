package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender sends order confirmation emails through Sendgrid.
type EmailSender struct {
	client sendgridSender
	from   *mail.Email
}

// NewEmailSender builds the Sendgrid-backed sender. Returns nil when no API
// key is configured so the fanout can skip email entirely.
func NewEmailSender(cfg config.SendgridConfig) *EmailSender {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.FromEmail) == "" {
		return nil
	}
	return &EmailSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

// SendOrderConfirmation emails the customer their order summary.
func (e *EmailSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if e == nil {
		return nil
	}

	to := mail.NewEmail(order.CustomerName, order.CustomerEmail)
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	plain := confirmationText(order)
	message := mail.NewSingleEmail(e.from, subject, to, plain, confirmationHTML(order))

	resp, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send confirmation email")
	}
	if resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sendgrid returned %d", resp.StatusCode))
	}
	return nil
}

func confirmationText(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\nOrder %s\n\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s - %s\n", item.Qty, item.Name, dollars(item.TotalCents))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", dollars(order.SubtotalCents))
	if order.DiscountCents > 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", dollars(order.DiscountCents))
	}
	fmt.Fprintf(&b, "Tax: %s\n", dollars(order.TaxCents))
	if order.DeliveryFeeCents > 0 {
		fmt.Fprintf(&b, "Delivery: %s\n", dollars(order.DeliveryFeeCents))
	}
	fmt.Fprintf(&b, "Total: %s\n", dollars(order.TotalCents))
	if order.Dispatch != nil && order.Dispatch.TrackingURL != "" {
		fmt.Fprintf(&b, "\nTrack your delivery: %s\n", order.Dispatch.TrackingURL)
	}
	return b.String()
}

func confirmationHTML(order *models.Order) string {
	return "<pre>" + confirmationText(order) + "</pre>"
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
