package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

type webhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackNotifier posts new-order alerts to the store's Slack channel.
type SlackNotifier struct {
	webhookURL string
	post       webhookPoster
}

// NewSlackNotifier builds the webhook notifier. Returns nil when no webhook
// is configured so the fanout can skip Slack entirely.
func NewSlackNotifier(cfg config.SlackConfig) *SlackNotifier {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		post:       slack.PostWebhookContext,
	}
}

// NotifyNewOrder posts a short order summary for the fulfillment team.
func (s *SlackNotifier) NotifyNewOrder(ctx context.Context, order *models.Order) error {
	if s == nil {
		return nil
	}

	msg := &slack.WebhookMessage{
		Text: orderSummary(order),
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "post slack webhook")
	}
	return nil
}

func orderSummary(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":tada: New order *%s* (%s) for %s\n", order.OrderNumber, order.DeliveryType, dollars(order.TotalCents))
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %d x %s\n", item.Qty, item.Name)
	}
	if order.DeliveryType == enums.DeliveryTypeDelivery {
		if order.Dispatch != nil {
			fmt.Fprintf(&b, "Courier booked: %s\n", order.Dispatch.ExternalDeliveryID)
		} else {
			b.WriteString("Courier not booked yet\n")
		}
	}
	return b.String()
}
