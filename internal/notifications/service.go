package notifications

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
)

type emailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type slackNotifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order) error
}

// Service fans out order confirmations to every configured channel. Each
// channel is attempted even when another fails; the combined error is
// returned for logging only.
type Service struct {
	email emailSender
	slack slackNotifier
	logg  *logger.Logger
}

// NewService wires the configured channels. Nil channels are skipped.
func NewService(email *EmailSender, slack *SlackNotifier, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &Service{logg: logg}
	if email != nil {
		svc.email = email
	}
	if slack != nil {
		svc.slack = slack
	}
	return svc, nil
}

// OrderConfirmed notifies the customer and the fulfillment team.
func (s *Service) OrderConfirmed(ctx context.Context, order *models.Order) error {
	var errs error

	if s.email != nil {
		if err := s.email.SendOrderConfirmation(ctx, order); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("confirmation email for %s failed: %v", order.OrderNumber, err))
			errs = multierr.Append(errs, err)
		}
	}
	if s.slack != nil {
		if err := s.slack.NotifyNewOrder(ctx, order); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("slack alert for %s failed: %v", order.OrderNumber, err))
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
