package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/uber"
)

const (
	maxBookingRetries  = 2
	bookingBackoffBase = 500 * time.Millisecond
)

type courier interface {
	CreateDelivery(ctx context.Context, req uber.DeliveryRequest) (*uber.Delivery, error)
}

type dispatchRepo interface {
	CreateDispatch(ctx context.Context, dispatch *models.DeliveryDispatch) (*models.DeliveryDispatch, error)
}

// Coordinator books couriers for paid delivery orders. Booking is always
// best-effort from the caller's point of view: errors are returned so the
// caller can log and count them, but the order itself is already committed.
type Coordinator struct {
	courier courier
	repo    dispatchRepo
	origin  config.StoreOriginConfig
	logg    *logger.Logger
}

// NewCoordinator wires the courier client and dispatch persistence.
func NewCoordinator(courier courier, repo dispatchRepo, origin config.StoreOriginConfig, logg *logger.Logger) (*Coordinator, error) {
	if courier == nil {
		return nil, fmt.Errorf("courier client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Coordinator{
		courier: courier,
		repo:    repo,
		origin:  origin,
		logg:    logg,
	}, nil
}

// Dispatch books a courier for the order against its pinned delivery quote
// and persists the resulting dispatch record.
func (c *Coordinator) Dispatch(ctx context.Context, order *models.Order) (*models.DeliveryDispatch, error) {
	if order.DeliveryType != enums.DeliveryTypeDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a courier delivery")
	}
	if order.DeliveryQuoteID == nil || *order.DeliveryQuoteID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order carries no delivery quote")
	}
	if order.ShippingAddress == nil || order.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order carries no shipping address")
	}

	req := uber.DeliveryRequest{
		QuoteID:        *order.DeliveryQuoteID,
		PickupName:     c.origin.Name,
		PickupAddress:  c.origin.Address().Formatted(),
		DropoffName:    order.CustomerName,
		DropoffAddress: order.ShippingAddress.Formatted(),
		ManifestItems:  manifestFromOrder(order),
	}
	if c.origin.Phone != "" {
		req.PickupPhoneNumber = c.origin.Phone
	}
	if order.CustomerPhone != nil {
		req.DropoffPhoneNumber = *order.CustomerPhone
	}

	var delivery *uber.Delivery
	backoff := retry.WithMaxRetries(maxBookingRetries, retry.NewExponential(bookingBackoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		booked, bookErr := c.courier.CreateDelivery(ctx, req)
		if bookErr != nil {
			if pkgerrors.HasCode(bookErr, pkgerrors.CodeValidation) {
				return bookErr
			}
			return retry.RetryableError(bookErr)
		}
		delivery = booked
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "book courier delivery")
	}

	record := &models.DeliveryDispatch{
		OrderID:            order.ID,
		ExternalDeliveryID: delivery.ID,
		TrackingURL:        delivery.TrackingURL,
		Status:             parseStatus(delivery.Status),
	}
	saved, err := c.repo.CreateDispatch(ctx, record)
	if err != nil {
		// The courier is already booked; surface the id so support can
		// reconcile manually.
		c.logg.Error(ctx, fmt.Sprintf("courier %s booked but dispatch record failed", delivery.ID), err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispatch record")
	}
	return saved, nil
}

func manifestFromOrder(order *models.Order) []uber.ManifestItem {
	items := make([]uber.ManifestItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, uber.ManifestItem{
			Name:     item.Name,
			Quantity: item.Qty,
			Size:     "small",
		})
	}
	return items
}

func parseStatus(status string) enums.DispatchStatus {
	switch enums.DispatchStatus(status) {
	case enums.DispatchStatusPending,
		enums.DispatchStatusPickup,
		enums.DispatchStatusDropoff,
		enums.DispatchStatusDelivered,
		enums.DispatchStatusCanceled:
		return enums.DispatchStatus(status)
	default:
		return enums.DispatchStatusPending
	}
}
