package controllers

import (
	"net/http"

	"github.com/sandroescobar/lovemenow-sub001/api/middleware"
	"github.com/sandroescobar/lovemenow-sub001/api/responses"
	"github.com/sandroescobar/lovemenow-sub001/api/validators"
	checkoutsvc "github.com/sandroescobar/lovemenow-sub001/internal/checkout"
	"github.com/sandroescobar/lovemenow-sub001/pkg/enums"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

type deliveryQuoteRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country,omitempty"`
}

type discountRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

type paymentIntentRequest struct {
	DeliveryType  string `json:"delivery_type" validate:"required,oneof=delivery pickup"`
	CustomerName  string `json:"customer_name,omitempty" validate:"omitempty,max=128"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
}

// CreateDeliveryQuote fetches a courier quote for the shopper's dropoff
// address and pins it to the session.
func CreateDeliveryQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deliveryQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		country := payload.Country
		if country == "" {
			country = "US"
		}
		dto, err := svc.CreateDeliveryQuote(r.Context(), middleware.SessionIDFromContext(r.Context()), types.Address{
			Line1:      payload.Line1,
			Line2:      payload.Line2,
			City:       payload.City,
			State:      payload.State,
			PostalCode: payload.PostalCode,
			Country:    country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ApplyDiscount validates a promo code and stores it on the session.
func ApplyDiscount(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.ApplyDiscount(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// RemoveDiscount drops any promo code applied to the session.
func RemoveDiscount(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.RemoveDiscount(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// CreatePaymentIntent computes totals server-side and issues a new payment
// intent for the session's cart.
func CreatePaymentIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryType, err := enums.ParseDeliveryType(payload.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delivery type must be delivery or pickup"))
			return
		}

		dto, err := svc.IssueIntent(r.Context(), middleware.SessionIDFromContext(r.Context()), checkoutsvc.IssueIntentInput{
			DeliveryType:  deliveryType,
			CustomerName:  payload.CustomerName,
			CustomerEmail: payload.CustomerEmail,
			CustomerPhone: payload.CustomerPhone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
