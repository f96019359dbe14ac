package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sandroescobar/lovemenow-sub001/api/middleware"
	"github.com/sandroescobar/lovemenow-sub001/api/responses"
	"github.com/sandroescobar/lovemenow-sub001/api/validators"
	ordersvc "github.com/sandroescobar/lovemenow-sub001/internal/orders"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
)

type confirmOrderRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
	CustomerName    string `json:"customer_name,omitempty" validate:"omitempty,max=128"`
	CustomerEmail   string `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone   string `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
}

// ConfirmOrder materializes a succeeded payment into an order. Safe to call
// more than once: repeats return the already-created order.
func ConfirmOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload confirmOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Materialize(r.Context(), ordersvc.MaterializeInput{
			PaymentIntentID: payload.PaymentIntentID,
			SessionID:       middleware.SessionIDFromContext(r.Context()),
			Source:          "confirm",
			CustomerName:    payload.CustomerName,
			CustomerEmail:   payload.CustomerEmail,
			CustomerPhone:   payload.CustomerPhone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// GetOrder returns an order by its public order number.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dto, err := svc.GetByOrderNumber(r.Context(), chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
