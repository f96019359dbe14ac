package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sandroescobar/lovemenow-sub001/api/middleware"
	"github.com/sandroescobar/lovemenow-sub001/api/responses"
	"github.com/sandroescobar/lovemenow-sub001/api/validators"
	wishlistsvc "github.com/sandroescobar/lovemenow-sub001/internal/wishlist"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
)

type wishlistItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// GetWishlist returns the session's saved products.
func GetWishlist(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dto, err := svc.GetWishlist(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AddWishlistItem saves a product to the session's wishlist.
func AddWishlistItem(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload wishlistItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// RemoveWishlistItem drops a saved product from the session's wishlist.
func RemoveWishlistItem(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
