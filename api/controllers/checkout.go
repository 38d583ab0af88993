package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/responses"
	"github.com/angelmondragon/fulfillment-backend/api/validators"
	"github.com/angelmondragon/fulfillment-backend/internal/address"
	checkoutsvc "github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/checkout/helpers"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

// checkoutRequest keeps the field names existing clients already send.
type checkoutRequest struct {
	CartID           uuid.UUID           `json:"cart_id" validate:"required"`
	Address          *address.NewAddress `json:"address,omitempty" validate:"required_without=AddressID"`
	AddressID        *uuid.UUID          `json:"addressId,omitempty"`
	PaymentMethod    string              `json:"paymentMethod" validate:"required"`
	PaymentData      map[string]any      `json:"paymentData,omitempty"`
	CouponCode       *string             `json:"coupon_code,omitempty"`
	UseLoyaltyPoints int                 `json:"use_loyalty_points" validate:"gte=0"`
}

type deliveryPreviewRequest struct {
	CartID           uuid.UUID           `json:"cart_id" validate:"required"`
	Address          *address.NewAddress `json:"address,omitempty" validate:"required_without=AddressID"`
	AddressID        *uuid.UUID          `json:"addressId,omitempty"`
	CouponCode       *string             `json:"coupon_code,omitempty"`
	UseLoyaltyPoints int                 `json:"use_loyalty_points" validate:"gte=0"`
}

// Checkout turns the customer's cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := strings.ToLower(strings.TrimSpace(payload.PaymentMethod))
		if _, _, err := helpers.ValidatePaymentMethod(method); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), userID, checkoutsvc.CheckoutInput{
			QuoteInput:    quoteInput(payload.CartID, payload.AddressID, payload.Address, payload.CouponCode, payload.UseLoyaltyPoints),
			PaymentMethod: method,
			PaymentData:   payload.PaymentData,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// DeliveryPreview prices the cart without writing anything.
func DeliveryPreview(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliveryPreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), userID, quoteInput(payload.CartID, payload.AddressID, payload.Address, payload.CouponCode, payload.UseLoyaltyPoints))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote.Preview())
	}
}

func quoteInput(cartID uuid.UUID, addressID *uuid.UUID, addr *address.NewAddress, coupon *string, points int) checkoutsvc.QuoteInput {
	input := checkoutsvc.QuoteInput{
		CartID:        cartID,
		Address:       address.Input{AddressID: addressID, New: addr},
		LoyaltyPoints: points,
	}
	if coupon != nil {
		input.CouponCode = validators.SanitizeString(*coupon, 64)
	}
	return input
}
