package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/api/responses"
	"github.com/angelmondragon/fulfillment-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/coupons"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const maxCouponCodeLength = 64

type createCouponRequest struct {
	Code              string          `json:"code" validate:"required,max=64"`
	DiscountType      string          `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
	ValidFrom         time.Time       `json:"valid_from" validate:"required"`
	ValidTo           time.Time       `json:"valid_to" validate:"required"`
	UsageLimit        *int            `json:"usage_limit,omitempty" validate:"omitempty,gte=0"`
}

type toggleCouponRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type validateCouponRequest struct {
	CouponCode string    `json:"coupon_code" validate:"required"`
	CartID     uuid.UUID `json:"cart_id" validate:"required"`
}

type couponResponse struct {
	ID                uuid.UUID          `json:"id"`
	VendorID          *uuid.UUID         `json:"vendor_id,omitempty"`
	Code              string             `json:"code"`
	DiscountType      enums.DiscountType `json:"discount_type"`
	DiscountValue     decimal.Decimal    `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal    `json:"min_purchase_amount"`
	ValidFrom         time.Time          `json:"valid_from"`
	ValidTo           time.Time          `json:"valid_to"`
	UsageLimit        *int               `json:"usage_limit"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
}

func newCouponResponse(c *models.Coupon) couponResponse {
	return couponResponse{
		ID:                c.ID,
		VendorID:          c.VendorID,
		Code:              c.Code,
		DiscountType:      c.DiscountType,
		DiscountValue:     c.DiscountValue,
		MinPurchaseAmount: c.MinPurchaseAmount,
		ValidFrom:         c.ValidFrom,
		ValidTo:           c.ValidTo,
		UsageLimit:        c.UsageLimit,
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
	}
}

// CreateCoupon publishes a new coupon for the calling vendor.
func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		vendorUserID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discountType, err := enums.ParseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
			return
		}

		coupon, err := svc.Create(r.Context(), vendorUserID, coupons.CreateInput{
			Code:              validators.SanitizeString(payload.Code, maxCouponCodeLength),
			DiscountType:      discountType,
			DiscountValue:     payload.DiscountValue,
			MinPurchaseAmount: payload.MinPurchaseAmount,
			ValidFrom:         payload.ValidFrom,
			ValidTo:           payload.ValidTo,
			UsageLimit:        payload.UsageLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

// ToggleCoupon activates or deactivates one of the vendor's coupons.
func ToggleCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		vendorUserID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload toggleCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Toggle(r.Context(), vendorUserID, couponID, *payload.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

// ValidateCoupon checks a code against the customer's cart. An inapplicable
// coupon is a 200 with valid=false and the reason.
func ValidateCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ValidateCoupon(r.Context(), userID, payload.CartID, validators.SanitizeString(payload.CouponCode, maxCouponCodeLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
