package helpers

import (
	"strings"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// ValidatePaymentMethod parses the method and returns the payment status an
// order starts with: pending for cash on delivery, paid otherwise.
func ValidatePaymentMethod(raw string) (enums.PaymentMethod, enums.PaymentStatus, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": raw})
	}
	if method.CollectsOnDelivery() {
		return method, enums.PaymentStatusPending, nil
	}
	return method, enums.PaymentStatusPaid, nil
}

// ValidateLoyaltyPoints rejects negative point requests.
func ValidateLoyaltyPoints(points int) error {
	if points < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "loyalty points must not be negative")
	}
	return nil
}

// NormalizeCouponCode trims the code; nil and blank mean no coupon.
func NormalizeCouponCode(code *string) string {
	if code == nil {
		return ""
	}
	return strings.TrimSpace(*code)
}
