package discounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line as seen by discount evaluation.
type Line struct {
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Subtotal sums LineTotal over lines.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// CouponResult is the outcome of evaluating a coupon against a cart.
// When Valid is false Message explains why and Discount is zero.
type CouponResult struct {
	Valid              bool
	Message            string
	CouponID           *uuid.UUID
	Code               string
	Discount           decimal.Decimal
	ApplicableSubtotal decimal.Decimal
	ApplicableVendorID *uuid.UUID
}

func rejected(code, message string) CouponResult {
	return CouponResult{Code: code, Message: message, Discount: decimal.Zero, ApplicableSubtotal: decimal.Zero}
}

// EvaluateCoupon checks a coupon against the cart lines at time now.
// Checks run in a fixed order and the first failure wins. A vendor coupon
// only discounts that vendor's lines; the discount never exceeds them.
func EvaluateCoupon(coupon *models.Coupon, code string, lines []Line, now time.Time) CouponResult {
	code = strings.TrimSpace(code)
	if coupon == nil {
		return rejected(code, "invalid coupon code")
	}
	if !coupon.IsActive {
		return rejected(code, "coupon is not active")
	}
	if now.Before(coupon.ValidFrom) {
		return rejected(code, "coupon is not valid yet")
	}
	if now.After(coupon.ValidTo) {
		return rejected(code, "coupon has expired")
	}
	if coupon.UsageLimit != nil && *coupon.UsageLimit <= 0 {
		return rejected(code, "coupon usage limit reached")
	}

	applicable := Subtotal(lines)
	if coupon.VendorID != nil {
		applicable = decimal.Zero
		matched := false
		for _, l := range lines {
			if l.VendorID == *coupon.VendorID {
				applicable = applicable.Add(l.LineTotal)
				matched = true
			}
		}
		if !matched {
			return rejected(code, "no items from this vendor in the cart")
		}
	}

	if applicable.LessThan(coupon.MinPurchaseAmount) {
		return rejected(code, fmt.Sprintf("minimum purchase of %s required", coupon.MinPurchaseAmount.StringFixed(2)))
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = applicable.Mul(coupon.DiscountValue).Div(hundred)
	default:
		discount = coupon.DiscountValue
	}
	discount = clamp(discount.Round(2), decimal.Zero, applicable)

	couponID := coupon.ID
	return CouponResult{
		Valid:              true,
		Message:            "coupon applied",
		CouponID:           &couponID,
		Code:               coupon.Code,
		Discount:           discount,
		ApplicableSubtotal: applicable,
		ApplicableVendorID: coupon.VendorID,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
