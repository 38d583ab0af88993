package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// CouponLookup resolves a coupon by its code, returning nil when unknown.
type CouponLookup interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Engine evaluates coupons against the stored catalogue of codes.
type Engine struct {
	coupons CouponLookup
	now     func() time.Time
}

// NewEngine wires the discount engine.
func NewEngine(coupons CouponLookup) (*Engine, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupon lookup required")
	}
	return &Engine{coupons: coupons, now: time.Now}, nil
}

// ValidateCoupon looks a code up and evaluates it. Business rejections are a
// CouponResult with Valid false; only storage failures return an error.
func (e *Engine) ValidateCoupon(ctx context.Context, code string, lines []Line) (CouponResult, error) {
	coupon, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		return CouponResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	return EvaluateCoupon(coupon, code, lines, e.now()), nil
}

// Quote prices the goods with an optional coupon result and loyalty request.
func Quote(lines []Line, coupon *CouponResult, requestedPoints, balance int) (Breakdown, Redemption) {
	total := Subtotal(lines)
	couponDiscount := decimal.Zero
	if coupon != nil && coupon.Valid {
		couponDiscount = coupon.Discount
	}
	redemption := LoyaltyRedemption(total, requestedPoints, balance)
	breakdown := Stack(total, couponDiscount, redemption.Amount)
	if breakdown.LoyaltyDiscount.IsZero() {
		// Nothing left to discount, so no points are spent.
		redemption = Redemption{Percent: decimal.Zero, Amount: decimal.Zero}
	}
	redemption.Amount = breakdown.LoyaltyDiscount
	return breakdown, redemption
}
