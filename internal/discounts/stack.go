package discounts

import "github.com/shopspring/decimal"

// Breakdown is the final pricing of goods before delivery.
type Breakdown struct {
	Total           decimal.Decimal
	CouponDiscount  decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	Discount        decimal.Decimal
	Final           decimal.Decimal
}

// Stack combines coupon and loyalty discounts. Both are computed against the
// undiscounted total; loyalty is reduced so Final never drops below zero.
func Stack(total, coupon, loyalty decimal.Decimal) Breakdown {
	coupon = clamp(coupon, decimal.Zero, total)
	remaining := total.Sub(coupon)
	loyalty = clamp(loyalty, decimal.Zero, remaining)
	discount := coupon.Add(loyalty)

	return Breakdown{
		Total:           total,
		CouponDiscount:  coupon,
		LoyaltyDiscount: loyalty,
		Discount:        discount,
		Final:           total.Sub(discount),
	}
}
