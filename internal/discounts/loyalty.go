package discounts

import "github.com/shopspring/decimal"

// Every 100 points is worth 10% off.
const (
	pointsPerStep  = 100
	percentPerStep = 10
	maxPercentOff  = 50
	spendPerPoint  = 10
)

// Redemption is the loyalty part of a discount.
type Redemption struct {
	PointsUsed int
	Percent    decimal.Decimal
	Amount     decimal.Decimal
}

// LoyaltyRedemption converts requested points into a percentage of total.
// Points used never exceed the balance and the percentage is capped at 50.
func LoyaltyRedemption(total decimal.Decimal, requested, balance int) Redemption {
	used := requested
	if balance < used {
		used = balance
	}
	if used <= 0 || !total.IsPositive() {
		return Redemption{Percent: decimal.Zero, Amount: decimal.Zero}
	}

	percent := decimal.NewFromInt(int64(used)).
		Div(decimal.NewFromInt(pointsPerStep)).
		Mul(decimal.NewFromInt(percentPerStep))
	if percent.GreaterThan(decimal.NewFromInt(maxPercentOff)) {
		percent = decimal.NewFromInt(maxPercentOff)
	}

	return Redemption{
		PointsUsed: used,
		Percent:    percent,
		Amount:     total.Mul(percent).Div(hundred).Round(2),
	}
}

// PointsEarned awards one point per 10 currency units actually paid for goods.
func PointsEarned(total, discount decimal.Decimal) int {
	paid := total.Sub(discount)
	if !paid.IsPositive() {
		return 0
	}
	return int(paid.Div(decimal.NewFromInt(spendPerPoint)).Floor().IntPart())
}
