package fees

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Calculator prices delivery as base + perKm * km, rounded half up to cents.
// Preview and checkout share one instance so quotes match charges.
type Calculator struct {
	base  decimal.Decimal
	perKm decimal.Decimal
}

// NewCalculator validates and stores the fee constants.
func NewCalculator(base, perKm decimal.Decimal) (*Calculator, error) {
	if base.IsNegative() {
		return nil, fmt.Errorf("base fee must not be negative")
	}
	if perKm.IsNegative() {
		return nil, fmt.Errorf("per km rate must not be negative")
	}
	return &Calculator{base: base, perKm: perKm}, nil
}

// Fee returns the delivery fee for a total route distance. Negative or
// non-finite distances are treated as zero.
func (c *Calculator) Fee(totalDistanceKm float64) decimal.Decimal {
	if math.IsNaN(totalDistanceKm) || math.IsInf(totalDistanceKm, 0) || totalDistanceKm < 0 {
		totalDistanceKm = 0
	}
	km := decimal.NewFromFloat(totalDistanceKm)
	return c.base.Add(c.perKm.Mul(km)).Round(2)
}

// Base returns the flat part of the fee.
func (c *Calculator) Base() decimal.Decimal {
	return c.base
}

// PerKm returns the distance rate.
func (c *Calculator) PerKm() decimal.Decimal {
	return c.perKm
}
