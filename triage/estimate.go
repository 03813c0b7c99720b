package triage

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeRate signals an hourly rate below zero.
var ErrNegativeRate = errors.New("triage: hourly rate must not be negative")

var (
	hoursHeating    = decimal.New(2, 0)
	hoursPlumbing   = decimal.NewFromFloat(1.5)
	hoursElectrical = decimal.NewFromFloat(2.5)
	hoursDefault    = decimal.New(1, 0)
)

// EstimatedHours returns the fixed labor-hour multiplier for a category.
// Anything outside the closed enum gets the default single hour.
func EstimatedHours(category Category) decimal.Decimal {
	switch category {
	case CategoryHeating:
		return hoursHeating
	case CategoryPlumbing:
		return hoursPlumbing
	case CategoryElectrical:
		return hoursElectrical
	case CategoryOther:
		return hoursDefault
	default:
		return hoursDefault
	}
}

// EstimateCost converts a vendor's hourly rate into a fixed cost estimate
// for a category, rounded to two decimal places.
func EstimateCost(hourlyRate decimal.Decimal, category Category) (decimal.Decimal, error) {
	if hourlyRate.IsNegative() {
		return decimal.Decimal{}, ErrNegativeRate
	}
	return hourlyRate.Mul(EstimatedHours(category)).Round(2), nil
}
