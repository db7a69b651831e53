// Package units converts between the metric and imperial weight systems.
// Weights are always stored in kilograms.
package units

import (
	"github.com/shopspring/decimal"
)

const (
	Metric   = "metric"
	Imperial = "imperial"

	KG = "kg"
	LB = "lb"
)

// KGToLBFactor is the number of pounds in one kilogram.
var KGToLBFactor = decimal.RequireFromString("2.2046226218")

// divisionPrecision bounds the digits kept when converting pounds back to
// kilograms, since the factor does not divide exactly.
const divisionPrecision = 10

func KGToLB(kg decimal.Decimal) decimal.Decimal {
	return kg.Mul(KGToLBFactor)
}

func LBToKG(lb decimal.Decimal) decimal.Decimal {
	return lb.DivRound(KGToLBFactor, divisionPrecision)
}

// WeightUnit returns "lb" for imperial users and "kg" for everyone else.
func WeightUnit(system string) string {
	if system == Imperial {
		return LB
	}
	return KG
}

// ToKG interprets an entered weight in the user's unit system.
func ToKG(weight decimal.Decimal, system string) decimal.Decimal {
	if system == Imperial {
		return LBToKG(weight)
	}
	return weight
}

// Display converts a stored kilogram weight for the user's unit system,
// rounded to one decimal place.
func Display(kg decimal.Decimal, system string) decimal.Decimal {
	if system == Imperial {
		return KGToLB(kg).Round(1)
	}
	return kg.Round(1)
}
