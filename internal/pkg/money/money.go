// Package money holds the decimal rounding rules shared by every monetary field.
package money

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	lakh    = decimal.NewFromInt(100000)
)

// RoundCents rounds half-up to two decimal places. Amounts handled by the
// engine are non-negative, where half away from zero and half-up coincide.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundToLakh rounds to the nearest multiple of 100000, half-up.
func RoundToLakh(d decimal.Decimal) decimal.Decimal {
	return d.Div(lakh).Round(0).Mul(lakh)
}

// Percent returns pct percent of d.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// FromFloat converts through the shortest decimal representation of f, so
// 0.125 stays 0.125 and is not widened to its binary expansion.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Sum adds the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
