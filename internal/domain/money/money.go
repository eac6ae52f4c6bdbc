// Package money holds the decimal arithmetic shared by all refund calculations.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept for monetary amounts.
const Places = 2

// Round rounds half away from zero to two decimal places. All amounts in the
// system are non-negative so this is round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Dec converts a float amount to a decimal.
func Dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Float converts a decimal back to a float for storage and JSON.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// RoundFloat rounds a float amount to two decimals via decimal arithmetic.
func RoundFloat(f float64) float64 {
	return Float(Round(Dec(f)))
}

// Mul multiplies all factors and rounds once at the end.
func Mul(amount float64, factors ...float64) float64 {
	d := Dec(amount)
	for _, f := range factors {
		d = d.Mul(Dec(f))
	}
	return Float(Round(d))
}

// Sum adds amounts without intermediate rounding and rounds the result.
func Sum(amounts ...float64) float64 {
	d := decimal.Zero
	for _, a := range amounts {
		d = d.Add(Dec(a))
	}
	return Float(Round(d))
}
