/*
Package generic provides the domain-agnostic building blocks of the payroll engine.

PURPOSE:
  Money arithmetic, calendar dates, accrual periods and error types shared by
  the tax and payroll packages. Nothing in here knows about INSS, IRRF or
  rubricas; it only knows how to count months and round currency.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money values are decimal.Decimal, never float64
  - Round2: currency rounding (2 places, half away from zero)
  - Percent: converts a fractional rate (0.075) into a reported rate (7.5)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money is involved
  2. Purity: helpers take values and return values, no shared state
  3. Explicit rounding: callers round at each sub-total, not implicitly

USAGE:
  salary := decimal.RequireFromString("3000.00")
  daily := generic.Round2(salary.Div(generic.Thirty))

SEE ALSO:
  - time.go: TimePoint and month counting
  - period.go: Calendar and anniversary periods
  - errors.go: Validation and sentinel errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMON CONSTANTS
// =============================================================================

var (
	Two     = decimal.NewFromInt(2)
	Three   = decimal.NewFromInt(3)
	Twelve  = decimal.NewFromInt(12)
	Thirty  = decimal.NewFromInt(30)
	Hundred = decimal.NewFromInt(100)
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Round2 rounds a currency amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Percent turns a fractional rate into a percentage (0.075 -> 7.5).
func Percent(rate decimal.Decimal) decimal.Decimal { return rate.Mul(Hundred) }

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds a list of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
