/*
Package tax implements the Brazilian statutory withholding calculators.

PURPOSE:
  Evaluates progressive marginal-rate tables. INSS (social security) and
  IRRF (income tax withholding) are both thin policies over the same
  bracket evaluation; the numbers themselves live in dated Tables so that
  several tax years can coexist.

KEY CONCEPTS:
  - Bracket: upper limit, marginal rate and fixed deduction ("parcela a deduzir")
  - Evaluate: base x rate - deduction of the first bracket whose limit >= base
  - INSS: bracket evaluation with a fixed ceiling above the top bracket
  - IRRF: the lesser of the standard and simplified deduction methods
  - Table / Registry: tax constants selected by reference date

ROUNDING:
  Evaluate returns the raw amount; INSS and IRRF round to cents and clamp
  negatives to zero. Rates are reported as percentages (7.5, not 0.075).

SEE ALSO:
  - inss.go, irrf.go: the two withholdings
  - table.go: Table and Registry
  - factory.go: YAML loading
*/
package tax

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// BRACKET
// =============================================================================

// Bracket is one row of a progressive table. A nil UpTo marks the
// unbounded catch-all bracket.
type Bracket struct {
	UpTo      *decimal.Decimal `yaml:"up_to" json:"up_to,omitempty"`
	Rate      decimal.Decimal  `yaml:"rate" json:"rate"`
	Deduction decimal.Decimal  `yaml:"deduction" json:"deduction"`
}

// Unbounded reports whether b is the catch-all bracket.
func (b Bracket) Unbounded() bool { return b.UpTo == nil }

// Contains reports whether base falls at or below the bracket limit.
func (b Bracket) Contains(base decimal.Decimal) bool {
	return b.Unbounded() || base.LessThanOrEqual(*b.UpTo)
}

// Evaluation is the outcome of evaluating a base against a table.
type Evaluation struct {
	Amount  decimal.Decimal // may be negative, callers clamp
	Rate    decimal.Decimal // nominal rate of the matched bracket, as a percentage
	Bracket int             // index of the matched bracket, -1 when nothing matched
}

// Evaluate applies the first bracket whose limit is >= base.
// A base above every finite limit uses the last bracket. A base <= 0
// yields a zero amount and zero rate.
func Evaluate(base decimal.Decimal, brackets []Bracket) Evaluation {
	if !base.IsPositive() || len(brackets) == 0 {
		return Evaluation{Amount: decimal.Zero, Rate: decimal.Zero, Bracket: -1}
	}

	idx := len(brackets) - 1
	for i, b := range brackets {
		if b.Contains(base) {
			idx = i
			break
		}
	}

	b := brackets[idx]
	return Evaluation{
		Amount:  base.Mul(b.Rate).Sub(b.Deduction),
		Rate:    generic.Percent(b.Rate),
		Bracket: idx,
	}
}

// =============================================================================
// WITHHOLDING - A computed tax line
// =============================================================================

// Withholding is a computed statutory deduction.
type Withholding struct {
	Base   decimal.Decimal
	Amount decimal.Decimal
	Rate   decimal.Decimal // percentage
}

// IsZero reports whether nothing is withheld; aggregators emit no line then.
func (w Withholding) IsZero() bool { return !w.Amount.IsPositive() }

func zeroWithholding(base decimal.Decimal) Withholding {
	return Withholding{Base: base, Amount: decimal.Zero, Rate: decimal.Zero}
}
