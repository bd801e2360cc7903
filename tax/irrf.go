package tax

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// IRRFRules is the income tax withholding table for one tax year.
type IRRFRules struct {
	Brackets            []Bracket      `yaml:"brackets" json:"brackets"`
	DependentDeduction  decimal.Decimal `yaml:"dependent_deduction" json:"dependent_deduction"`
	SimplifiedDeduction decimal.Decimal `yaml:"simplified_deduction" json:"simplified_deduction"`
}

// DeductionMethod names how the taxable base was reduced.
type DeductionMethod string

const (
	MethodStandard   DeductionMethod = "standard"   // dependents x per-dependent deduction
	MethodSimplified DeductionMethod = "simplified" // single fixed discount, dependents ignored
)

// Candidate is one independently computed IRRF alternative.
type Candidate struct {
	Method      DeductionMethod
	Deduction   decimal.Decimal
	TaxableBase decimal.Decimal
	Amount      decimal.Decimal
	Rate        decimal.Decimal
}

// IRRFResult is the selected withholding plus both candidates.
type IRRFResult struct {
	Withholding
	Method     DeductionMethod
	Standard   Candidate
	Simplified Candidate
}

// IRRF computes income tax withholding on base (already net of INSS).
// The standard and simplified candidates are computed independently and
// the lesser amount wins; ties go to the standard method.
func IRRF(base decimal.Decimal, dependents int, rules IRRFRules) (IRRFResult, error) {
	if dependents < 0 {
		return IRRFResult{}, generic.Invalid("dependents", "must not be negative, got %d", dependents)
	}
	if !base.IsPositive() {
		return IRRFResult{Withholding: zeroWithholding(base), Method: MethodStandard}, nil
	}

	standard := candidate(MethodStandard, base,
		rules.DependentDeduction.Mul(decimal.NewFromInt(int64(dependents))), rules.Brackets)
	simplified := candidate(MethodSimplified, base, rules.SimplifiedDeduction, rules.Brackets)

	chosen := standard
	if simplified.Amount.LessThan(standard.Amount) {
		chosen = simplified
	}

	return IRRFResult{
		Withholding: Withholding{Base: base, Amount: chosen.Amount, Rate: chosen.Rate},
		Method:      chosen.Method,
		Standard:    standard,
		Simplified:  simplified,
	}, nil
}

func candidate(method DeductionMethod, base, deduction decimal.Decimal, brackets []Bracket) Candidate {
	taxable := generic.NonNegative(base.Sub(deduction))
	ev := Evaluate(taxable, brackets)
	return Candidate{
		Method:      method,
		Deduction:   deduction,
		TaxableBase: taxable,
		Amount:      generic.NonNegative(generic.Round2(ev.Amount)),
		Rate:        ev.Rate,
	}
}
