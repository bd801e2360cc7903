package tax

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// INSSRules is the social security table for one tax year.
// Every bracket is finite; bases above the top limit pay Ceiling.
type INSSRules struct {
	Brackets []Bracket      `yaml:"brackets" json:"brackets"`
	Ceiling  decimal.Decimal `yaml:"ceiling" json:"ceiling"`
}

// TopLimit returns the limit of the highest finite bracket.
func (r INSSRules) TopLimit() (decimal.Decimal, bool) {
	for i := len(r.Brackets) - 1; i >= 0; i-- {
		if !r.Brackets[i].Unbounded() {
			return *r.Brackets[i].UpTo, true
		}
	}
	return decimal.Zero, false
}

// INSS computes the employee social security contribution on base.
//
// Above the top bracket the contribution is pinned to the statutory
// ceiling and the reported rate is the top bracket's nominal rate.
func INSS(base decimal.Decimal, rules INSSRules) Withholding {
	if !base.IsPositive() || len(rules.Brackets) == 0 {
		return zeroWithholding(base)
	}

	if top, ok := rules.TopLimit(); ok && base.GreaterThan(top) {
		last := rules.Brackets[len(rules.Brackets)-1]
		return Withholding{
			Base:   base,
			Amount: rules.Ceiling,
			Rate:   generic.Percent(last.Rate),
		}
	}

	ev := Evaluate(base, rules.Brackets)
	return Withholding{
		Base:   base,
		Amount: generic.NonNegative(generic.Round2(ev.Amount)),
		Rate:   ev.Rate,
	}
}
