package payroll

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

var (
	overtimeFactor   = decimal.RequireFromString("1.5")
	nightShiftFactor = decimal.RequireFromString("0.20")
	hazardRate       = decimal.RequireFromString("0.30")
	transportRate    = decimal.RequireFromString("0.06")
	unhealthyRates   = map[RuleKind]decimal.Decimal{
		RuleUnhealthy10: decimal.RequireFromString("0.10"),
		RuleUnhealthy20: decimal.RequireFromString("0.20"),
		RuleUnhealthy40: decimal.RequireFromString("0.40"),
	}
)

// ResolveInput is what the resolver needs to pre-fill one pay item.
type ResolveInput struct {
	Item     PayItem
	Employee Employee
	Entries  []LineEntry      // entries already on the payslip
	Hours    *decimal.Decimal // manual reference quantity, nil when not entered
	Date     generic.TimePoint
}

// Resolution is a pre-filled line. Automatic is false when the item has no
// rule and the caller must collect a manual amount.
type Resolution struct {
	Automatic bool
	Rule      RuleKind
	Reference decimal.Decimal
	Earning   decimal.Decimal
	Deduction decimal.Decimal
}

// Entry turns the resolution into a line for item.
func (r Resolution) Entry(item PayItem) LineEntry {
	return LineEntry{Item: item, Reference: r.Reference, Earning: r.Earning, Deduction: r.Deduction}
}

// Resolve computes the amount of an automatic pay item using the table in
// effect on in.Date.
func (e *Engine) Resolve(in ResolveInput) (Resolution, error) {
	table, err := e.TableFor(in.Date)
	if err != nil {
		return Resolution{}, err
	}
	return ResolveWith(table, in)
}

// ResolveWith is Resolve against an explicit table.
func ResolveWith(table *tax.Table, in ResolveInput) (Resolution, error) {
	if err := in.Employee.Validate(); err != nil {
		return Resolution{}, err
	}
	hours := decimal.Zero
	if in.Hours != nil {
		if in.Hours.IsNegative() {
			return Resolution{}, generic.Invalid("reference", "must not be negative, got %s", in.Hours)
		}
		hours = *in.Hours
	}

	emp := in.Employee
	res := Resolution{Automatic: true, Rule: in.Item.Rule,
		Reference: decimal.Zero, Earning: decimal.Zero, Deduction: decimal.Zero}

	switch in.Item.Rule {
	case RuleFamilyAllowance:
		res.Reference = decimal.NewFromInt(int64(emp.Dependents))
		if emp.Dependents > 0 && accumulatedINSSEarnings(in.Entries).LessThanOrEqual(table.FamilyAllowance.IncomeCeiling) {
			res.Earning = generic.Round2(table.FamilyAllowance.Quota.Mul(res.Reference))
		}

	case RuleTransportDiscount:
		res.Reference = generic.Percent(transportRate)
		res.Deduction = generic.Round2(emp.BaseSalary.Mul(transportRate))

	case RuleOvertime50:
		res.Reference = hours
		res.Earning = generic.Round2(emp.HourlyRate().Mul(overtimeFactor).Mul(hours))

	case RuleNightShift20:
		res.Reference = hours
		res.Earning = generic.Round2(emp.HourlyRate().Mul(nightShiftFactor).Mul(hours))

	case RuleHazard30:
		res.Reference = generic.Percent(hazardRate)
		res.Earning = generic.Round2(emp.BaseSalary.Mul(hazardRate))

	case RuleUnhealthy10, RuleUnhealthy20, RuleUnhealthy40:
		rate := unhealthyRates[in.Item.Rule]
		res.Reference = generic.Percent(rate)
		res.Earning = generic.Round2(table.MinimumWage.Mul(rate))

	default:
		return Resolution{Automatic: false, Rule: in.Item.Rule,
			Reference: decimal.Zero, Earning: decimal.Zero, Deduction: decimal.Zero}, nil
	}

	return res, nil
}

// accumulatedINSSEarnings sums the INSS-flagged earnings already present.
func accumulatedINSSEarnings(entries []LineEntry) decimal.Decimal {
	total := decimal.Zero
	for _, l := range entries {
		if l.Item.IsEarning() && l.Item.INSSBase {
			total = total.Add(l.Earning)
		}
	}
	return total
}
