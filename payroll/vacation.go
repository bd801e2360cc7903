package payroll

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

const (
	maxVacationDays = 30
	cashOutDays     = 10
)

// VacationInput describes one vacation period.
type VacationInput struct {
	Employee          Employee
	Start             generic.TimePoint
	Days              int
	CashOut           bool // abono pecuniario: sell 10 days
	AdvanceThirteenth bool // pay half of the 13th salary with the vacation
}

// VacationResult is the itemized vacation receipt.
type VacationResult struct {
	Totals
	Table             string
	Lines             []LineEntry
	VacationPay       decimal.Decimal
	VacationBonus     decimal.Decimal // 1/3 constitutional bonus
	CashOut           decimal.Decimal
	CashOutBonus      decimal.Decimal
	ThirteenthAdvance decimal.Decimal
	INSS              tax.Withholding
	IRRF              tax.IRRFResult
	End               generic.TimePoint // last vacation day
	Return            generic.TimePoint // first working day back
	PaymentDue        generic.TimePoint // two days before Start
}

// Vacation computes the vacation receipt with the table in effect on Start.
func (e *Engine) Vacation(in VacationInput) (VacationResult, error) {
	if in.Start.IsZero() {
		return VacationResult{}, generic.Invalid("start", "is required")
	}
	table, err := e.TableFor(in.Start)
	if err != nil {
		return VacationResult{}, err
	}
	return CalculateVacation(table, in)
}

// CalculateVacation computes vacation pay, its 1/3 bonus, the optional
// cash-out and 13th advance, and withholds INSS and IRRF.
//
// INSS is levied on the vacation pay only. IRRF is levied on vacation pay
// plus bonus, net of INSS. Cash-out and the 13th advance are untaxed here.
func CalculateVacation(table *tax.Table, in VacationInput) (VacationResult, error) {
	emp := in.Employee
	if err := emp.Validate(); err != nil {
		return VacationResult{}, err
	}
	if in.Days < 1 || in.Days > maxVacationDays {
		return VacationResult{}, generic.Invalid("days", "must be between 1 and %d, got %d", maxVacationDays, in.Days)
	}
	if in.CashOut && in.Days+cashOutDays > maxVacationDays {
		return VacationResult{}, generic.Invalid("days", "%d days plus %d sold exceed %d", in.Days, cashOutDays, maxVacationDays)
	}
	if in.Start.Before(emp.Admission) {
		return VacationResult{}, generic.Invalid("start", "%s is before admission %s", in.Start, emp.Admission)
	}

	daily := emp.DailyRate()
	days := decimal.NewFromInt(int64(in.Days))

	r := VacationResult{
		Table:             table.Name,
		VacationPay:       generic.Round2(daily.Mul(days)),
		CashOut:           decimal.Zero,
		CashOutBonus:      decimal.Zero,
		ThirteenthAdvance: decimal.Zero,
		End:               in.Start.AddDays(in.Days - 1),
		Return:            in.Start.AddDays(in.Days),
		PaymentDue:        in.Start.AddDays(-2),
	}
	r.VacationBonus = generic.Round2(r.VacationPay.Div(generic.Three))
	r.Lines = append(r.Lines,
		earningLine(ItemVacationPay, days, r.VacationPay),
		earningLine(ItemVacationBonus, days, r.VacationBonus),
	)

	if in.CashOut {
		sold := decimal.NewFromInt(cashOutDays)
		r.CashOut = generic.Round2(daily.Mul(sold))
		r.CashOutBonus = generic.Round2(r.CashOut.Div(generic.Three))
		r.Lines = append(r.Lines,
			earningLine(ItemVacationCashOut, sold, r.CashOut),
			earningLine(ItemCashOutBonus, sold, r.CashOutBonus),
		)
	}
	if in.AdvanceThirteenth {
		r.ThirteenthAdvance = generic.Round2(emp.BaseSalary.Div(generic.Two))
		r.Lines = append(r.Lines, earningLine(ItemThirteenthAdvance, decimal.NewFromInt(50), r.ThirteenthAdvance))
	}

	r.INSS = tax.INSS(r.VacationPay, table.INSS)
	irrf, err := tax.IRRF(r.VacationPay.Add(r.VacationBonus).Sub(r.INSS.Amount), emp.Dependents, table.IRRF)
	if err != nil {
		return VacationResult{}, err
	}
	r.IRRF = irrf

	if !r.INSS.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemINSS, r.INSS.Rate, r.INSS.Amount))
	}
	if !r.IRRF.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemIRRF, r.IRRF.Rate, r.IRRF.Amount))
	}

	r.Totals = totalsOf(r.Lines)
	return r, nil
}
