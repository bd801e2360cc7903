package payroll

import (
	"time"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

// Installment selects which part of the 13th salary is paid.
type Installment string

const (
	InstallmentFirst  Installment = "first"  // half, untaxed, due by Nov 30
	InstallmentSecond Installment = "second" // remainder, taxed on the full amount, due by Dec 20
	InstallmentSingle Installment = "single" // full amount at once, taxed
)

// ParseInstallment validates an installment name.
func ParseInstallment(s string) (Installment, error) {
	switch i := Installment(s); i {
	case InstallmentFirst, InstallmentSecond, InstallmentSingle:
		return i, nil
	}
	return "", generic.Invalid("installment", "unknown installment %q", s)
}

// ThirteenthInput describes a 13th salary payment.
type ThirteenthInput struct {
	Employee    Employee
	Year        int
	Installment Installment
	// PaidAdvance is what the first installment paid. Nil means half of
	// the full amount. Only used by the second installment.
	PaidAdvance *decimal.Decimal
}

// ThirteenthResult is the itemized 13th salary receipt.
type ThirteenthResult struct {
	Totals
	Table       string
	Lines       []LineEntry
	Months      int
	FullAmount  decimal.Decimal // base / 12 x months
	PaidAdvance decimal.Decimal
	INSS        tax.Withholding
	IRRF        tax.IRRFResult
	DueDate     generic.TimePoint
}

// Thirteenth computes the 13th salary with the table in effect on the
// installment due date.
func (e *Engine) Thirteenth(in ThirteenthInput) (ThirteenthResult, error) {
	due, err := thirteenthDueDate(in.Year, in.Installment)
	if err != nil {
		return ThirteenthResult{}, err
	}
	table, err := e.TableFor(due)
	if err != nil {
		return ThirteenthResult{}, err
	}
	return CalculateThirteenth(table, in)
}

func thirteenthDueDate(year int, inst Installment) (generic.TimePoint, error) {
	if year < 1 {
		return generic.TimePoint{}, generic.Invalid("year", "must be positive, got %d", year)
	}
	if inst == InstallmentFirst {
		return generic.NewTimePoint(year, time.November, 30), nil
	}
	if _, err := ParseInstallment(string(inst)); err != nil {
		return generic.TimePoint{}, err
	}
	return generic.NewTimePoint(year, time.December, 20), nil
}

// CalculateThirteenth computes one 13th salary installment. Months count
// the months of the year with at least 15 days of employment.
func CalculateThirteenth(table *tax.Table, in ThirteenthInput) (ThirteenthResult, error) {
	emp := in.Employee
	if err := emp.Validate(); err != nil {
		return ThirteenthResult{}, err
	}
	due, err := thirteenthDueDate(in.Year, in.Installment)
	if err != nil {
		return ThirteenthResult{}, err
	}
	if in.PaidAdvance != nil && in.PaidAdvance.IsNegative() {
		return ThirteenthResult{}, generic.Invalid("paid_advance", "must not be negative, got %s", in.PaidAdvance)
	}

	months := generic.MonthsOfYearEmployed(in.Year, emp.Admission, generic.EndOfYear(in.Year))
	monthsD := decimal.NewFromInt(int64(months))
	full := generic.Round2(emp.BaseSalary.Div(generic.Twelve).Mul(monthsD))

	r := ThirteenthResult{
		Table:       table.Name,
		Months:      months,
		FullAmount:  full,
		PaidAdvance: decimal.Zero,
		DueDate:     due,
	}

	if in.Installment == InstallmentFirst {
		r.Lines = []LineEntry{earningLine(ItemThirteenthFirst, monthsD, generic.Round2(full.Div(generic.Two)))}
		r.Totals = totalsOf(r.Lines)
		return r, nil
	}

	r.Lines = []LineEntry{earningLine(ItemThirteenth, monthsD, full)}
	if in.Installment == InstallmentSecond {
		r.PaidAdvance = generic.Round2(full.Div(generic.Two))
		if in.PaidAdvance != nil {
			r.PaidAdvance = generic.Round2(*in.PaidAdvance)
		}
		if r.PaidAdvance.IsPositive() {
			r.Lines = append(r.Lines, deductionLine(ItemThirteenthPaid, decimal.Zero, r.PaidAdvance))
		}
	}

	// The 13th is taxed on its own, never combined with the monthly payslip.
	r.INSS = tax.INSS(full, table.INSS)
	r.IRRF, err = tax.IRRF(full.Sub(r.INSS.Amount), emp.Dependents, table.IRRF)
	if err != nil {
		return ThirteenthResult{}, err
	}
	if !r.INSS.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemINSSThirteenth, r.INSS.Rate, r.INSS.Amount))
	}
	if !r.IRRF.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemIRRFThirteenth, r.IRRF.Rate, r.IRRF.Amount))
	}

	r.Totals = totalsOf(r.Lines)
	return r, nil
}
