// Package payroll computes Brazilian payroll events: the monthly payslip,
// vacation, the 13th salary and termination settlements.
// It uses the tax package for the statutory withholdings and performs no I/O.
package payroll

import (
	"fmt"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the immutable input every calculation starts from.
type Employee struct {
	ID         string
	Name       string
	BaseSalary decimal.Decimal
	Dependents int
	Admission  generic.TimePoint
}

// monthlyHours is the CLT divisor for a 44-hour week.
var monthlyHours = decimal.NewFromInt(220)

// HourlyRate is the base salary divided by 220 monthly hours (unrounded).
func (e Employee) HourlyRate() decimal.Decimal { return e.BaseSalary.Div(monthlyHours) }

// DailyRate is the base salary divided by 30 commercial days (unrounded).
func (e Employee) DailyRate() decimal.Decimal { return e.BaseSalary.Div(generic.Thirty) }

// Validate checks the preconditions shared by every calculator.
func (e Employee) Validate() error {
	if e.BaseSalary.IsNegative() {
		return generic.Invalid("base_salary", "must not be negative, got %s", e.BaseSalary)
	}
	if e.Dependents < 0 {
		return generic.Invalid("dependents", "must not be negative, got %d", e.Dependents)
	}
	if e.Admission.IsZero() {
		return generic.Invalid("admission", "is required")
	}
	return nil
}

// =============================================================================
// PAY ITEMS (RUBRICAS)
// =============================================================================

// Category says on which side of the payslip an item lands.
type Category string

const (
	CategoryEarning   Category = "earning"
	CategoryDeduction Category = "deduction"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryEarning, CategoryDeduction:
		return c, nil
	}
	return "", generic.Invalid("category", "unknown category %q", s)
}

// PayItem is a coded pay item definition and its tax-base participation.
// Deduction items never contribute to a base regardless of the flags.
type PayItem struct {
	Code        string
	Description string
	Category    Category
	INSSBase    bool
	IRRFBase    bool
	FGTSBase    bool
	Rule        RuleKind
}

func (p PayItem) IsEarning() bool   { return p.Category == CategoryEarning }
func (p PayItem) IsStatutory() bool { return p.rule().IsStatutory() }

// rule is the item's rule kind, classified from code and description when
// the item never went through Prepare.
func (p PayItem) rule() RuleKind {
	if p.Rule == "" {
		return ClassifyRule(p.Code, p.Description)
	}
	return p.Rule
}

// =============================================================================
// LINE ENTRIES
// =============================================================================

// LineEntry is one line of a payslip or settlement. Reference is
// informational (hours, percentage or days depending on the item).
type LineEntry struct {
	Item      PayItem
	Reference decimal.Decimal
	Earning   decimal.Decimal
	Deduction decimal.Decimal
}

func (l LineEntry) validate(i int) error {
	if l.Earning.IsNegative() || l.Deduction.IsNegative() {
		return generic.Invalid(fmt.Sprintf("entries[%d]", i), "amounts must not be negative (item %s)", l.Item.Code)
	}
	return nil
}

func earningLine(item PayItem, reference, amount decimal.Decimal) LineEntry {
	return LineEntry{Item: item, Reference: reference, Earning: amount, Deduction: decimal.Zero}
}

func deductionLine(item PayItem, reference, amount decimal.Decimal) LineEntry {
	return LineEntry{Item: item, Reference: reference, Earning: decimal.Zero, Deduction: amount}
}

// =============================================================================
// RESULTS
// =============================================================================

// Totals is shared by every calculation result.
// NetPay == TotalEarnings - TotalDeductions always holds.
type Totals struct {
	TotalEarnings   decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal
}

func newTotals(earnings, deductions decimal.Decimal) Totals {
	earnings = generic.Round2(earnings)
	deductions = generic.Round2(deductions)
	return Totals{
		TotalEarnings:   earnings,
		TotalDeductions: deductions,
		NetPay:          earnings.Sub(deductions),
	}
}

// totalsOf sums the earning and deduction columns of lines.
func totalsOf(lines []LineEntry) Totals {
	earnings, deductions := decimal.Zero, decimal.Zero
	for _, l := range lines {
		earnings = earnings.Add(l.Earning)
		deductions = deductions.Add(l.Deduction)
	}
	return newTotals(earnings, deductions)
}

// Bases are the taxable bases accumulated from flagged earnings.
type Bases struct {
	INSS decimal.Decimal
	IRRF decimal.Decimal // gross, before subtracting INSS
	FGTS decimal.Decimal
}

// Warning flags a result the caller should look at.
type Warning string

const (
	WarningNegativeNet          Warning = "negative_net"
	WarningIncomeTaxNotComputed Warning = "income_tax_not_computed"
)

// Result is the ordinary payroll outcome.
type Result struct {
	Totals
	Table    string
	Lines    []LineEntry
	Bases    Bases
	INSS     tax.Withholding
	IRRF     tax.IRRFResult
	FGTS     decimal.Decimal // employer deposit, not deducted from net pay
	Warnings []Warning
}
