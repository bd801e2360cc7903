package payroll

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

// Reason is why the employment ended.
type Reason string

const (
	ReasonWithoutCause    Reason = "without_cause"        // dismissal without just cause
	ReasonResignation     Reason = "employee_resignation" // employee quits
	ReasonWithCause       Reason = "with_cause"           // dismissal for just cause
	ReasonMutualAgreement Reason = "mutual_agreement"     // CLT art. 484-A
)

// ParseReason validates a termination reason.
func ParseReason(s string) (Reason, error) {
	switch r := Reason(s); r {
	case ReasonWithoutCause, ReasonResignation, ReasonWithCause, ReasonMutualAgreement:
		return r, nil
	}
	return "", generic.Invalid("reason", "unknown termination reason %q", s)
}

// NoticeType says whether the notice period is paid or worked.
type NoticeType string

const (
	NoticeIndemnified NoticeType = "indemnified"
	NoticeWorked      NoticeType = "worked"
)

// ParseNoticeType validates a notice type.
func ParseNoticeType(s string) (NoticeType, error) {
	switch n := NoticeType(s); n {
	case NoticeIndemnified, NoticeWorked:
		return n, nil
	}
	return "", generic.Invalid("notice", "unknown notice type %q", s)
}

const (
	baseNoticeDays    = 30
	noticeDaysPerYear = 3
	maxNoticeDays     = 90
)

// NoticeDays is 30 days plus 3 per full year of tenure, capped at 90.
func NoticeDays(admission, date generic.TimePoint) int {
	days := baseNoticeDays + noticeDaysPerYear*generic.FullYearsBetween(admission, date)
	if days > maxNoticeDays {
		return maxNoticeDays
	}
	return days
}

// TerminationInput describes an employment termination.
type TerminationInput struct {
	Employee    Employee
	Date        generic.TimePoint
	Reason      Reason
	Notice      NoticeType
	FGTSBalance decimal.Decimal // current severance fund balance

	// FineInTotals adds the FGTS fine to the earnings total. The fine is
	// paid through the fund, not this settlement, so the default keeps it
	// out of the totals and reports it in FGTSFine only.
	FineInTotals bool
}

// TerminationResult is the itemized settlement (TRCT).
type TerminationResult struct {
	Totals
	Table                  string
	Lines                  []LineEntry
	DaysWorked             int
	SalaryBalance          decimal.Decimal
	NoticeDays             int
	NoticePay              decimal.Decimal
	ProjectedDate          generic.TimePoint // termination date plus indemnified notice
	AccrualPeriod          generic.Period
	VacationMonths         int
	ProportionalVacation   decimal.Decimal
	VacationBonus          decimal.Decimal
	ThirteenthMonths       int
	ProportionalThirteenth decimal.Decimal
	FGTSFineBase           decimal.Decimal
	FGTSFine               decimal.Decimal
	INSSSalary             tax.Withholding
	INSSThirteenth         tax.Withholding
	Warnings               []Warning
}

// Termination computes the settlement with the table in effect on the
// termination date.
func (e *Engine) Termination(in TerminationInput) (TerminationResult, error) {
	if in.Date.IsZero() {
		return TerminationResult{}, generic.Invalid("date", "is required")
	}
	table, err := e.TableFor(in.Date)
	if err != nil {
		return TerminationResult{}, err
	}
	return CalculateTermination(table, in)
}

// CalculateTermination computes salary balance, notice pay, proportional
// vacation and 13th salary and the FGTS fine, then withholds INSS on the
// salary balance and on the proportional 13th separately.
//
// Income tax is not withheld; the result carries WarningIncomeTaxNotComputed.
func CalculateTermination(table *tax.Table, in TerminationInput) (TerminationResult, error) {
	emp := in.Employee
	if err := emp.Validate(); err != nil {
		return TerminationResult{}, err
	}
	if _, err := ParseReason(string(in.Reason)); err != nil {
		return TerminationResult{}, err
	}
	if _, err := ParseNoticeType(string(in.Notice)); err != nil {
		return TerminationResult{}, err
	}
	if in.Date.Before(emp.Admission) {
		return TerminationResult{}, generic.Invalid("date", "%s is before admission %s", in.Date, emp.Admission)
	}
	if in.FGTSBalance.IsNegative() {
		return TerminationResult{}, generic.Invalid("fgts_balance", "must not be negative, got %s", in.FGTSBalance)
	}

	r := TerminationResult{
		Table:                  table.Name,
		NoticePay:              decimal.Zero,
		ProportionalVacation:   decimal.Zero,
		VacationBonus:          decimal.Zero,
		ProportionalThirteenth: decimal.Zero,
		FGTSFineBase:           decimal.Zero,
		FGTSFine:               decimal.Zero,
		ProjectedDate:          in.Date,
		Warnings:               []Warning{WarningIncomeTaxNotComputed},
	}

	// 1. Salary balance
	r.DaysWorked = in.Date.Day()
	if emp.Admission.Year() == in.Date.Year() && emp.Admission.Month() == in.Date.Month() {
		r.DaysWorked = in.Date.Day() - emp.Admission.Day() + 1
	}
	daysInMonth := decimal.NewFromInt(int64(in.Date.DaysInMonth()))
	r.SalaryBalance = generic.Round2(emp.BaseSalary.Div(daysInMonth).Mul(decimal.NewFromInt(int64(r.DaysWorked))))
	r.Lines = append(r.Lines, earningLine(ItemSalaryBalance, decimal.NewFromInt(int64(r.DaysWorked)), r.SalaryBalance))

	// 2. Indemnified notice, which also projects the end of the contract
	if in.Notice == NoticeIndemnified && (in.Reason == ReasonWithoutCause || in.Reason == ReasonMutualAgreement) {
		r.NoticeDays = NoticeDays(emp.Admission, in.Date)
		r.NoticePay = generic.Round2(emp.DailyRate().Mul(decimal.NewFromInt(int64(r.NoticeDays))))
		if in.Reason == ReasonMutualAgreement {
			r.NoticePay = generic.Round2(r.NoticePay.Div(generic.Two))
		}
		r.ProjectedDate = in.Date.AddDays(r.NoticeDays)
		r.Lines = append(r.Lines, earningLine(ItemNoticePay, decimal.NewFromInt(int64(r.NoticeDays)), r.NoticePay))
	}

	monthly := emp.BaseSalary.Div(generic.Twelve)
	r.AccrualPeriod = generic.AccrualPeriod(emp.Admission, r.ProjectedDate)

	if in.Reason != ReasonWithCause {
		// 3. Proportional vacation and its 1/3
		r.VacationMonths = generic.FractionMonths(r.AccrualPeriod.Start, r.ProjectedDate)
		r.ProportionalVacation = generic.Round2(monthly.Mul(decimal.NewFromInt(int64(r.VacationMonths))))
		r.VacationBonus = generic.Round2(r.ProportionalVacation.Div(generic.Three))
		r.Lines = append(r.Lines,
			earningLine(ItemProportionalVac, decimal.NewFromInt(int64(r.VacationMonths)), r.ProportionalVacation),
			earningLine(ItemProportionalBonus, decimal.NewFromInt(int64(r.VacationMonths)), r.VacationBonus),
		)

		// 4. Proportional 13th salary
		r.ThirteenthMonths = generic.MonthsOfYearEmployed(r.ProjectedDate.Year(), emp.Admission, r.ProjectedDate)
		r.ProportionalThirteenth = generic.Round2(monthly.Mul(decimal.NewFromInt(int64(r.ThirteenthMonths))))
		r.Lines = append(r.Lines,
			earningLine(ItemProportional13th, decimal.NewFromInt(int64(r.ThirteenthMonths)), r.ProportionalThirteenth))
	}

	// 5. FGTS fine on the balance plus this settlement's deposit
	if fineRate, ok := fgtsFineRate(table, in.Reason); ok {
		deposit := generic.Round2(r.SalaryBalance.Add(r.ProportionalThirteenth).Mul(table.FGTS.Rate))
		r.FGTSFineBase = in.FGTSBalance.Add(deposit)
		r.FGTSFine = generic.Round2(r.FGTSFineBase.Mul(fineRate))
		if in.FineInTotals {
			r.Lines = append(r.Lines, earningLine(ItemFGTSFine, generic.Percent(fineRate), r.FGTSFine))
		}
	}

	// Each component is its own INSS base.
	r.INSSSalary = tax.INSS(r.SalaryBalance, table.INSS)
	r.INSSThirteenth = tax.INSS(r.ProportionalThirteenth, table.INSS)
	if !r.INSSSalary.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemINSS, r.INSSSalary.Rate, r.INSSSalary.Amount))
	}
	if !r.INSSThirteenth.IsZero() {
		r.Lines = append(r.Lines, deductionLine(ItemINSSThirteenth, r.INSSThirteenth.Rate, r.INSSThirteenth.Amount))
	}

	r.Totals = totalsOf(r.Lines)
	if r.NetPay.IsNegative() {
		r.Warnings = append(r.Warnings, WarningNegativeNet)
	}
	return r, nil
}

// fgtsFineRate returns the fine rate owed for reason, if any.
// Mutual agreement owes half the fine.
func fgtsFineRate(table *tax.Table, reason Reason) (decimal.Decimal, bool) {
	switch reason {
	case ReasonWithoutCause:
		return table.FGTS.FineRate, true
	case ReasonMutualAgreement:
		return table.FGTS.FineRate.Div(generic.Two), true
	}
	return decimal.Zero, false
}
