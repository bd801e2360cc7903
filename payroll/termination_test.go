package payroll_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terminate(t *testing.T, in payroll.TerminationInput) payroll.TerminationResult {
	t.Helper()
	result, err := payroll.NewEngine(nil).Termination(in)
	require.NoError(t, err)
	return result
}

// twoYearsWithoutCause is a dismissal exactly 24 months after admission.
func twoYearsWithoutCause() payroll.TerminationInput {
	return payroll.TerminationInput{
		Employee:    employee("3000.00", 0, date(2022, time.March, 1)),
		Date:        date(2024, time.March, 1),
		Reason:      payroll.ReasonWithoutCause,
		Notice:      payroll.NoticeIndemnified,
		FGTSBalance: money("5000.00"),
	}
}

func TestTermination_WithoutCauseIndemnified(t *testing.T) {
	// GIVEN: 24 months of tenure, indemnified notice
	in := twoYearsWithoutCause()

	// WHEN
	result := terminate(t, in)

	// THEN: 30 + 2x3 notice days, projected 36 days ahead
	assert.Equal(t, "2024", result.Table)
	assert.Equal(t, 36, result.NoticeDays)
	assertMoney(t, "3600.00", result.NoticePay)
	assert.Equal(t, date(2024, time.April, 6), result.ProjectedDate)

	// Salary balance: 1 day of a 31-day month
	assert.Equal(t, 1, result.DaysWorked)
	assertMoney(t, "96.77", result.SalaryBalance)

	// New accrual year started on 2024-03-01; April 6th is before the 15th.
	assert.Equal(t, date(2024, time.March, 1), result.AccrualPeriod.Start)
	assert.Equal(t, 1, result.VacationMonths)
	assertMoney(t, "250.00", result.ProportionalVacation)
	assertMoney(t, "83.33", result.VacationBonus)

	assert.Equal(t, 3, result.ThirteenthMonths)
	assertMoney(t, "750.00", result.ProportionalThirteenth)

	// Fine: 40% x (5000.00 + 8% x (96.77 + 750.00))
	assertMoney(t, "5067.74", result.FGTSFineBase)
	assertMoney(t, "2027.10", result.FGTSFine)

	// INSS per component
	assertMoney(t, "7.26", result.INSSSalary.Amount)
	assertMoney(t, "56.25", result.INSSThirteenth.Amount)
	assertMoney(t, "7.26", requireLine(t, result.Lines, payroll.CodeINSS).Deduction)
	assertMoney(t, "56.25", requireLine(t, result.Lines, payroll.CodeINSSThirteenth).Deduction)

	// Fine reported apart from the totals
	_, hasFine := findLine(result.Lines, payroll.CodeFGTSFine)
	assert.False(t, hasFine)
	assertMoney(t, "4780.10", result.TotalEarnings)
	assertMoney(t, "63.51", result.TotalDeductions)
	assertMoney(t, "4716.59", result.NetPay)
	assertNetIdentity(t, result.Totals)

	assert.Contains(t, result.Warnings, payroll.WarningIncomeTaxNotComputed)
	_, hasIRRF := findLine(result.Lines, payroll.CodeIRRF)
	assert.False(t, hasIRRF)
}

func TestTermination_FineInTotals(t *testing.T) {
	in := twoYearsWithoutCause()
	in.FineInTotals = true

	result := terminate(t, in)

	assertMoney(t, "2027.10", requireLine(t, result.Lines, payroll.CodeFGTSFine).Earning)
	assertMoney(t, "6807.20", result.TotalEarnings)
	assertMoney(t, "6743.69", result.NetPay)
}

func TestTermination_NoticeDays(t *testing.T) {
	admission := date(2000, time.January, 10)

	assert.Equal(t, 30, payroll.NoticeDays(admission, date(2000, time.December, 31)))
	assert.Equal(t, 33, payroll.NoticeDays(admission, date(2001, time.January, 10)))
	assert.Equal(t, 90, payroll.NoticeDays(admission, date(2020, time.January, 10)))
	assert.Equal(t, 90, payroll.NoticeDays(admission, date(2024, time.June, 10)))
}

func TestTermination_WorkedNoticeDoesNotProject(t *testing.T) {
	in := twoYearsWithoutCause()
	in.Notice = payroll.NoticeWorked

	result := terminate(t, in)

	assert.Zero(t, result.NoticeDays)
	assert.True(t, result.NoticePay.IsZero())
	assert.Equal(t, in.Date, result.ProjectedDate)
	_, hasNotice := findLine(result.Lines, payroll.CodeNoticePay)
	assert.False(t, hasNotice)
}

func TestTermination_ResignationHasNoNoticePayOrFine(t *testing.T) {
	in := twoYearsWithoutCause()
	in.Reason = payroll.ReasonResignation

	result := terminate(t, in)

	assert.True(t, result.NoticePay.IsZero())
	assert.True(t, result.FGTSFine.IsZero())
	assertMoney(t, "96.77", result.SalaryBalance)
	assert.Equal(t, 2, result.ThirteenthMonths)
}

func TestTermination_WithCausePaysSalaryBalanceOnly(t *testing.T) {
	in := twoYearsWithoutCause()
	in.Reason = payroll.ReasonWithCause

	result := terminate(t, in)

	assert.True(t, result.ProportionalVacation.IsZero())
	assert.True(t, result.ProportionalThirteenth.IsZero())
	assert.True(t, result.FGTSFine.IsZero())
	assertMoney(t, "96.77", result.TotalEarnings)
	assertMoney(t, "7.26", result.TotalDeductions)
}

func TestTermination_MutualAgreementHalvesNoticeAndFine(t *testing.T) {
	in := twoYearsWithoutCause()
	in.Reason = payroll.ReasonMutualAgreement

	result := terminate(t, in)

	assert.Equal(t, 36, result.NoticeDays)
	assertMoney(t, "1800.00", result.NoticePay)
	assertMoney(t, "1013.55", result.FGTSFine)
}

func TestTermination_SameMonthAdmission(t *testing.T) {
	result := terminate(t, payroll.TerminationInput{
		Employee: employee("3000.00", 0, date(2024, time.March, 5)),
		Date:     date(2024, time.March, 20),
		Reason:   payroll.ReasonResignation,
		Notice:   payroll.NoticeWorked,
	})

	assert.Equal(t, 16, result.DaysWorked)
	assertMoney(t, "1548.39", result.SalaryBalance)
}

func TestTermination_VacationMonthsResetOnlyAtAccrualBoundary(t *testing.T) {
	// GIVEN: accrual years start every March 10th
	emp := employee("3000.00", 0, date(2020, time.March, 10))
	engine := payroll.NewEngine(nil)
	months := func(d generic.TimePoint) int {
		result, err := engine.Termination(payroll.TerminationInput{
			Employee: emp, Date: d, Reason: payroll.ReasonWithoutCause, Notice: payroll.NoticeWorked,
		})
		require.NoError(t, err)
		return result.VacationMonths
	}

	// WHEN: the termination date moves through one accrual year
	prev := 0
	for d := date(2024, time.March, 10); d.BeforeOrEqual(date(2025, time.March, 9)); d = d.AddDays(1) {
		m := months(d)

		// THEN: the count never goes down
		require.GreaterOrEqual(t, m, prev, "at %s", d)
		prev = m
	}
	assert.Equal(t, 12, prev)

	// Crossing into the next accrual year resets it.
	assert.Less(t, months(date(2025, time.March, 10)), prev)
}

func TestTermination_Validation(t *testing.T) {
	base := twoYearsWithoutCause()
	engine := payroll.NewEngine(nil)

	cases := map[string]func(in *payroll.TerminationInput){
		"before admission": func(in *payroll.TerminationInput) { in.Date = date(2022, time.February, 28) },
		"negative balance": func(in *payroll.TerminationInput) { in.FGTSBalance = money("-0.01") },
		"unknown reason":   func(in *payroll.TerminationInput) { in.Reason = "retirement" },
		"unknown notice":   func(in *payroll.TerminationInput) { in.Notice = "waived" },
		"missing notice":   func(in *payroll.TerminationInput) { in.Notice = "" },
		"missing date":     func(in *payroll.TerminationInput) { in.Date = generic.TimePoint{} },
		"negative salary":  func(in *payroll.TerminationInput) { in.Employee.BaseSalary = money("-1") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := engine.Termination(in)
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
		})
	}
}

func TestTermination_NetIdentityHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	table := table2024(t)
	reasons := []payroll.Reason{payroll.ReasonWithoutCause, payroll.ReasonResignation,
		payroll.ReasonWithCause, payroll.ReasonMutualAgreement}
	notices := []payroll.NoticeType{payroll.NoticeIndemnified, payroll.NoticeWorked}

	for i := 0; i < 300; i++ {
		terminated := date(2024, time.February, 1).AddDays(rng.Intn(700))
		in := payroll.TerminationInput{
			Employee: payroll.Employee{
				BaseSalary: decimal.New(100000+rng.Int63n(2000000), -2),
				Dependents: rng.Intn(4),
				Admission:  terminated.AddDays(-rng.Intn(4000)),
			},
			Date:         terminated,
			Reason:       reasons[rng.Intn(len(reasons))],
			Notice:       notices[rng.Intn(len(notices))],
			FGTSBalance:  decimal.New(rng.Int63n(10000000), -2),
			FineInTotals: rng.Intn(2) == 0,
		}

		result, err := payroll.CalculateTermination(table, in)
		require.NoError(t, err)

		assertNetIdentity(t, result.Totals)
		assert.GreaterOrEqual(t, result.NoticeDays, 30)
		assert.LessOrEqual(t, result.NoticeDays, 90)
		assert.False(t, result.FGTSFine.IsNegative())
		_, fineLine := findLine(result.Lines, payroll.CodeFGTSFine)
		assert.Equal(t, in.FineInTotals && result.FGTSFine.IsPositive(), fineLine, "reason %s", in.Reason)
	}
}
