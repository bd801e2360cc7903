package payroll_test

import (
	"testing"
	"time"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/payroll"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func employee(salary string, dependents int, admission generic.TimePoint) payroll.Employee {
	return payroll.Employee{
		ID:         "emp-1",
		Name:       "Maria Souza",
		BaseSalary: money(salary),
		Dependents: dependents,
		Admission:  admission,
	}
}

func table2024(t *testing.T) *tax.Table {
	t.Helper()
	table, err := tax.Default().For(date(2024, time.June, 1))
	require.NoError(t, err)
	return table
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, money(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func assertNetIdentity(t *testing.T, totals payroll.Totals) {
	t.Helper()
	assert.True(t, totals.NetPay.Equal(totals.TotalEarnings.Sub(totals.TotalDeductions)),
		"net %s != %s - %s", totals.NetPay, totals.TotalEarnings, totals.TotalDeductions)
}

func findLine(lines []payroll.LineEntry, code string) (payroll.LineEntry, bool) {
	for _, l := range lines {
		if l.Item.Code == code {
			return l, true
		}
	}
	return payroll.LineEntry{}, false
}

func requireLine(t *testing.T, lines []payroll.LineEntry, code string) payroll.LineEntry {
	t.Helper()
	l, ok := findLine(lines, code)
	require.True(t, ok, "line %s missing", code)
	return l
}
