package tax_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/folha/payroll-engine/generic"
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

func table2024(t *testing.T) *tax.Table {
	t.Helper()
	table, err := tax.Default().For(generic.NewTimePoint(2024, time.June, 1))
	require.NoError(t, err)
	require.Equal(t, "2024", table.Name)
	return table
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, money(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

// =============================================================================
// BRACKET CALCULATOR
// =============================================================================

func TestEvaluate_NonPositiveBaseIsZero(t *testing.T) {
	table := table2024(t)

	for _, base := range []string{"0", "-10.00"} {
		ev := tax.Evaluate(money(base), table.IRRF.Brackets)
		assert.True(t, ev.Amount.IsZero())
		assert.True(t, ev.Rate.IsZero())
		assert.Equal(t, -1, ev.Bracket)
	}
}

func TestEvaluate_LimitIsInclusive(t *testing.T) {
	table := table2024(t)

	ev := tax.Evaluate(money("1412.00"), table.INSS.Brackets)
	assert.Equal(t, 0, ev.Bracket)

	ev = tax.Evaluate(money("1412.01"), table.INSS.Brackets)
	assert.Equal(t, 1, ev.Bracket)
}

func TestEvaluate_CatchAllBracket(t *testing.T) {
	// GIVEN: A base far above every finite IRRF limit
	// THEN: The unbounded last bracket applies
	table := table2024(t)

	ev := tax.Evaluate(money("100000.00"), table.IRRF.Brackets)
	assert.Equal(t, len(table.IRRF.Brackets)-1, ev.Bracket)
	assertMoney(t, "27.5", ev.Rate)
	assertMoney(t, "26604.00", ev.Amount)
}

// =============================================================================
// INSS
// =============================================================================

func TestINSS_LowBracket(t *testing.T) {
	w := tax.INSS(money("1000.00"), table2024(t).INSS)

	assertMoney(t, "75.00", w.Amount)
	assertMoney(t, "7.5", w.Rate)
}

func TestINSS_MiddleBrackets(t *testing.T) {
	table := table2024(t)

	tests := []struct {
		base, amount, rate string
	}{
		{"2000.00", "158.82", "9"},
		{"3000.00", "258.82", "12"},
		{"5000.00", "518.82", "14"},
		{"7786.02", "908.86", "14"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			w := tax.INSS(money(tt.base), table.INSS)
			assertMoney(t, tt.amount, w.Amount)
			assertMoney(t, tt.rate, w.Rate)
		})
	}
}

func TestINSS_CeilingIsFixed(t *testing.T) {
	// GIVEN: Bases above the top bracket limit (7786.02)
	// THEN: The contribution is pinned to 908.85 regardless of distance
	table := table2024(t)

	for _, base := range []string{"7786.03", "10000.00", "778602.00"} {
		t.Run(base, func(t *testing.T) {
			w := tax.INSS(money(base), table.INSS)
			assertMoney(t, "908.85", w.Amount)
			assertMoney(t, "14", w.Rate)
		})
	}
}

func TestINSS_FirstBracketIsLinear(t *testing.T) {
	table := table2024(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		base := decimal.New(rng.Int63n(141200)+1, -2) // 0.01 .. 1412.00
		w := tax.INSS(base, table.INSS)
		assert.True(t, generic.Round2(base.Mul(money("0.075"))).Equal(w.Amount), "base %s", base)
	}
}

func TestINSS_NonPositiveBase(t *testing.T) {
	w := tax.INSS(decimal.Zero, table2024(t).INSS)
	assert.True(t, w.IsZero())

	w = tax.INSS(money("-500"), table2024(t).INSS)
	assert.True(t, w.IsZero())
}

// =============================================================================
// IRRF
// =============================================================================

func TestIRRF_BelowFirstTaxableBracket(t *testing.T) {
	r, err := tax.IRRF(money("2000.00"), 0, table2024(t).IRRF)
	require.NoError(t, err)

	assert.True(t, r.Amount.IsZero())
	assert.True(t, r.Standard.Amount.IsZero())
	assert.True(t, r.Simplified.Amount.IsZero())
}

func TestIRRF_SimplifiedWinsWithoutDependents(t *testing.T) {
	r, err := tax.IRRF(money("5000.00"), 0, table2024(t).IRRF)
	require.NoError(t, err)

	assertMoney(t, "479.00", r.Standard.Amount)
	assertMoney(t, "335.15", r.Simplified.Amount)
	assert.Equal(t, tax.MethodSimplified, r.Method)
	assertMoney(t, "335.15", r.Amount)
	assertMoney(t, "22.5", r.Rate)
}

func TestIRRF_StandardWinsWithDependents(t *testing.T) {
	r, err := tax.IRRF(money("5000.00"), 4, table2024(t).IRRF)
	require.NoError(t, err)

	assertMoney(t, "4241.64", r.Standard.TaxableBase)
	assertMoney(t, "291.60", r.Standard.Amount)
	assert.Equal(t, tax.MethodStandard, r.Method)
	assertMoney(t, "291.60", r.Amount)
}

func TestIRRF_TieGoesToStandard(t *testing.T) {
	// Both candidates land in the exempt bracket
	r, err := tax.IRRF(money("1500.00"), 2, table2024(t).IRRF)
	require.NoError(t, err)
	assert.Equal(t, tax.MethodStandard, r.Method)
}

func TestIRRF_NeverAboveEitherCandidate(t *testing.T) {
	table := table2024(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		base := decimal.New(rng.Int63n(2000000), -2)
		deps := rng.Intn(6)
		r, err := tax.IRRF(base, deps, table.IRRF)
		require.NoError(t, err)

		assert.False(t, r.Amount.IsNegative(), "base %s deps %d", base, deps)
		assert.True(t, r.Amount.LessThanOrEqual(r.Standard.Amount), "base %s deps %d", base, deps)
		assert.True(t, r.Amount.LessThanOrEqual(r.Simplified.Amount), "base %s deps %d", base, deps)
	}
}

func TestIRRF_NegativeDependentsRejected(t *testing.T) {
	_, err := tax.IRRF(money("3000.00"), -1, table2024(t).IRRF)

	var verr *generic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dependents", verr.Field)
	assert.True(t, generic.IsClientError(err))
}

// =============================================================================
// TABLES
// =============================================================================

func TestRegistry_SelectsByReferenceDate(t *testing.T) {
	reg := tax.Default()

	tests := []struct {
		date generic.TimePoint
		name string
	}{
		{generic.NewTimePoint(2024, time.February, 1), "2024"},
		{generic.NewTimePoint(2024, time.December, 31), "2024"},
		{generic.NewTimePoint(2025, time.January, 1), "2025-01"},
		{generic.NewTimePoint(2025, time.April, 30), "2025-01"},
		{generic.NewTimePoint(2025, time.May, 1), "2025-05"},
		{generic.NewTimePoint(2030, time.July, 1), "2025-05"},
	}
	for _, tt := range tests {
		table, err := reg.For(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.name, table.Name, tt.date.String())
	}
}

func TestRegistry_NoTableBeforeFirst(t *testing.T) {
	_, err := tax.Default().For(generic.NewTimePoint(2023, time.December, 31))
	assert.ErrorIs(t, err, tax.ErrNoTable)
	assert.True(t, generic.IsClientError(err))
}

func TestDefaultTables_2025Values(t *testing.T) {
	table, err := tax.Default().For(generic.NewTimePoint(2025, time.June, 1))
	require.NoError(t, err)

	assertMoney(t, "951.63", table.INSS.Ceiling)
	assertMoney(t, "607.20", table.IRRF.SimplifiedDeduction)
	assertMoney(t, "1518.00", table.MinimumWage)
	assertMoney(t, "0.08", table.FGTS.Rate)
	assertMoney(t, "0.40", table.FGTS.FineRate)
}

func TestParseTables_RejectsUnsortedBrackets(t *testing.T) {
	doc := `
tables:
  - name: broken
    effective_from: "2024-01-01"
    inss:
      ceiling: "100"
      brackets:
        - {up_to: "2000", rate: "0.075", deduction: "0"}
        - {up_to: "1000", rate: "0.09", deduction: "0"}
    irrf:
      brackets:
        - {rate: "0.1", deduction: "0"}
`
	_, err := tax.ParseTables([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestParseTables_RequiresUnboundedIRRF(t *testing.T) {
	doc := `
tables:
  - name: broken
    effective_from: "2024-01-01"
    inss:
      brackets:
        - {up_to: "1000", rate: "0.075", deduction: "0"}
    irrf:
      brackets:
        - {up_to: "1000", rate: "0", deduction: "0"}
`
	_, err := tax.ParseTables([]byte(doc))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestParseTables_RejectsBadDate(t *testing.T) {
	doc := `
tables:
  - name: broken
    effective_from: "01/01/2024"
    inss:
      brackets:
        - {up_to: "1000", rate: "0.075", deduction: "0"}
    irrf:
      brackets:
        - {rate: "0", deduction: "0"}
`
	_, err := tax.ParseTables([]byte(doc))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}
