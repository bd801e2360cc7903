package tax

import (
	"fmt"
	"sort"

	"github.com/folha/payroll-engine/generic"
	"github.com/shopspring/decimal"
)

// ErrNoTable is returned when no table is in effect on the requested date.
var ErrNoTable = fmt.Errorf("no tax table in effect: %w", generic.ErrInvalidInput)

// =============================================================================
// TABLE - All statutory constants for one effective date
// =============================================================================

// Table bundles the constants the calculators need for a given period.
type Table struct {
	Name            string               `json:"name"`
	EffectiveFrom   generic.TimePoint    `json:"effective_from"`
	INSS            INSSRules            `json:"inss"`
	IRRF            IRRFRules            `json:"irrf"`
	MinimumWage     decimal.Decimal      `json:"minimum_wage"`
	FamilyAllowance FamilyAllowanceRules `json:"family_allowance"`
	FGTS            FGTSRules            `json:"fgts"`
}

// FamilyAllowanceRules is the salario-familia quota and income ceiling.
type FamilyAllowanceRules struct {
	Quota         decimal.Decimal `yaml:"quota" json:"quota"`
	IncomeCeiling decimal.Decimal `yaml:"income_ceiling" json:"income_ceiling"`
}

// FGTSRules is the severance fund deposit rate and termination fine rate.
type FGTSRules struct {
	Rate     decimal.Decimal `yaml:"rate" json:"rate"`
	FineRate decimal.Decimal `yaml:"fine_rate" json:"fine_rate"`
}

// Validate checks the structural invariants the calculators rely on.
func (t Table) Validate() error {
	if t.EffectiveFrom.IsZero() {
		return generic.Invalid("effective_from", "table %q has no effective date", t.Name)
	}
	if err := validateBrackets(t.Name+".inss", t.INSS.Brackets, false); err != nil {
		return err
	}
	if err := validateBrackets(t.Name+".irrf", t.IRRF.Brackets, true); err != nil {
		return err
	}
	for field, v := range map[string]decimal.Decimal{
		"inss.ceiling":                t.INSS.Ceiling,
		"irrf.dependent_deduction":    t.IRRF.DependentDeduction,
		"irrf.simplified_deduction":   t.IRRF.SimplifiedDeduction,
		"minimum_wage":                t.MinimumWage,
		"family_allowance.quota":      t.FamilyAllowance.Quota,
		"family_allowance.income_cap": t.FamilyAllowance.IncomeCeiling,
		"fgts.rate":                   t.FGTS.Rate,
		"fgts.fine_rate":              t.FGTS.FineRate,
	} {
		if v.IsNegative() {
			return generic.Invalid(t.Name+"."+field, "must not be negative")
		}
	}
	return nil
}

// validateBrackets requires strictly ascending finite limits and
// non-negative rates. When unbounded is set the last bracket must be the
// only catch-all; otherwise every bracket must be finite.
func validateBrackets(name string, brackets []Bracket, unbounded bool) error {
	if len(brackets) == 0 {
		return generic.Invalid(name, "at least one bracket is required")
	}
	var prev *decimal.Decimal
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Deduction.IsNegative() {
			return generic.Invalid(name, "bracket %d has a negative rate or deduction", i)
		}
		last := i == len(brackets)-1
		if b.Unbounded() {
			if !unbounded || !last {
				return generic.Invalid(name, "bracket %d must have a limit", i)
			}
			continue
		}
		if unbounded && last {
			return generic.Invalid(name, "last bracket must be unbounded")
		}
		if prev != nil && !b.UpTo.GreaterThan(*prev) {
			return generic.Invalid(name, "bracket %d limit %s is not above %s", i, b.UpTo, prev)
		}
		prev = b.UpTo
	}
	return nil
}

// =============================================================================
// REGISTRY - Selects the table in effect on a reference date
// =============================================================================

// Registry holds tables ordered by effective date.
type Registry struct {
	tables []Table
}

// NewRegistry validates and orders the given tables.
func NewRegistry(tables ...Table) (*Registry, error) {
	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	for _, t := range sorted {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].EffectiveFrom.Equal(sorted[i-1].EffectiveFrom) {
			return nil, generic.Invalid("effective_from", "tables %q and %q share %s",
				sorted[i-1].Name, sorted[i].Name, sorted[i].EffectiveFrom)
		}
	}
	return &Registry{tables: sorted}, nil
}

// For returns the table with the latest EffectiveFrom on or before date.
func (r *Registry) For(date generic.TimePoint) (*Table, error) {
	for i := len(r.tables) - 1; i >= 0; i-- {
		if r.tables[i].EffectiveFrom.BeforeOrEqual(date) {
			t := r.tables[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTable, date)
}

// Tables returns a copy of all tables, oldest first.
func (r *Registry) Tables() []Table {
	out := make([]Table, len(r.tables))
	copy(out, r.tables)
	return out
}
