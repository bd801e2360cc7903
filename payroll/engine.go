package payroll

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
)

// Engine selects the tax table in effect for each calculation and runs the
// pure calculators against it. It holds no mutable state; one Engine can
// serve concurrent callers.
type Engine struct {
	tables *tax.Registry
}

// NewEngine creates an engine over tables, or the embedded defaults when nil.
func NewEngine(tables *tax.Registry) *Engine {
	if tables == nil {
		tables = tax.Default()
	}
	return &Engine{tables: tables}
}

// Tables exposes the registry the engine calculates with.
func (e *Engine) Tables() *tax.Registry { return e.tables }

// TableFor returns the table in effect on date.
func (e *Engine) TableFor(date generic.TimePoint) (*tax.Table, error) {
	if date.IsZero() {
		return nil, generic.Invalid("reference_date", "is required")
	}
	return e.tables.For(date)
}
