package payroll

import (
	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

// OrdinaryInput is a monthly payslip with resolved entries.
type OrdinaryInput struct {
	Employee   Employee
	Competence generic.TimePoint // any day of the payroll month
	Entries    []LineEntry
}

// Ordinary computes the monthly payslip with the table in effect on the
// competence date.
func (e *Engine) Ordinary(in OrdinaryInput) (Result, error) {
	table, err := e.TableFor(in.Competence)
	if err != nil {
		return Result{}, err
	}
	return CalculateOrdinary(table, in.Employee, in.Entries)
}

// CalculateOrdinary aggregates entries into bases, withholds INSS and IRRF
// and totals the payslip.
//
// Entries whose item is a statutory withholding are dropped: the engine
// computes those itself.
func CalculateOrdinary(table *tax.Table, emp Employee, entries []LineEntry) (Result, error) {
	if err := emp.Validate(); err != nil {
		return Result{}, err
	}
	for i, l := range entries {
		if err := l.validate(i); err != nil {
			return Result{}, err
		}
	}

	bases := accumulateBases(entries)

	inss := tax.INSS(bases.INSS, table.INSS)
	irrf, err := tax.IRRF(generic.Round2(bases.IRRF.Sub(inss.Amount)), emp.Dependents, table.IRRF)
	if err != nil {
		return Result{}, err
	}

	lines := make([]LineEntry, 0, len(entries)+2)
	earnings, manualDeductions := decimal.Zero, decimal.Zero
	for _, l := range entries {
		earnings = earnings.Add(l.Earning)
		if l.Item.IsStatutory() {
			continue
		}
		manualDeductions = manualDeductions.Add(l.Deduction)
		lines = append(lines, l)
	}
	if !inss.IsZero() {
		lines = append(lines, deductionLine(ItemINSS, inss.Rate, inss.Amount))
	}
	if !irrf.IsZero() {
		lines = append(lines, deductionLine(ItemIRRF, irrf.Rate, irrf.Amount))
	}

	result := Result{
		Totals: newTotals(earnings, generic.Sum(generic.Round2(manualDeductions), inss.Amount, irrf.Amount)),
		Table:  table.Name,
		Lines:  lines,
		Bases:  bases,
		INSS:   inss,
		IRRF:   irrf,
		FGTS:   generic.Round2(bases.FGTS.Mul(table.FGTS.Rate)),
	}
	if result.NetPay.IsNegative() {
		result.Warnings = append(result.Warnings, WarningNegativeNet)
	}
	return result, nil
}

// accumulateBases sums flagged earnings. Deduction items never count.
func accumulateBases(entries []LineEntry) Bases {
	b := Bases{INSS: decimal.Zero, IRRF: decimal.Zero, FGTS: decimal.Zero}
	for _, l := range entries {
		if !l.Item.IsEarning() {
			continue
		}
		if l.Item.INSSBase {
			b.INSS = b.INSS.Add(l.Earning)
		}
		if l.Item.IRRFBase {
			b.IRRF = b.IRRF.Add(l.Earning)
		}
		if l.Item.FGTSBase {
			b.FGTS = b.FGTS.Add(l.Earning)
		}
	}
	b.INSS = generic.Round2(b.INSS)
	b.IRRF = generic.Round2(b.IRRF)
	b.FGTS = generic.Round2(b.FGTS)
	return b
}
