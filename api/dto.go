/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Calculation results

MONEY:
  Amounts travel as decimal strings ("1234.56") in both directions.
  Responses always carry two decimal places. Rates are percentages
  ("7.5" means 7.5%).

DATES:
  YYYY-MM-DD everywhere.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Domain types being mapped
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/folha/payroll-engine/payroll"
	"github.com/folha/payroll-engine/store/sqlite"
	"github.com/folha/payroll-engine/tax"
	"github.com/shopspring/decimal"
)

// money formats an amount with exactly two decimals.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseSalary string `json:"base_salary"`
	Dependents int    `json:"dependents"`
	Admission  string `json:"admission"`
}

// CreateEmployeeRequest creates or replaces an employee.
type CreateEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseSalary string `json:"base_salary"`
	Dependents int    `json:"dependents"`
	Admission  string `json:"admission"`
}

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		BaseSalary: money(e.BaseSalary),
		Dependents: e.Dependents,
		Admission:  e.Admission.String(),
	}
}

// =============================================================================
// PAY ITEMS
// =============================================================================

// PayItemDTO is a rubrica in requests and responses. An empty rule on
// create is derived from the code and description.
type PayItemDTO struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	INSSBase    bool   `json:"inss_base"`
	IRRFBase    bool   `json:"irrf_base"`
	FGTSBase    bool   `json:"fgts_base"`
	Rule        string `json:"rule,omitempty"`
}

func toPayItemDTO(p payroll.PayItem) PayItemDTO {
	return PayItemDTO{
		Code:        p.Code,
		Description: p.Description,
		Category:    string(p.Category),
		INSSBase:    p.INSSBase,
		IRRFBase:    p.IRRFBase,
		FGTSBase:    p.FGTSBase,
		Rule:        string(p.Rule),
	}
}

func (d PayItemDTO) toPayItem() payroll.PayItem {
	return payroll.PayItem{
		Code:        d.Code,
		Description: d.Description,
		Category:    payroll.Category(d.Category),
		INSSBase:    d.INSSBase,
		IRRFBase:    d.IRRFBase,
		FGTSBase:    d.FGTSBase,
		Rule:        payroll.RuleKind(d.Rule),
	}
}

// ResolveRequest asks for the automatic amount of a pay item.
type ResolveRequest struct {
	EmployeeID string         `json:"employee_id"`
	Date       string         `json:"date"`
	Reference  *string        `json:"reference,omitempty"` // hours for overtime/night shift
	Entries    []EntryRequest `json:"entries,omitempty"`
}

// ResolutionDTO is the pre-filled line.
type ResolutionDTO struct {
	Code      string `json:"code"`
	Automatic bool   `json:"automatic"`
	Rule      string `json:"rule"`
	Reference string `json:"reference"`
	Earning   string `json:"earning"`
	Deduction string `json:"deduction"`
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// EntryRequest is one payslip line. Amount may be omitted for items with an
// automatic rule, in which case it is resolved.
type EntryRequest struct {
	Code      string  `json:"code"`
	Reference *string `json:"reference,omitempty"`
	Amount    *string `json:"amount,omitempty"`
}

// PayrollRequest computes a monthly payslip.
type PayrollRequest struct {
	Competence string         `json:"competence"`
	Entries    []EntryRequest `json:"entries"`
}

// VacationRequest computes a vacation receipt.
type VacationRequest struct {
	Start             string `json:"start"`
	Days              int    `json:"days"`
	CashOut           bool   `json:"cash_out"`
	AdvanceThirteenth bool   `json:"advance_thirteenth"`
}

// ThirteenthRequest computes a 13th salary installment.
type ThirteenthRequest struct {
	Year        int     `json:"year"`
	Installment string  `json:"installment"`
	PaidAdvance *string `json:"paid_advance,omitempty"`
}

// TerminationRequest computes a termination settlement.
type TerminationRequest struct {
	Date         string `json:"date"`
	Reason       string `json:"reason"`
	Notice       string `json:"notice"`
	FGTSBalance  string `json:"fgts_balance"`
	FineInTotals bool   `json:"fine_in_totals"`
}

// LineDTO is one itemized line.
type LineDTO struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Earning     string `json:"earning"`
	Deduction   string `json:"deduction"`
}

func toLineDTOs(lines []payroll.LineEntry) []LineDTO {
	out := make([]LineDTO, len(lines))
	for i, l := range lines {
		out[i] = LineDTO{
			Code:        l.Item.Code,
			Description: l.Item.Description,
			Reference:   l.Reference.String(),
			Earning:     money(l.Earning),
			Deduction:   money(l.Deduction),
		}
	}
	return out
}

// TotalsDTO is embedded in every calculation response.
type TotalsDTO struct {
	TotalEarnings   string `json:"total_earnings"`
	TotalDeductions string `json:"total_deductions"`
	NetPay          string `json:"net_pay"`
}

func toTotalsDTO(t payroll.Totals) TotalsDTO {
	return TotalsDTO{
		TotalEarnings:   money(t.TotalEarnings),
		TotalDeductions: money(t.TotalDeductions),
		NetPay:          money(t.NetPay),
	}
}

// WithholdingDTO is an INSS (or selected IRRF) withholding.
type WithholdingDTO struct {
	Base   string `json:"base"`
	Amount string `json:"amount"`
	Rate   string `json:"rate"`
}

func toWithholdingDTO(w tax.Withholding) WithholdingDTO {
	return WithholdingDTO{Base: money(w.Base), Amount: money(w.Amount), Rate: w.Rate.String()}
}

// CandidateDTO is one IRRF deduction method.
type CandidateDTO struct {
	Deduction   string `json:"deduction"`
	TaxableBase string `json:"taxable_base"`
	Amount      string `json:"amount"`
	Rate        string `json:"rate"`
}

// IRRFDTO is the selected income tax with both candidates.
type IRRFDTO struct {
	WithholdingDTO
	Method     string       `json:"method"`
	Standard   CandidateDTO `json:"standard"`
	Simplified CandidateDTO `json:"simplified"`
}

func toIRRFDTO(r tax.IRRFResult) IRRFDTO {
	candidate := func(c tax.Candidate) CandidateDTO {
		return CandidateDTO{
			Deduction:   money(c.Deduction),
			TaxableBase: money(c.TaxableBase),
			Amount:      money(c.Amount),
			Rate:        c.Rate.String(),
		}
	}
	return IRRFDTO{
		WithholdingDTO: toWithholdingDTO(r.Withholding),
		Method:         string(r.Method),
		Standard:       candidate(r.Standard),
		Simplified:     candidate(r.Simplified),
	}
}

func warningStrings(ws []payroll.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = string(w)
	}
	return out
}

// PayrollResponse is the monthly payslip.
type PayrollResponse struct {
	RunID    string    `json:"run_id"`
	Table    string    `json:"tax_table"`
	Lines    []LineDTO `json:"lines"`
	TotalsDTO
	INSSBase string         `json:"inss_base"`
	IRRFBase string         `json:"irrf_base"`
	FGTSBase string         `json:"fgts_base"`
	INSS     WithholdingDTO `json:"inss"`
	IRRF     IRRFDTO        `json:"irrf"`
	FGTS     string         `json:"fgts"`
	Warnings []string       `json:"warnings"`
}

func toPayrollResponse(r payroll.Result) PayrollResponse {
	return PayrollResponse{
		Table:     r.Table,
		Lines:     toLineDTOs(r.Lines),
		TotalsDTO: toTotalsDTO(r.Totals),
		INSSBase:  money(r.Bases.INSS),
		IRRFBase:  money(r.Bases.IRRF),
		FGTSBase:  money(r.Bases.FGTS),
		INSS:      toWithholdingDTO(r.INSS),
		IRRF:      toIRRFDTO(r.IRRF),
		FGTS:      money(r.FGTS),
		Warnings:  warningStrings(r.Warnings),
	}
}

// VacationResponse is the vacation receipt.
type VacationResponse struct {
	RunID string    `json:"run_id"`
	Table string    `json:"tax_table"`
	Lines []LineDTO `json:"lines"`
	TotalsDTO
	VacationPay       string         `json:"vacation_pay"`
	VacationBonus     string         `json:"vacation_bonus"`
	CashOut           string         `json:"cash_out"`
	CashOutBonus      string         `json:"cash_out_bonus"`
	ThirteenthAdvance string         `json:"thirteenth_advance"`
	INSS              WithholdingDTO `json:"inss"`
	IRRF              IRRFDTO        `json:"irrf"`
	End               string         `json:"end"`
	Return            string         `json:"return"`
	PaymentDue        string         `json:"payment_due"`
}

func toVacationResponse(r payroll.VacationResult) VacationResponse {
	return VacationResponse{
		Table:             r.Table,
		Lines:             toLineDTOs(r.Lines),
		TotalsDTO:         toTotalsDTO(r.Totals),
		VacationPay:       money(r.VacationPay),
		VacationBonus:     money(r.VacationBonus),
		CashOut:           money(r.CashOut),
		CashOutBonus:      money(r.CashOutBonus),
		ThirteenthAdvance: money(r.ThirteenthAdvance),
		INSS:              toWithholdingDTO(r.INSS),
		IRRF:              toIRRFDTO(r.IRRF),
		End:               r.End.String(),
		Return:            r.Return.String(),
		PaymentDue:        r.PaymentDue.String(),
	}
}

// ThirteenthResponse is a 13th salary receipt.
type ThirteenthResponse struct {
	RunID string    `json:"run_id"`
	Table string    `json:"tax_table"`
	Lines []LineDTO `json:"lines"`
	TotalsDTO
	Months      int            `json:"months"`
	FullAmount  string         `json:"full_amount"`
	PaidAdvance string         `json:"paid_advance"`
	INSS        WithholdingDTO `json:"inss"`
	IRRF        IRRFDTO        `json:"irrf"`
	DueDate     string         `json:"due_date"`
}

func toThirteenthResponse(r payroll.ThirteenthResult) ThirteenthResponse {
	return ThirteenthResponse{
		Table:       r.Table,
		Lines:       toLineDTOs(r.Lines),
		TotalsDTO:   toTotalsDTO(r.Totals),
		Months:      r.Months,
		FullAmount:  money(r.FullAmount),
		PaidAdvance: money(r.PaidAdvance),
		INSS:        toWithholdingDTO(r.INSS),
		IRRF:        toIRRFDTO(r.IRRF),
		DueDate:     r.DueDate.String(),
	}
}

// TerminationResponse is the termination settlement.
type TerminationResponse struct {
	RunID string    `json:"run_id"`
	Table string    `json:"tax_table"`
	Lines []LineDTO `json:"lines"`
	TotalsDTO
	DaysWorked             int            `json:"days_worked"`
	SalaryBalance          string         `json:"salary_balance"`
	NoticeDays             int            `json:"notice_days"`
	NoticePay              string         `json:"notice_pay"`
	ProjectedDate          string         `json:"projected_date"`
	VacationMonths         int            `json:"vacation_months"`
	ProportionalVacation   string         `json:"proportional_vacation"`
	VacationBonus          string         `json:"vacation_bonus"`
	ThirteenthMonths       int            `json:"thirteenth_months"`
	ProportionalThirteenth string         `json:"proportional_thirteenth"`
	FGTSFine               string         `json:"fgts_fine"`
	INSSSalary             WithholdingDTO `json:"inss_salary"`
	INSSThirteenth         WithholdingDTO `json:"inss_thirteenth"`
	Warnings               []string       `json:"warnings"`
}

func toTerminationResponse(r payroll.TerminationResult) TerminationResponse {
	return TerminationResponse{
		Table:                  r.Table,
		Lines:                  toLineDTOs(r.Lines),
		TotalsDTO:              toTotalsDTO(r.Totals),
		DaysWorked:             r.DaysWorked,
		SalaryBalance:          money(r.SalaryBalance),
		NoticeDays:             r.NoticeDays,
		NoticePay:              money(r.NoticePay),
		ProjectedDate:          r.ProjectedDate.String(),
		VacationMonths:         r.VacationMonths,
		ProportionalVacation:   money(r.ProportionalVacation),
		VacationBonus:          money(r.VacationBonus),
		ThirteenthMonths:       r.ThirteenthMonths,
		ProportionalThirteenth: money(r.ProportionalThirteenth),
		FGTSFine:               money(r.FGTSFine),
		INSSSalary:             toWithholdingDTO(r.INSSSalary),
		INSSThirteenth:         toWithholdingDTO(r.INSSThirteenth),
		Warnings:               warningStrings(r.Warnings),
	}
}

// RunDTO is a stored calculation.
type RunDTO struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Kind          string          `json:"kind"`
	ReferenceDate string          `json:"reference_date"`
	Table         string          `json:"tax_table"`
	NetPay        string          `json:"net_pay"`
	CreatedAt     string          `json:"created_at"`
	Result        json.RawMessage `json:"result"`
}

func toRunDTO(r sqlite.RunRecord) RunDTO {
	return RunDTO{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		Kind:          string(r.Kind),
		ReferenceDate: r.ReferenceDate.String(),
		Table:         r.TaxTable,
		NetPay:        money(r.NetPay),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		Result:        json.RawMessage(r.ResultJSON),
	}
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
