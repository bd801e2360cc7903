/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll calculators via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the pure
  calculators in package payroll. Every successful calculation is stored
  as a run for auditing.

ENDPOINTS:
  Employees:
    GET    /api/employees                      List all employees
    POST   /api/employees                      Create or replace employee
    GET    /api/employees/{id}                 Get employee
    DELETE /api/employees/{id}                 Delete employee and its runs

  Calculations:
    POST   /api/employees/{id}/payroll         Monthly payslip
    POST   /api/employees/{id}/vacation        Vacation receipt
    POST   /api/employees/{id}/thirteenth      13th salary installment
    POST   /api/employees/{id}/termination     Termination settlement
    GET    /api/employees/{id}/runs            Stored calculations

  Pay items:
    GET    /api/pay-items                      Catalog
    POST   /api/pay-items                      Create or replace item
    GET    /api/pay-items/{code}               Get item
    POST   /api/pay-items/{code}/resolve       Automatic amount for an item

  Tax:
    GET    /api/tax/tables                     Loaded tax tables
    GET    /api/tax/inss?base=&date=           INSS on a base
    GET    /api/tax/irrf?base=&dependents=&date=  IRRF on a base

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, no tax table for the date
  - 404: Employee or pay item not found
  - 500: Internal errors (logged)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/payroll"
	"github.com/folha/payroll-engine/store/sqlite"
	"github.com/folha/payroll-engine/tax"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *payroll.Engine
	Logger *slog.Logger

	// now is the clock used when a tax endpoint gets no date.
	now func() time.Time
}

// NewHandler creates a handler. A nil engine uses the embedded tax tables
// and a nil logger uses slog.Default().
func NewHandler(store *sqlite.Store, engine *payroll.Engine, logger *slog.Logger) *Handler {
	if engine == nil {
		engine = payroll.NewEngine(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Engine: engine, Logger: logger, now: time.Now}
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or replaces an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	salary, err := parseMoney("base_salary", req.BaseSalary)
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	admission, err := parseDate("admission", req.Admission)
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}

	emp, err := h.Store.SaveEmployee(r.Context(), payroll.Employee{
		ID:         req.ID,
		Name:       req.Name,
		BaseSalary: salary,
		Dependents: req.Dependents,
		Admission:  admission,
	})
	if err != nil {
		h.fail(w, r, "Failed to save employee", err)
		return
	}

	h.Logger.Info("employee saved", "employee_id", emp.ID)
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee and its stored runs.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete employee", err)
		return
	}
	h.Logger.Info("employee deleted", "employee_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAY ITEM HANDLERS
// =============================================================================

// ListPayItems returns the catalog ordered by code.
func (h *Handler) ListPayItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListPayItems(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list pay items", err)
		return
	}

	dtos := make([]PayItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toPayItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayItem returns one pay item.
func (h *Handler) GetPayItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetPayItem(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Failed to get pay item", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayItemDTO(item))
}

// CreatePayItem creates or replaces a pay item. The rule kind is derived
// from code and description when omitted.
func (h *Handler) CreatePayItem(w http.ResponseWriter, r *http.Request) {
	var req PayItemDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.Store.SavePayItem(r.Context(), req.toPayItem())
	if err != nil {
		h.fail(w, r, "Failed to save pay item", err)
		return
	}

	h.Logger.Info("pay item saved", "code", item.Code, "rule", item.Rule)
	writeJSON(w, http.StatusCreated, toPayItemDTO(item))
}

// ResolvePayItem computes the automatic amount of a pay item for an
// employee on a date.
func (h *Handler) ResolvePayItem(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	item, err := h.Store.GetPayItem(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Failed to get pay item", err)
		return
	}
	emp, err := h.Store.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	hours, err := parseOptionalDecimal("reference", req.Reference)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	entries, err := h.buildEntries(ctx, emp, date, req.Entries)
	if err != nil {
		h.fail(w, r, "Invalid entries", err)
		return
	}

	res, err := h.Engine.Resolve(payroll.ResolveInput{
		Item: item, Employee: emp, Entries: entries, Hours: hours, Date: date,
	})
	if err != nil {
		h.fail(w, r, "Failed to resolve pay item", err)
		return
	}

	writeJSON(w, http.StatusOK, ResolutionDTO{
		Code:      item.Code,
		Automatic: res.Automatic,
		Rule:      string(res.Rule),
		Reference: res.Reference.String(),
		Earning:   money(res.Earning),
		Deduction: money(res.Deduction),
	})
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CalculatePayroll computes the monthly payslip.
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req PayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	competence, err := parseDate("competence", req.Competence)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	entries, err := h.buildEntries(ctx, emp, competence, req.Entries)
	if err != nil {
		h.fail(w, r, "Invalid entries", err)
		return
	}

	result, err := h.Engine.Ordinary(payroll.OrdinaryInput{Employee: emp, Competence: competence, Entries: entries})
	if err != nil {
		h.fail(w, r, "Failed to calculate payroll", err)
		return
	}

	resp := toPayrollResponse(result)
	resp.RunID, err = h.saveRun(ctx, emp, sqlite.RunOrdinary, competence, result.Table, result.NetPay, resp)
	if err != nil {
		h.fail(w, r, "Failed to store calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalculateVacation computes the vacation receipt.
func (h *Handler) CalculateVacation(w http.ResponseWriter, r *http.Request) {
	var req VacationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}

	result, err := h.Engine.Vacation(payroll.VacationInput{
		Employee:          emp,
		Start:             start,
		Days:              req.Days,
		CashOut:           req.CashOut,
		AdvanceThirteenth: req.AdvanceThirteenth,
	})
	if err != nil {
		h.fail(w, r, "Failed to calculate vacation", err)
		return
	}

	resp := toVacationResponse(result)
	resp.RunID, err = h.saveRun(ctx, emp, sqlite.RunVacation, start, result.Table, result.NetPay, resp)
	if err != nil {
		h.fail(w, r, "Failed to store calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalculateThirteenth computes a 13th salary installment.
func (h *Handler) CalculateThirteenth(w http.ResponseWriter, r *http.Request) {
	var req ThirteenthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	installment, err := payroll.ParseInstallment(req.Installment)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	paid, err := parseOptionalDecimal("paid_advance", req.PaidAdvance)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}

	result, err := h.Engine.Thirteenth(payroll.ThirteenthInput{
		Employee: emp, Year: req.Year, Installment: installment, PaidAdvance: paid,
	})
	if err != nil {
		h.fail(w, r, "Failed to calculate 13th salary", err)
		return
	}

	resp := toThirteenthResponse(result)
	resp.RunID, err = h.saveRun(ctx, emp, sqlite.RunThirteenth, result.DueDate, result.Table, result.NetPay, resp)
	if err != nil {
		h.fail(w, r, "Failed to store calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalculateTermination computes the termination settlement.
func (h *Handler) CalculateTermination(w http.ResponseWriter, r *http.Request) {
	var req TerminationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	reason, err := payroll.ParseReason(req.Reason)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	notice := payroll.NoticeWorked
	if req.Notice != "" {
		if notice, err = payroll.ParseNoticeType(req.Notice); err != nil {
			h.fail(w, r, "Invalid request", err)
			return
		}
	}
	balance := decimal.Zero
	if req.FGTSBalance != "" {
		if balance, err = parseMoney("fgts_balance", req.FGTSBalance); err != nil {
			h.fail(w, r, "Invalid request", err)
			return
		}
	}

	result, err := h.Engine.Termination(payroll.TerminationInput{
		Employee:     emp,
		Date:         date,
		Reason:       reason,
		Notice:       notice,
		FGTSBalance:  balance,
		FineInTotals: req.FineInTotals,
	})
	if err != nil {
		h.fail(w, r, "Failed to calculate termination", err)
		return
	}

	resp := toTerminationResponse(result)
	resp.RunID, err = h.saveRun(ctx, emp, sqlite.RunTermination, date, result.Table, result.NetPay, resp)
	if err != nil {
		h.fail(w, r, "Failed to store calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns the stored calculations of an employee.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}

	runs, err := h.Store.ListRuns(ctx, emp.ID)
	if err != nil {
		h.fail(w, r, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// ListTaxTables returns every loaded table, oldest first.
func (h *Handler) ListTaxTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Tables().Tables())
}

// ComputeINSS evaluates the INSS table in effect on ?date for ?base.
func (h *Handler) ComputeINSS(w http.ResponseWriter, r *http.Request) {
	table, base, ok := h.taxQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toWithholdingDTO(tax.INSS(base, table.INSS)))
}

// ComputeIRRF evaluates the IRRF table in effect on ?date for ?base
// (already net of INSS) and ?dependents.
func (h *Handler) ComputeIRRF(w http.ResponseWriter, r *http.Request) {
	table, base, ok := h.taxQuery(w, r)
	if !ok {
		return
	}

	dependents := 0
	if s := r.URL.Query().Get("dependents"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.fail(w, r, "Invalid request", generic.Invalid("dependents", "%q is not an integer", s))
			return
		}
		dependents = n
	}

	result, err := tax.IRRF(base, dependents, table.IRRF)
	if err != nil {
		h.fail(w, r, "Failed to compute IRRF", err)
		return
	}
	writeJSON(w, http.StatusOK, toIRRFDTO(result))
}

// taxQuery reads ?base and ?date (default today) and picks the table.
func (h *Handler) taxQuery(w http.ResponseWriter, r *http.Request) (*tax.Table, decimal.Decimal, bool) {
	q := r.URL.Query()

	base, err := parseMoney("base", q.Get("base"))
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return nil, decimal.Zero, false
	}

	date := generic.FromTime(h.now())
	if s := q.Get("date"); s != "" {
		if date, err = parseDate("date", s); err != nil {
			h.fail(w, r, "Invalid request", err)
			return nil, decimal.Zero, false
		}
	}

	table, err := h.Engine.TableFor(date)
	if err != nil {
		h.fail(w, r, "No tax table", err)
		return nil, decimal.Zero, false
	}
	return table, base, true
}

// =============================================================================
// HELPERS
// =============================================================================

// buildEntries turns request lines into payslip entries. Lines without an
// amount are resolved against the entries that precede them.
func (h *Handler) buildEntries(ctx context.Context, emp payroll.Employee, date generic.TimePoint, reqs []EntryRequest) ([]payroll.LineEntry, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	catalog, err := h.Store.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]payroll.LineEntry, 0, len(reqs))
	for i, req := range reqs {
		field := fmt.Sprintf("entries[%d]", i)

		item, ok := catalog.Get(req.Code)
		if !ok {
			return nil, generic.Invalid(field+".code", "unknown pay item %q", req.Code)
		}
		reference, err := parseOptionalDecimal(field+".reference", req.Reference)
		if err != nil {
			return nil, err
		}

		if req.Amount == nil {
			if !item.Rule.IsAutomatic() {
				return nil, generic.Invalid(field+".amount", "is required for pay item %s", item.Code)
			}
			res, err := h.Engine.Resolve(payroll.ResolveInput{
				Item: item, Employee: emp, Entries: entries, Hours: reference, Date: date,
			})
			if err != nil {
				return nil, err
			}
			entries = append(entries, res.Entry(item))
			continue
		}

		amount, err := parseMoney(field+".amount", *req.Amount)
		if err != nil {
			return nil, err
		}
		entry := payroll.LineEntry{Item: item, Reference: decimal.Zero, Earning: decimal.Zero, Deduction: decimal.Zero}
		if reference != nil {
			entry.Reference = *reference
		}
		if item.IsEarning() {
			entry.Earning = amount
		} else {
			entry.Deduction = amount
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// saveRun stores the serialized response and returns the run ID.
func (h *Handler) saveRun(ctx context.Context, emp payroll.Employee, kind sqlite.RunKind, date generic.TimePoint, table string, net decimal.Decimal, resp any) (string, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	run, err := h.Store.SaveRun(ctx, sqlite.RunRecord{
		EmployeeID:    emp.ID,
		Kind:          kind,
		ReferenceDate: date,
		TaxTable:      table,
		NetPay:        net,
		ResultJSON:    string(body),
	})
	if err != nil {
		return "", err
	}
	h.Logger.Info("calculation stored",
		"run_id", run.ID, "employee_id", emp.ID, "kind", kind, "tax_table", table, "net_pay", money(net))
	return run.ID, nil
}

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message,
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseDate(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, generic.Invalid(field, "is required")
	}
	tp, err := generic.ParseTimePoint(s)
	if err != nil {
		return generic.TimePoint{}, generic.Invalid(field, "%q is not a YYYY-MM-DD date", s)
	}
	return tp, nil
}

func parseMoney(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, generic.Invalid(field, "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, generic.Invalid(field, "%q is not a decimal number", s)
	}
	return d, nil
}

func parseOptionalDecimal(field string, s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseMoney(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		var verr *generic.ValidationError
		if errors.As(err, &verr) {
			resp.Details = map[string]string{"field": verr.Field, "reason": verr.Reason}
		}
	}
	writeJSON(w, status, resp)
}
