/*
handlers_test.go - HTTP tests for the payroll API

Runs the full router against an in-memory SQLite store:
- Employee and pay item management
- Each calculation endpoint and the stored runs
- Error mapping (400 / 404)
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/folha/payroll-engine/api"
	"github.com/folha/payroll-engine/payroll"
	"github.com/folha/payroll-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedCatalog(context.Background(), payroll.StandardItems()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewRouter(api.NewHandler(store, nil, logger), api.RouterOptions{})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createEmployee(t *testing.T, h http.Handler, salary, admission string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Name: "Maria Souza", BaseSalary: salary, Admission: admission,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.EmployeeDTO](t, rec).ID
}

func strp(s string) *string { return &s }

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CreateGetDelete(t *testing.T) {
	h := newServer(t)

	id := createEmployee(t, h, "3000", "2022-03-01")

	rec := do(t, h, http.MethodGet, "/api/employees/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[api.EmployeeDTO](t, rec)
	assert.Equal(t, "3000.00", emp.BaseSalary)
	assert.Equal(t, "2022-03-01", emp.Admission)

	rec = do(t, h, http.MethodGet, "/api/employees", nil)
	assert.Len(t, decode[[]api.EmployeeDTO](t, rec), 1)

	rec = do(t, h, http.MethodDelete, "/api/employees/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/employees/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployees_ValidationErrorsAre400(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Name: "Maria", BaseSalary: "3000", Admission: "01/03/2022",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admission", body.Details["field"])

	rec = do(t, h, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Name: "Maria", BaseSalary: "3000", Admission: "2022-03-01", Dependents: -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CALCULATIONS
// =============================================================================

func TestPayroll_ResolvesAutomaticEntries(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2020-01-01")

	// GIVEN: overtime and transport without amounts
	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/payroll", api.PayrollRequest{
		Competence: "2024-06-01",
		Entries: []api.EntryRequest{
			{Code: payroll.CodeBaseSalary, Amount: strp("3000.00")},
			{Code: payroll.CodeOvertime, Reference: strp("10")},
			{Code: payroll.CodeTransportDiscount},
		},
	})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.PayrollResponse](t, rec)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "2024", resp.Table)
	assert.Equal(t, "3204.55", resp.TotalEarnings)
	assert.Equal(t, "283.37", resp.INSS.Amount)
	assert.Equal(t, "7.29", resp.IRRF.Amount)
	assert.Equal(t, "simplified", resp.IRRF.Method)
	assert.Equal(t, "2733.89", resp.NetPay)
	assert.Equal(t, "256.36", resp.FGTS)
}

func TestPayroll_ManualItemNeedsAmount(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2020-01-01")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/payroll", api.PayrollRequest{
		Competence: "2024-06-01",
		Entries:    []api.EntryRequest{{Code: payroll.CodeSalaryAdvance}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/employees/"+id+"/payroll", api.PayrollRequest{
		Competence: "2024-06-01",
		Entries:    []api.EntryRequest{{Code: "999", Amount: strp("1")}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayroll_UnknownEmployeeIs404(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/employees/nobody/payroll", api.PayrollRequest{Competence: "2024-06-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVacation_StoredAsRun(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2023-01-01")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/vacation", api.VacationRequest{
		Start: "2024-07-01", Days: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.VacationResponse](t, rec)
	assert.Equal(t, "3000.00", resp.VacationPay)
	assert.Equal(t, "1000.00", resp.VacationBonus)
	assert.Equal(t, "3646.16", resp.NetPay)
	assert.Equal(t, "2024-06-29", resp.PaymentDue)

	rec = do(t, h, http.MethodGet, "/api/employees/"+id+"/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]api.RunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	assert.Equal(t, "vacation", runs[0].Kind)
	assert.Equal(t, "3646.16", runs[0].NetPay)
}

func TestVacation_InvalidDaysIs400(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2023-01-01")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/vacation", api.VacationRequest{
		Start: "2024-07-01", Days: 25, CashOut: true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThirteenth_SingleInstallment(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2024-03-10")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/thirteenth", api.ThirteenthRequest{
		Year: 2024, Installment: "single",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.ThirteenthResponse](t, rec)
	assert.Equal(t, 10, resp.Months)
	assert.Equal(t, "2500.00", resp.FullAmount)
	assert.Equal(t, "2296.18", resp.NetPay)
}

func TestTermination_FineReportedSeparately(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2022-03-01")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/termination", api.TerminationRequest{
		Date: "2024-03-01", Reason: "without_cause", Notice: "indemnified", FGTSBalance: "5000.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.TerminationResponse](t, rec)
	assert.Equal(t, 36, resp.NoticeDays)
	assert.Equal(t, "3600.00", resp.NoticePay)
	assert.Equal(t, "2024-04-06", resp.ProjectedDate)
	assert.Equal(t, "2027.10", resp.FGTSFine)
	assert.Equal(t, "4716.59", resp.NetPay)
	assert.Contains(t, resp.Warnings, "income_tax_not_computed")
}

func TestTermination_UnknownReasonIs400(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "3000.00", "2022-03-01")

	rec := do(t, h, http.MethodPost, "/api/employees/"+id+"/termination", api.TerminationRequest{
		Date: "2024-03-01", Reason: "retirement",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAY ITEMS
// =============================================================================

func TestPayItems_CatalogAndClassification(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/pay-items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.PayItemDTO](t, rec), len(payroll.StandardItems()))

	rec = do(t, h, http.MethodPost, "/api/pay-items", api.PayItemDTO{
		Code: "320", Description: "Adicional Noturno", Category: "earning", INSSBase: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "night_shift_20", decode[api.PayItemDTO](t, rec).Rule)

	rec = do(t, h, http.MethodGet, "/api/pay-items/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayItems_Resolve(t *testing.T) {
	h := newServer(t)
	id := createEmployee(t, h, "2200.00", "2020-01-01")

	rec := do(t, h, http.MethodPost, "/api/pay-items/"+payroll.CodeOvertime+"/resolve", api.ResolveRequest{
		EmployeeID: id, Date: "2024-06-01", Reference: strp("10"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[api.ResolutionDTO](t, rec)
	assert.True(t, res.Automatic)
	assert.Equal(t, "150.00", res.Earning)
}

// =============================================================================
// TAX
// =============================================================================

func TestTax_INSSAndIRRF(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/tax/inss?base=10000&date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "908.85", decode[api.WithholdingDTO](t, rec).Amount)

	rec = do(t, h, http.MethodGet, "/api/tax/irrf?base=2000&date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", decode[api.IRRFDTO](t, rec).Amount)

	rec = do(t, h, http.MethodGet, "/api/tax/irrf?base=5000&dependents=-1&date=2024-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tax/inss?base=1000&date=2020-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTax_Tables(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/tax/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tables []struct {
		Name          string `json:"name"`
		EffectiveFrom string `json:"effective_from"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 3)
	assert.Equal(t, "2024", tables[0].Name)
	assert.Equal(t, "2024-02-01", tables[0].EffectiveFrom)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestStoreFailure_LoggedWithRequestID(t *testing.T) {
	// GIVEN: a server whose store has gone away
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := api.NewRouter(api.NewHandler(store, nil, logger), api.RouterOptions{})
	require.NoError(t, store.Close())

	// WHEN
	rec := do(t, h, http.MethodGet, "/api/employees", nil)

	// THEN: 500, and the error line can be traced to the request
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errorLines []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["level"] == "ERROR" {
			errorLines = append(errorLines, entry)
		}
	}
	require.Len(t, errorLines, 1)
	assert.Equal(t, "Failed to list employees", errorLines[0]["msg"])
	assert.NotEmpty(t, errorLines[0]["request_id"])
}
