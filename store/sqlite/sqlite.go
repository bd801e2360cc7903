/*
Package sqlite persists the records the payroll engine consumes and produces.

PURPOSE:
  The calculators in package payroll are pure and perform no I/O. This
  package is the collaborator that keeps employees, the pay item catalog
  and an audit trail of calculation runs between requests.

KEY TABLES:
  employees:        Employee master data (salary, dependents, admission)
  pay_items:        Rubrica catalog with tax-base flags and rule kind
  calculation_runs: One row per computed payslip/vacation/13th/termination,
                    with the full result serialized as JSON

MONEY:
  Amounts are stored as TEXT holding the decimal string, never REAL.
  Dates are stored as YYYY-MM-DD, timestamps as RFC3339.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows one writer at a time.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  if err := store.SeedCatalog(ctx, payroll.StandardItems()); err != nil {
      log.Fatal(err)
  }

SEE ALSO:
  - payroll/types.go: Employee and PayItem
  - api/handlers.go: HTTP layer using this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/folha/payroll-engine/generic"
	"github.com/folha/payroll-engine/payroll"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store persists payroll records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		dependents INTEGER NOT NULL DEFAULT 0,
		admission TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pay_items (
		code TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		category TEXT NOT NULL CHECK (category IN ('earning', 'deduction')),
		inss_base INTEGER NOT NULL DEFAULT 0,
		irrf_base INTEGER NOT NULL DEFAULT 0,
		fgts_base INTEGER NOT NULL DEFAULT 0,
		rule TEXT NOT NULL DEFAULT 'none'
	);

	CREATE TABLE IF NOT EXISTS calculation_runs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		reference_date TEXT NOT NULL,
		tax_table TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_employee_date
		ON calculation_runs(employee_id, reference_date DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or updates an employee. An empty ID gets a new UUID;
// the stored employee is returned.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) (payroll.Employee, error) {
	if err := emp.Validate(); err != nil {
		return payroll.Employee{}, err
	}
	if emp.Name == "" {
		return payroll.Employee{}, generic.Invalid("name", "is required")
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, base_salary, dependents, admission, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_salary = excluded.base_salary,
			dependents = excluded.dependents,
			admission = excluded.admission,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.BaseSalary.String(), emp.Dependents, emp.Admission.String(), now, now,
	)
	if err != nil {
		return payroll.Employee{}, fmt.Errorf("save employee %s: %w", emp.ID, err)
	}
	return emp, nil
}

// GetEmployee returns generic.ErrNotFound when id is unknown.
func (s *Store) GetEmployee(ctx context.Context, id string) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, base_salary, dependents, admission FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Employee{}, fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	return emp, err
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, base_salary, dependents, admission FROM employees ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []payroll.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee and its runs.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (payroll.Employee, error) {
	var emp payroll.Employee
	var salary, admission string
	if err := row.Scan(&emp.ID, &emp.Name, &salary, &emp.Dependents, &admission); err != nil {
		return payroll.Employee{}, err
	}

	var err error
	if emp.BaseSalary, err = decimal.NewFromString(salary); err != nil {
		return payroll.Employee{}, fmt.Errorf("employee %s: corrupt base_salary %q: %w", emp.ID, salary, err)
	}
	if emp.Admission, err = generic.ParseTimePoint(admission); err != nil {
		return payroll.Employee{}, fmt.Errorf("employee %s: corrupt admission %q: %w", emp.ID, admission, err)
	}
	return emp, nil
}

// =============================================================================
// PAY ITEMS
// =============================================================================

// SavePayItem validates, classifies and upserts a pay item.
func (s *Store) SavePayItem(ctx context.Context, item payroll.PayItem) (payroll.PayItem, error) {
	prepared, err := payroll.Prepare(item)
	if err != nil {
		return payroll.PayItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsertPayItem(ctx, s.db, prepared, true); err != nil {
		return payroll.PayItem{}, fmt.Errorf("save pay item %s: %w", prepared.Code, err)
	}
	return prepared, nil
}

// SeedCatalog inserts items that are not stored yet. Existing rows keep
// their stored definition.
func (s *Store) SeedCatalog(ctx context.Context, items []payroll.PayItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		prepared, err := payroll.Prepare(item)
		if err != nil {
			return err
		}
		if err := upsertPayItem(ctx, tx, prepared, false); err != nil {
			return fmt.Errorf("seed pay item %s: %w", prepared.Code, err)
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPayItem(ctx context.Context, db execer, item payroll.PayItem, overwrite bool) error {
	conflict := "DO NOTHING"
	if overwrite {
		conflict = `DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			inss_base = excluded.inss_base,
			irrf_base = excluded.irrf_base,
			fgts_base = excluded.fgts_base,
			rule = excluded.rule`
	}
	query := `
		INSERT INTO pay_items (code, description, category, inss_base, irrf_base, fgts_base, rule)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) ` + conflict

	_, err := db.ExecContext(ctx, query,
		item.Code, item.Description, string(item.Category),
		item.INSSBase, item.IRRFBase, item.FGTSBase, string(item.Rule),
	)
	return err
}

// GetPayItem returns generic.ErrNotFound when code is unknown.
func (s *Store) GetPayItem(ctx context.Context, code string) (payroll.PayItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT code, description, category, inss_base, irrf_base, fgts_base, rule FROM pay_items WHERE code = ?", code)
	item, err := scanPayItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.PayItem{}, fmt.Errorf("pay item %s: %w", code, generic.ErrNotFound)
	}
	return item, err
}

// ListPayItems returns the catalog ordered by code.
func (s *Store) ListPayItems(ctx context.Context) ([]payroll.PayItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, description, category, inss_base, irrf_base, fgts_base, rule FROM pay_items ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []payroll.PayItem{}
	for rows.Next() {
		item, err := scanPayItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Catalog loads the stored items into a payroll.Catalog.
func (s *Store) Catalog(ctx context.Context) (*payroll.Catalog, error) {
	items, err := s.ListPayItems(ctx)
	if err != nil {
		return nil, err
	}
	return payroll.NewCatalog(items...)
}

func scanPayItem(row scanner) (payroll.PayItem, error) {
	var item payroll.PayItem
	var category, rule string
	if err := row.Scan(&item.Code, &item.Description, &category,
		&item.INSSBase, &item.IRRFBase, &item.FGTSBase, &rule); err != nil {
		return payroll.PayItem{}, err
	}
	item.Category = payroll.Category(category)

	kind, err := payroll.ParseRuleKind(rule)
	if err != nil {
		return payroll.PayItem{}, fmt.Errorf("pay item %s: %w", item.Code, err)
	}
	item.Rule = kind
	return item, nil
}

// =============================================================================
// CALCULATION RUNS
// =============================================================================

// RunKind names the calculation that produced a run.
type RunKind string

const (
	RunOrdinary    RunKind = "ordinary"
	RunVacation    RunKind = "vacation"
	RunThirteenth  RunKind = "thirteenth"
	RunTermination RunKind = "termination"
)

// RunRecord is a stored calculation result.
type RunRecord struct {
	ID            string
	EmployeeID    string
	Kind          RunKind
	ReferenceDate generic.TimePoint
	TaxTable      string
	NetPay        decimal.Decimal
	ResultJSON    string
	CreatedAt     time.Time
}

// SaveRun stores a run, assigning ID and CreatedAt when empty.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) (RunRecord, error) {
	if run.EmployeeID == "" {
		return RunRecord{}, generic.Invalid("employee_id", "is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_runs (id, employee_id, kind, reference_date, tax_table, net_pay, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.EmployeeID, string(run.Kind), run.ReferenceDate.String(), run.TaxTable,
		run.NetPay.String(), run.ResultJSON, run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("save run for %s: %w", run.EmployeeID, err)
	}
	return run, nil
}

// ListRuns returns an employee's runs, most recent reference date first.
func (s *Store) ListRuns(ctx context.Context, employeeID string) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, kind, reference_date, tax_table, net_pay, result_json, created_at
		FROM calculation_runs
		WHERE employee_id = ?
		ORDER BY reference_date DESC, created_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var kind, refDate, net, createdAt string
		if err := rows.Scan(&r.ID, &r.EmployeeID, &kind, &refDate, &r.TaxTable, &net, &r.ResultJSON, &createdAt); err != nil {
			return nil, err
		}
		r.Kind = RunKind(kind)
		if r.ReferenceDate, err = generic.ParseTimePoint(refDate); err != nil {
			return nil, fmt.Errorf("run %s: corrupt reference_date %q: %w", r.ID, refDate, err)
		}
		if r.NetPay, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("run %s: corrupt net_pay %q: %w", r.ID, net, err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: corrupt created_at %q: %w", r.ID, createdAt, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
