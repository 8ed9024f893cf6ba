/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements allocation.TxRepository plus the employee, project, and
  department directories using SQLite. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  allocation.Repository / TxRepository
  allocation.EmployeeDirectory
  allocation.ProjectDirectory

KEY TABLES:
  allocations:  Allocation records (the engine's only mutable state)
  employees:    Employee directory (capacity, active flag, department)
  projects:     Project directory (date bounds)
  departments:  Rollup grouping

INDEXES:
  idx_allocations_employee_status: FindLiveByEmployee (hot path for every
  conflict/capacity check)
  idx_allocations_project, idx_allocations_dates: filtered listings

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a single *sql.DB. WithTx
  holds the write lock for the whole read-check-write, which is the
  application-level advisory lock that keeps two concurrent creations for
  the same employee from silently double-booking. With PostgreSQL a
  serializable transaction would take this role instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/allocations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  mgr := allocation.NewManager(store, store, store)

SEE ALSO:
  - allocation/store.go: Interface definitions
  - allocation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		dsn = "file::memory:?cache=shared&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxIdleConns(4)

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Allocation records
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		allocated_hours TEXT NOT NULL,
		actual_hours TEXT,
		role TEXT NOT NULL,
		hourly_rate TEXT,
		utilization_target TEXT,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: every conflict/capacity check loads live allocations
	CREATE INDEX IF NOT EXISTS idx_allocations_employee_status
		ON allocations(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_allocations_project
		ON allocations(project_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_dates
		ON allocations(start_date, end_date);

	-- Employee directory
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		weekly_capacity TEXT NOT NULL DEFAULT '40',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		department_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department_id);

	-- Project directory
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Departments (rollup grouping)
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ALLOCATION REPOSITORY (allocation.Repository interface)
// =============================================================================

const allocationColumns = `id, employee_id, project_id, start_date, end_date,
	allocated_hours, actual_hours, role, hourly_rate, utilization_target,
	status, notes, created_at, updated_at`

// Insert persists a new allocation record.
func (s *Store) Insert(ctx context.Context, a allocation.ResourceAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAllocation(ctx, s.db, a)
}

func insertAllocation(ctx context.Context, db execer, a allocation.ResourceAllocation) error {
	query := `
		INSERT INTO allocations
		(id, employee_id, project_id, start_date, end_date, allocated_hours,
		 actual_hours, role, hourly_rate, utilization_target, status, notes,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.ProjectID,
		a.StartDate.String(), a.EndDate.String(),
		a.AllocatedHours.Value.String(),
		nullHours(a.ActualHours),
		a.Role,
		nullDecimal(a.HourlyRate),
		nullDecimal(a.UtilizationTarget),
		a.Status, a.Notes,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

// Update replaces an existing allocation.
func (s *Store) Update(ctx context.Context, a allocation.ResourceAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAllocation(ctx, s.db, a)
}

func updateAllocation(ctx context.Context, db execer, a allocation.ResourceAllocation) error {
	query := `
		UPDATE allocations SET
			employee_id = ?, project_id = ?, start_date = ?, end_date = ?,
			allocated_hours = ?, actual_hours = ?, role = ?, hourly_rate = ?,
			utilization_target = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := db.ExecContext(ctx, query,
		a.EmployeeID, a.ProjectID,
		a.StartDate.String(), a.EndDate.String(),
		a.AllocatedHours.Value.String(),
		nullHours(a.ActualHours),
		a.Role,
		nullDecimal(a.HourlyRate),
		nullDecimal(a.UtilizationTarget),
		a.Status, a.Notes,
		a.UpdatedAt.UTC().Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return allocation.ErrAllocationNotFound
	}
	return nil
}

// Delete removes a record and returns it.
func (s *Store) Delete(ctx context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAllocation(ctx, s.db, id)
}

func deleteAllocation(ctx context.Context, db querier, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	existing, err := findAllocationByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM allocations WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete allocation: %w", err)
	}
	return existing, nil
}

// FindByID returns a single allocation.
func (s *Store) FindByID(ctx context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findAllocationByID(ctx, s.db, id)
}

func findAllocationByID(ctx context.Context, db querier, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	query := "SELECT " + allocationColumns + " FROM allocations WHERE id = ?"
	allocs, err := queryAllocations(ctx, db, query, id)
	if err != nil {
		return nil, err
	}
	if len(allocs) == 0 {
		return nil, allocation.ErrAllocationNotFound
	}
	return &allocs[0], nil
}

// FindLiveByEmployee returns all tentative/active allocations for an employee.
func (s *Store) FindLiveByEmployee(ctx context.Context, employeeID allocation.EmployeeID) ([]allocation.ResourceAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findLiveByEmployee(ctx, s.db, employeeID)
}

func findLiveByEmployee(ctx context.Context, db querier, employeeID allocation.EmployeeID) ([]allocation.ResourceAllocation, error) {
	query := "SELECT " + allocationColumns + ` FROM allocations
		WHERE employee_id = ? AND status IN ('tentative', 'active')
		ORDER BY start_date ASC, id ASC`
	return queryAllocations(ctx, db, query, employeeID)
}

// Find returns allocations matching the filter.
func (s *Store) Find(ctx context.Context, f allocation.Filter) ([]allocation.ResourceAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findAllocations(ctx, s.db, f)
}

func findAllocations(ctx context.Context, db querier, f allocation.Filter) ([]allocation.ResourceAllocation, error) {
	query := "SELECT " + allocationColumns + " FROM allocations WHERE 1=1"
	var args []any

	if f.EmployeeID != nil {
		query += " AND employee_id = ?"
		args = append(args, *f.EmployeeID)
	}
	if f.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *f.ProjectID)
	}
	if len(f.Statuses) > 0 {
		query += " AND status IN (?" + repeat(",?", len(f.Statuses)-1) + ")"
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	// Interval intersection: start <= To AND end >= From
	if f.To != nil {
		query += " AND start_date <= ?"
		args = append(args, f.To.String())
	}
	if f.From != nil {
		query += " AND end_date >= ?"
		args = append(args, f.From.String())
	}

	query += " ORDER BY start_date ASC, id ASC"
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, (page-1)*f.Limit)
	}

	return queryAllocations(ctx, db, query, args...)
}

func queryAllocations(ctx context.Context, db querier, query string, args ...any) ([]allocation.ResourceAllocation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []allocation.ResourceAllocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func scanAllocation(rows *sql.Rows) (allocation.ResourceAllocation, error) {
	var (
		a                 allocation.ResourceAllocation
		startDate         string
		endDate           string
		allocatedHours    string
		actualHours       sql.NullString
		hourlyRate        sql.NullString
		utilizationTarget sql.NullString
		notes             sql.NullString
		createdAt         string
		updatedAt         string
	)

	err := rows.Scan(
		&a.ID, &a.EmployeeID, &a.ProjectID, &startDate, &endDate,
		&allocatedHours, &actualHours, &a.Role, &hourlyRate,
		&utilizationTarget, &a.Status, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan allocation: %w", err)
	}

	a.StartDate, _ = allocation.ParseDate(startDate)
	a.EndDate, _ = allocation.ParseDate(endDate)
	a.AllocatedHours = allocation.Hours{Value: allocation.MustParseDecimal(allocatedHours)}
	if actualHours.Valid {
		h := allocation.Hours{Value: allocation.MustParseDecimal(actualHours.String)}
		a.ActualHours = &h
	}
	if hourlyRate.Valid {
		d := allocation.MustParseDecimal(hourlyRate.String)
		a.HourlyRate = &d
	}
	if utilizationTarget.Valid {
		d := allocation.MustParseDecimal(utilizationTarget.String)
		a.UtilizationTarget = &d
	}
	a.Notes = notes.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return a, nil
}

// =============================================================================
// TRANSACTIONAL REPOSITORY (allocation.TxRepository interface)
// =============================================================================

// WithTx executes a function within a database transaction. The store write
// lock is held for the duration, serializing concurrent read-check-write
// sequences (the "no silent double-booking" guarantee).
func (s *Store) WithTx(ctx context.Context, fn func(allocation.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txRepo{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txRepo struct {
	tx *sql.Tx
}

func (tr *txRepo) Insert(ctx context.Context, a allocation.ResourceAllocation) error {
	return insertAllocation(ctx, tr.tx, a)
}

func (tr *txRepo) Update(ctx context.Context, a allocation.ResourceAllocation) error {
	return updateAllocation(ctx, tr.tx, a)
}

func (tr *txRepo) Delete(ctx context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	return deleteAllocation(ctx, tr.tx, id)
}

func (tr *txRepo) FindByID(ctx context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	return findAllocationByID(ctx, tr.tx, id)
}

func (tr *txRepo) FindLiveByEmployee(ctx context.Context, employeeID allocation.EmployeeID) ([]allocation.ResourceAllocation, error) {
	return findLiveByEmployee(ctx, tr.tx, employeeID)
}

func (tr *txRepo) Find(ctx context.Context, f allocation.Filter) ([]allocation.ResourceAllocation, error) {
	return findAllocations(ctx, tr.tx, f)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, e allocation.Employee) error {
	// Directory writes bypass s.mu: the engine resolves employees while
	// WithTx holds the write lock, so directory access must not contend.
	query := `
		INSERT INTO employees (id, name, email, weekly_capacity, active, department_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			weekly_capacity = excluded.weekly_capacity,
			active = excluded.active,
			department_id = excluded.department_id
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Name, e.Email,
		e.Capacity().Value.String(),
		e.Active, nullID(string(e.DepartmentID)),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee or allocation.ErrEmployeeNotFound.
func (s *Store) GetEmployee(ctx context.Context, id allocation.EmployeeID) (*allocation.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, weekly_capacity, active, department_id FROM employees WHERE id = ?", id)

	e, err := scanEmployee(row.Scan)
	if err == sql.ErrNoRows {
		return nil, allocation.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]allocation.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, weekly_capacity, active, department_id FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []allocation.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee from the directory.
func (s *Store) DeleteEmployee(ctx context.Context, id allocation.EmployeeID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

func scanEmployee(scan func(...any) error) (*allocation.Employee, error) {
	var (
		e            allocation.Employee
		email        sql.NullString
		capacity     string
		departmentID sql.NullString
	)
	if err := scan(&e.ID, &e.Name, &email, &capacity, &e.Active, &departmentID); err != nil {
		return nil, err
	}
	e.Email = email.String
	e.WeeklyCapacity = allocation.Hours{Value: allocation.MustParseDecimal(capacity)}
	e.DepartmentID = allocation.DepartmentID(departmentID.String)
	return &e, nil
}

// =============================================================================
// PROJECT DIRECTORY
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p allocation.Project) error {
	query := `
		INSERT INTO projects (id, name, start_date, end_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.StartDate.String(), p.EndDate.String(), p.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetProject retrieves a project or allocation.ErrProjectNotFound.
func (s *Store) GetProject(ctx context.Context, id allocation.ProjectID) (*allocation.Project, error) {
	var (
		p          allocation.Project
		start, end string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date, active FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &start, &end, &p.Active)

	if err == sql.ErrNoRows {
		return nil, allocation.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	p.StartDate, _ = allocation.ParseDate(start)
	p.EndDate, _ = allocation.ParseDate(end)
	return &p, nil
}

// ListProjects returns all projects ordered by start date.
func (s *Store) ListProjects(ctx context.Context) ([]allocation.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, start_date, end_date, active FROM projects ORDER BY start_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []allocation.Project
	for rows.Next() {
		var (
			p          allocation.Project
			start, end string
		)
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &p.Active); err != nil {
			return nil, err
		}
		p.StartDate, _ = allocation.ParseDate(start)
		p.EndDate, _ = allocation.ParseDate(end)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project from the directory.
func (s *Store) DeleteProject(ctx context.Context, id allocation.ProjectID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

// SaveDepartment inserts or updates a department.
func (s *Store) SaveDepartment(ctx context.Context, d allocation.Department) error {
	query := `
		INSERT INTO departments (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.Name, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetDepartment retrieves a department or allocation.ErrDepartmentNotFound.
func (s *Store) GetDepartment(ctx context.Context, id allocation.DepartmentID) (*allocation.Department, error) {
	var d allocation.Department
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM departments WHERE id = ?", id).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return nil, allocation.ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by name.
func (s *Store) ListDepartments(ctx context.Context) ([]allocation.Department, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM departments ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []allocation.Department
	for rows.Next() {
		var d allocation.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"allocations", "employees", "projects", "departments"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullHours(h *allocation.Hours) sql.NullString {
	if h == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: h.Value.String(), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullID(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
