/*
handlers.go - HTTP API handlers for the allocation engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Allocations:
    GET    /api/allocations                 List allocations (filterable)
    POST   /api/allocations                 Create allocation
    GET    /api/allocations/{id}            Get allocation
    PUT    /api/allocations/{id}            Update allocation
    DELETE /api/allocations/{id}            Delete allocation
    POST   /api/allocations/{id}/confirm    tentative -> active
    POST   /api/allocations/{id}/complete   active -> completed
    POST   /api/allocations/{id}/cancel     any live -> cancelled

  Employees:
    GET    /api/employees                   List employees
    POST   /api/employees                   Create/update employee
    GET    /api/employees/{id}              Get employee
    DELETE /api/employees/{id}              Delete employee
    GET    /api/employees/{id}/conflicts    Advisory conflict check
    GET    /api/employees/{id}/capacity     Capacity validation

  Projects, Departments: standard CRUD under /api/projects, /api/departments.

  Reports:
    GET    /api/reports/overallocation      Over-allocation warnings per week
    GET    /api/reports/utilization         Utilization summary
    GET    /api/reports/departments/{id}/trend  Weekly department trend

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation errors, malformed input
  - 404: missing allocation/employee/project/department
  - 409: hard conflicts (conflict list in body), illegal state transitions
  - 422: capacity exceeded under strict enforcement
  - 500: storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Directory is the employee/project/department store behind the API. Both
// the SQLite store and the in-memory store satisfy it.
type Directory interface {
	allocation.EmployeeDirectory
	allocation.ProjectDirectory

	SaveEmployee(ctx context.Context, e allocation.Employee) error
	DeleteEmployee(ctx context.Context, id allocation.EmployeeID) error

	SaveProject(ctx context.Context, p allocation.Project) error
	ListProjects(ctx context.Context) ([]allocation.Project, error)
	DeleteProject(ctx context.Context, id allocation.ProjectID) error

	SaveDepartment(ctx context.Context, d allocation.Department) error
	GetDepartment(ctx context.Context, id allocation.DepartmentID) (*allocation.Department, error)
	ListDepartments(ctx context.Context) ([]allocation.Department, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo      allocation.TxRepository
	Directory Directory

	Manager    *allocation.Manager
	Conflicts  *allocation.ConflictDetector
	Validator  *allocation.CapacityValidator
	Analyzer   *allocation.Analyzer
	Aggregator *allocation.Aggregator
}

// NewHandler wires the engine components over the given repository and
// directory store.
func NewHandler(repo allocation.TxRepository, dir Directory) *Handler {
	analyzer := &allocation.Analyzer{Repo: repo, Employees: dir}
	conflicts := &allocation.ConflictDetector{Repo: repo, Projects: dir}
	return &Handler{
		Repo:      repo,
		Directory: dir,
		Manager:   allocation.NewManager(repo, dir, dir),
		Conflicts: conflicts,
		Validator: &allocation.CapacityValidator{
			Employees: dir,
			Analyzer:  analyzer,
			Conflicts: conflicts,
		},
		Analyzer:   analyzer,
		Aggregator: &allocation.Aggregator{Repo: repo, Employees: dir},
	}
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// ListAllocations returns allocations matching the query filters.
// GET /api/allocations?employee_id=&project_id=&status=&from=&to=&page=&limit=
func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f allocation.Filter
	if v := q.Get("employee_id"); v != "" {
		id := allocation.EmployeeID(v)
		f.EmployeeID = &id
	}
	if v := q.Get("project_id"); v != "" {
		id := allocation.ProjectID(v)
		f.ProjectID = &id
	}
	for _, s := range q["status"] {
		status := allocation.Status(s)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid status filter: "+s, nil)
			return
		}
		f.Statuses = append(f.Statuses, status)
	}
	if v := q.Get("from"); v != "" {
		d, err := allocation.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		f.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := allocation.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		f.To = &d
	}
	f.Page = intQuery(q.Get("page"))
	f.Limit = intQuery(q.Get("limit"))

	allocs, err := h.Repo.Find(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]AllocationDTO, len(allocs))
	for i := range allocs {
		dtos[i] = toAllocationDTO(&allocs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAllocation returns a single allocation.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	a, err := h.Repo.FindByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// CreateAllocation validates and persists a new allocation. On hard conflict
// the 409 body carries the full conflict report.
func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req CreateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := allocation.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := allocation.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	mode, ok := parseEnforcement(req.Enforcement)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid enforcement (use checked, strict or none)", nil)
		return
	}

	in := allocation.CreateInput{
		EmployeeID:     allocation.EmployeeID(req.EmployeeID),
		ProjectID:      allocation.ProjectID(req.ProjectID),
		StartDate:      start,
		EndDate:        end,
		AllocatedHours: allocation.NewHours(req.AllocatedHours),
		Role:           req.Role,
		Notes:          req.Notes,
		Status:         allocation.Status(req.Status),
	}
	if req.HourlyRate != nil {
		v := decimal.NewFromFloat(*req.HourlyRate)
		in.HourlyRate = &v
	}
	if req.UtilizationTarget != nil {
		v := decimal.NewFromFloat(*req.UtilizationTarget)
		in.UtilizationTarget = &v
	}

	result, err := h.Manager.Create(r.Context(), in, mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(result))
}

// UpdateAllocation applies a partial update.
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	var req UpdateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	mode, ok := parseEnforcement(req.Enforcement)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid enforcement (use checked, strict or none)", nil)
		return
	}

	var in allocation.UpdateInput
	if req.StartDate != nil {
		d, err := allocation.ParseDate(*req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
		in.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := allocation.ParseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
			return
		}
		in.EndDate = &d
	}
	if req.AllocatedHours != nil {
		v := allocation.NewHours(*req.AllocatedHours)
		in.AllocatedHours = &v
	}
	if req.ActualHours != nil {
		v := allocation.NewHours(*req.ActualHours)
		in.ActualHours = &v
	}
	if req.HourlyRate != nil {
		v := decimal.NewFromFloat(*req.HourlyRate)
		in.HourlyRate = &v
	}
	in.Role = req.Role
	in.Notes = req.Notes
	if req.Status != nil {
		s := allocation.Status(*req.Status)
		in.Status = &s
	}

	result, err := h.Manager.Update(r.Context(), id, in, mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// DeleteAllocation removes an allocation and returns the removed record.
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	removed, err := h.Manager.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(removed))
}

// ConfirmAllocation promotes a tentative allocation to active.
func (h *Handler) ConfirmAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	a, err := h.Manager.Confirm(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// CompleteAllocation closes out an active allocation, optionally recording
// actual hours worked.
func (h *Handler) CompleteAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	var actual *allocation.Hours
	if r.ContentLength > 0 {
		var req CompleteAllocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.ActualHours != nil {
			v := allocation.NewHours(*req.ActualHours)
			actual = &v
		}
	}

	a, err := h.Manager.Complete(r.Context(), id, actual)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// CancelAllocation cancels a tentative or active allocation.
func (h *Handler) CancelAllocation(w http.ResponseWriter, r *http.Request) {
	id := allocation.AllocationID(chi.URLParam(r, "id"))

	a, err := h.Manager.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// =============================================================================
// CONFLICT / CAPACITY HANDLERS
// =============================================================================

// CheckConflicts runs the advisory overlap check for an employee over a
// date range. Always 200; conflicts are data, not errors, on this path.
// GET /api/employees/{id}/conflicts?start=&end=&exclude=
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	employeeID := allocation.EmployeeID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	start, err := allocation.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := allocation.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}
	exclude := allocation.AllocationID(q.Get("exclude"))

	report, err := h.Conflicts.CheckConflicts(r.Context(), employeeID, start, end, exclude)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConflictReportDTO(report))
}

// ValidateCapacity reports utilization pressure for a candidate allocation.
// GET /api/employees/{id}/capacity?hours=&start=&end=&exclude=
func (h *Handler) ValidateCapacity(w http.ResponseWriter, r *http.Request) {
	employeeID := allocation.EmployeeID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	hours, err := decimal.NewFromString(q.Get("hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	start, err := allocation.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := allocation.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}
	exclude := allocation.AllocationID(q.Get("exclude"))

	result, err := h.Validator.ValidateCapacity(
		r.Context(), employeeID, allocation.Hours{Value: hours}, start, end, exclude)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCapacityValidationDTO(result))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// OverAllocationReport scans employee-weeks for capacity overages.
// GET /api/reports/overallocation?start=&end=&employee_id=
func (h *Handler) OverAllocationReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := allocation.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := allocation.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}
	var employeeID *allocation.EmployeeID
	if v := q.Get("employee_id"); v != "" {
		id := allocation.EmployeeID(v)
		employeeID = &id
	}

	summary, err := h.Analyzer.AnalyzeRange(r.Context(), start, end, employeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverAllocationSummaryDTO(summary))
}

// UtilizationReport returns the utilization rollup. Dates default to the
// rolling four-week window when omitted.
// GET /api/reports/utilization?from=&to=&employee_id=
func (h *Handler) UtilizationReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := optionalDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	var employeeID *allocation.EmployeeID
	if v := q.Get("employee_id"); v != "" {
		id := allocation.EmployeeID(v)
		employeeID = &id
	}

	summary, err := h.Aggregator.Summary(r.Context(), from, to, employeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUtilizationSummaryDTO(summary))
}

// DepartmentTrend returns the weekly utilization series for a department.
// GET /api/reports/departments/{id}/trend?from=&to=
func (h *Handler) DepartmentTrend(w http.ResponseWriter, r *http.Request) {
	departmentID := allocation.DepartmentID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	from, err := optionalDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	points, err := h.Aggregator.DepartmentTrend(r.Context(), departmentID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		avg, _ := p.AverageUtilization.Float64()
		dtos[i] = TrendPointDTO{
			WeekStart:          p.Week.Start.String(),
			WeekEnd:            p.Week.End.String(),
			AverageUtilization: avg,
			WarningCount:       p.WarningCount,
			AllocationCount:    p.AllocationCount,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = toEmployeeDTO(&employees[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := allocation.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Directory.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// SaveEmployee creates or updates an employee.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req SaveEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	emp := allocation.Employee{
		ID:             allocation.EmployeeID(req.ID),
		Name:           req.Name,
		Email:          req.Email,
		WeeklyCapacity: allocation.NewHours(req.WeeklyCapacity),
		Active:         active,
		DepartmentID:   allocation.DepartmentID(req.DepartmentID),
	}

	if err := h.Directory.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(&emp))
}

// DeleteEmployee removes an employee from the directory.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := allocation.EmployeeID(chi.URLParam(r, "id"))

	if err := h.Directory.DeleteEmployee(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Directory.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = toProjectDTO(&projects[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := allocation.ProjectID(chi.URLParam(r, "id"))

	p, err := h.Directory.GetProject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// SaveProject creates or updates a project.
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	start, err := allocation.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := allocation.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not precede start_date", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p := allocation.Project{
		ID:        allocation.ProjectID(req.ID),
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Active:    active,
	}

	if err := h.Directory.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(&p))
}

// DeleteProject removes a project from the directory.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := allocation.ProjectID(chi.URLParam(r, "id"))

	if err := h.Directory.DeleteProject(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEPARTMENT HANDLERS
// =============================================================================

// ListDepartments returns all departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Directory.ListDepartments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list departments", err)
		return
	}

	dtos := make([]DepartmentDTO, len(departments))
	for i, d := range departments {
		dtos[i] = DepartmentDTO{ID: string(d.ID), Name: d.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveDepartment creates or updates a department.
func (h *Handler) SaveDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	d := allocation.Department{ID: allocation.DepartmentID(req.ID), Name: req.Name}
	if err := h.Directory.SaveDepartment(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save department", err)
		return
	}
	writeJSON(w, http.StatusCreated, DepartmentDTO{ID: string(d.ID), Name: d.Name})
}

// GetDepartment returns a single department.
func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id := allocation.DepartmentID(chi.URLParam(r, "id"))

	d, err := h.Directory.GetDepartment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DepartmentDTO{ID: string(d.ID), Name: d.Name})
}

// =============================================================================
// HELPERS
// =============================================================================

// ErrorResponse is the JSON error envelope. Conflict and capacity rejections
// carry their reports so clients can render the details.
type ErrorResponse struct {
	Error      string                 `json:"error"`
	Details    string                 `json:"details,omitempty"`
	Conflicts  *ConflictReportDTO     `json:"conflicts,omitempty"`
	Validation *CapacityValidationDTO `json:"validation,omitempty"`
}

func toResultDTO(res *allocation.CreateResult) AllocationResultDTO {
	return AllocationResultDTO{
		Allocation: toAllocationDTO(res.Allocation),
		Warnings:   res.Warnings,
		Conflicts:  toConflictReportDTO(res.Conflicts),
		Validation: toCapacityValidationDTO(res.Validation),
	}
}

func parseEnforcement(s string) (allocation.EnforcementMode, bool) {
	switch s {
	case "", "checked":
		return allocation.EnforceChecked, true
	case "strict":
		return allocation.EnforceStrict, true
	case "none":
		return allocation.EnforceNone, true
	default:
		return allocation.EnforceChecked, false
	}
}

func optionalDate(s string) (*allocation.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := allocation.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intQuery(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		conflictErr   *allocation.ConflictError
		capacityErr   *allocation.CapacityExceededError
		transitionErr *allocation.StateTransitionError
	)

	switch {
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     err.Error(),
			Conflicts: toConflictReportDTO(conflictErr.Report),
		})
	case errors.As(err, &capacityErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:      err.Error(),
			Validation: toCapacityValidationDTO(capacityErr.Result),
		})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case allocation.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case allocation.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
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
	}
	writeJSON(w, status, resp)
}
