/*
lifecycle.go - Allocation Lifecycle Manager

PURPOSE:
  Owns the allocation state machine and all mutation rules:

  ┌───────────┐  Confirm   ┌─────────┐  Complete  ┌───────────┐
  │ tentative │ ─────────▶ │ active  │ ─────────▶ │ completed │
  └───────────┘            └─────────┘            └───────────┘
        │                       │
        │ Cancel                │ Cancel
        ▼                       ▼
  ┌───────────┐           ┌───────────┐
  │ cancelled │ ◀────────┤ cancelled │
  └───────────┘           └───────────┘

  No transition leaves a terminal state.

ENFORCEMENT MODES:
  The loose "force" boolean of the source system is modeled as an explicit
  enum so the bypass is auditable:

    EnforceChecked  reject hard conflicts; capacity overage only warns
    EnforceStrict   additionally reject utilization > 100%
    EnforceNone     bypass conflict/capacity checks entirely

ATOMICITY:
  Create and Update run their read-check-write inside Repository.WithTx so a
  request timeout or storage error never leaves a partial record, and two
  concurrent writers for the same employee serialize.

SEE ALSO:
  - conflict.go, capacity.go: The checks run in checked/strict mode
  - errors.go: The distinct error kinds callers branch on
*/
package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENFORCEMENT MODE
// =============================================================================

type EnforcementMode int

const (
	// EnforceChecked is the default: hard conflicts reject, capacity
	// overage rides along as warnings.
	EnforceChecked EnforcementMode = iota

	// EnforceStrict also rejects when utilization would exceed 100%.
	EnforceStrict

	// EnforceNone bypasses conflict and capacity checks (caller override).
	EnforceNone
)

func (m EnforcementMode) String() string {
	switch m {
	case EnforceStrict:
		return "strict"
	case EnforceNone:
		return "none"
	default:
		return "checked"
	}
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput carries the caller-supplied fields for a new allocation.
type CreateInput struct {
	EmployeeID     EmployeeID
	ProjectID      ProjectID
	StartDate      Date
	EndDate        Date
	AllocatedHours Hours
	Role           string

	HourlyRate        *decimal.Decimal
	UtilizationTarget *decimal.Decimal
	Notes             string

	// Status may be tentative or active; empty defaults to tentative.
	Status Status
}

// UpdateInput mutates mutable fields; nil pointers leave fields untouched.
type UpdateInput struct {
	StartDate      *Date
	EndDate        *Date
	AllocatedHours *Hours
	ActualHours    *Hours
	Role           *string
	HourlyRate     *decimal.Decimal
	Notes          *string
	Status         *Status
}

func (in UpdateInput) touchesSchedule() bool {
	return in.StartDate != nil || in.EndDate != nil || in.AllocatedHours != nil
}

// CreateResult returns the persisted record alongside the advisory check
// results so non-fatal warnings always reach the caller.
type CreateResult struct {
	Allocation *ResourceAllocation
	Conflicts  *ConflictReport
	Validation *CapacityValidationResult
	Warnings   []string
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager drives the allocation lifecycle. Construct with explicit
// dependencies; there is no ambient global state.
type Manager struct {
	Repo      TxRepository
	Employees EmployeeDirectory
	Projects  ProjectDirectory

	// Overridable for tests.
	Now   func() time.Time
	NewID func() AllocationID
}

// NewManager wires a manager with the default clock and UUID identifiers.
func NewManager(repo TxRepository, employees EmployeeDirectory, projects ProjectDirectory) *Manager {
	return &Manager{
		Repo:      repo,
		Employees: employees,
		Projects:  projects,
		Now:       time.Now,
		NewID:     func() AllocationID { return AllocationID("alloc-" + uuid.NewString()) },
	}
}

// detector and validator are built per call against the repository view in
// effect (the transactional view inside WithTx).
func (m *Manager) detector(repo Repository) *ConflictDetector {
	return &ConflictDetector{Repo: repo, Projects: m.Projects}
}

func (m *Manager) validator(repo Repository) *CapacityValidator {
	return &CapacityValidator{
		Employees: m.Employees,
		Analyzer:  &Analyzer{Repo: repo, Employees: m.Employees},
		Conflicts: m.detector(repo),
	}
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates, optionally enforces conflict/capacity rules per mode,
// and persists a new allocation. Initial status is tentative unless the
// caller asks for active.
func (m *Manager) Create(ctx context.Context, in CreateInput, mode EnforcementMode) (*CreateResult, error) {
	if err := m.validateCreate(ctx, in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusTentative
	}

	now := m.Now().UTC()
	record := ResourceAllocation{
		ID:                m.NewID(),
		EmployeeID:        in.EmployeeID,
		ProjectID:         in.ProjectID,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		AllocatedHours:    in.AllocatedHours,
		Role:              in.Role,
		HourlyRate:        in.HourlyRate,
		UtilizationTarget: in.UtilizationTarget,
		Status:            status,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	result := &CreateResult{}
	err := m.Repo.WithTx(ctx, func(repo Repository) error {
		if mode != EnforceNone {
			report, validation, err := m.runChecks(ctx, repo, in.EmployeeID,
				in.AllocatedHours, in.StartDate, in.EndDate, "", mode)
			if err != nil {
				return err
			}
			result.Conflicts = report
			result.Validation = validation
			result.Warnings = validation.Warnings
		}

		if err := repo.Insert(ctx, record); err != nil {
			return &StorageError{Op: "insert allocation", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Allocation = &record
	return result, nil
}

func (m *Manager) validateCreate(ctx context.Context, in CreateInput) error {
	if in.EmployeeID == "" {
		return &ValidationError{Field: "employee_id", Message: "required"}
	}
	if in.ProjectID == "" {
		return &ValidationError{Field: "project_id", Message: "required"}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}
	if !in.StartDate.Before(in.EndDate) {
		return ErrInvalidInterval
	}
	if err := validateHours(in.AllocatedHours); err != nil {
		return err
	}
	if in.Role == "" {
		return &ValidationError{Field: "role", Message: "required"}
	}
	if in.Status != "" && in.Status != StatusTentative && in.Status != StatusActive {
		return &ValidationError{Field: "status", Message: "initial status must be tentative or active"}
	}

	emp, err := m.Employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return err
	}
	if !emp.Active {
		return &ValidationError{Field: "employee_id", Message: "employee is not active"}
	}

	project, err := m.Projects.GetProject(ctx, in.ProjectID)
	if err != nil {
		return err
	}
	span := Interval{Start: in.StartDate, End: in.EndDate}
	if !project.Span().ContainsInterval(span) {
		return &ValidationError{
			Field:   "dates",
			Message: "allocation dates must fall within project bounds " + project.Span().String(),
		}
	}
	return nil
}

func validateHours(h Hours) error {
	if !h.IsPositive() {
		return &ValidationError{Field: "allocated_hours", Message: "must be positive"}
	}
	if h.GreaterThan(MaxAllocatedHours) {
		return &ValidationError{Field: "allocated_hours", Message: "exceeds sanity cap of " + MaxAllocatedHours.String()}
	}
	return nil
}

// runChecks executes conflict + capacity validation and applies the
// enforcement policy for the given mode.
func (m *Manager) runChecks(
	ctx context.Context,
	repo Repository,
	employeeID EmployeeID,
	hours Hours,
	start, end Date,
	exclude AllocationID,
	mode EnforcementMode,
) (*ConflictReport, *CapacityValidationResult, error) {
	validation, err := m.validator(repo).ValidateCapacity(ctx, employeeID, hours, start, end, exclude)
	if err != nil {
		return nil, nil, err
	}
	report, err := m.detector(repo).CheckConflicts(ctx, employeeID, start, end, exclude)
	if err != nil {
		return nil, nil, err
	}

	if report.HasConflicts {
		return nil, nil, &ConflictError{EmployeeID: employeeID, Report: report}
	}
	if mode == EnforceStrict && validation.UtilizationRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, nil, &CapacityExceededError{EmployeeID: employeeID, Result: validation}
	}
	return report, validation, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Confirm moves a tentative allocation to active.
func (m *Manager) Confirm(ctx context.Context, id AllocationID) (*ResourceAllocation, error) {
	return m.transition(ctx, id, StatusActive, func(a *ResourceAllocation) {})
}

// Complete moves an active allocation to completed, optionally recording
// the actual hours worked.
func (m *Manager) Complete(ctx context.Context, id AllocationID, actualHours *Hours) (*ResourceAllocation, error) {
	if actualHours != nil && actualHours.IsNegative() {
		return nil, &ValidationError{Field: "actual_hours", Message: "must not be negative"}
	}
	return m.transition(ctx, id, StatusCompleted, func(a *ResourceAllocation) {
		if actualHours != nil {
			a.ActualHours = actualHours
		}
	})
}

// Cancel moves any non-terminal allocation to cancelled.
func (m *Manager) Cancel(ctx context.Context, id AllocationID) (*ResourceAllocation, error) {
	return m.transition(ctx, id, StatusCancelled, func(a *ResourceAllocation) {})
}

func (m *Manager) transition(ctx context.Context, id AllocationID, to Status, apply func(*ResourceAllocation)) (*ResourceAllocation, error) {
	var updated *ResourceAllocation
	err := m.Repo.WithTx(ctx, func(repo Repository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(to) {
			return &StateTransitionError{AllocationID: id, From: current.Status, To: to}
		}

		next := *current
		next.Status = to
		apply(&next)
		next.UpdatedAt = m.Now().UTC()

		if err := repo.Update(ctx, next); err != nil {
			return &StorageError{Op: "update allocation", Err: err}
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// Update mutates mutable fields. Schedule changes (dates, hours) re-run
// conflict/capacity checks per the enforcement mode and are frozen once the
// record is terminal. Status changes must follow the state machine.
func (m *Manager) Update(ctx context.Context, id AllocationID, in UpdateInput, mode EnforcementMode) (*CreateResult, error) {
	result := &CreateResult{}
	err := m.Repo.WithTx(ctx, func(repo Repository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if current.Status.IsTerminal() && in.touchesSchedule() {
			return &StateTransitionError{
				AllocationID: id,
				From:         current.Status,
				To:           current.Status,
				Reason:       "schedule fields are frozen on terminal allocations",
			}
		}

		next := *current
		if in.StartDate != nil {
			next.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			next.EndDate = *in.EndDate
		}
		if in.AllocatedHours != nil {
			next.AllocatedHours = *in.AllocatedHours
		}
		if in.ActualHours != nil {
			next.ActualHours = in.ActualHours
		}
		if in.Role != nil {
			next.Role = *in.Role
		}
		if in.HourlyRate != nil {
			next.HourlyRate = in.HourlyRate
		}
		if in.Notes != nil {
			next.Notes = *in.Notes
		}
		if in.Status != nil && *in.Status != current.Status {
			if !in.Status.IsValid() {
				return &ValidationError{Field: "status", Message: "unknown status " + string(*in.Status)}
			}
			if !current.Status.CanTransitionTo(*in.Status) {
				return &StateTransitionError{AllocationID: id, From: current.Status, To: *in.Status}
			}
			next.Status = *in.Status
		}

		if !next.StartDate.Before(next.EndDate) {
			return ErrInvalidInterval
		}
		if err := validateHours(next.AllocatedHours); err != nil {
			return err
		}
		if next.Role == "" {
			return &ValidationError{Field: "role", Message: "required"}
		}

		if in.touchesSchedule() && mode != EnforceNone && next.IsLive() {
			report, validation, err := m.runChecks(ctx, repo, next.EmployeeID,
				next.AllocatedHours, next.StartDate, next.EndDate, id, mode)
			if err != nil {
				return err
			}
			result.Conflicts = report
			result.Validation = validation
			result.Warnings = validation.Warnings
		}

		next.UpdatedAt = m.Now().UTC()
		if err := repo.Update(ctx, next); err != nil {
			return &StorageError{Op: "update allocation", Err: err}
		}
		result.Allocation = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an allocation and returns the removed record. Dependent
// reports are not cascaded; they re-query live state on demand.
func (m *Manager) Delete(ctx context.Context, id AllocationID) (*ResourceAllocation, error) {
	var removed *ResourceAllocation
	err := m.Repo.WithTx(ctx, func(repo Repository) error {
		r, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		removed = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
