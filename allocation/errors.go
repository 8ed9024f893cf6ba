/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error kinds in one place so callers can branch on them. The HTTP layer
  maps kinds to status codes (404 / 400 / 409 / 422 / 500); other renderers
  can do the same via the Is* helpers.

ERROR CATEGORIES:
  1. Not-found errors     - Missing employee/project/allocation
  2. Validation errors    - Malformed input before any write
  3. Conflict errors      - Overlapping live allocation, checked mode only
  4. Capacity errors      - Utilization over threshold, strict mode only
  5. Transition errors    - Illegal lifecycle move
  6. Storage errors       - Opaque passthrough from the repository

USAGE:
  Callers branch with errors.As / the helpers:

    var ce *allocation.ConflictError
    if errors.As(err, &ce) {
        render409(ce.Report)
    }

SEE ALSO:
  - lifecycle.go: Raises these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package allocation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAllocationNotFound is returned when a referenced allocation doesn't exist.
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrProjectNotFound is returned when a referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrDepartmentNotFound is returned when a referenced department doesn't exist.
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrInvalidInterval is returned when an interval is malformed (end before start).
	ErrInvalidInterval = errors.New("invalid interval: end date not after start date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input: bad dates, non-positive hours,
// missing role. Detected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// ConflictError is raised by checked create/update when hard conflicts exist.
// The full report rides along so callers can present the conflict list.
type ConflictError struct {
	EmployeeID EmployeeID
	Report     *ConflictReport
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("allocation conflict: employee %s has %d overlapping live allocation(s)",
		e.EmployeeID, len(e.Report.Conflicts))
}

// CapacityExceededError is raised only in strict enforcement mode when
// utilization would exceed 100%.
type CapacityExceededError struct {
	EmployeeID EmployeeID
	Result     *CapacityValidationResult
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: employee %s at %s%% utilization (capacity %s h/week)",
		e.EmployeeID, e.Result.UtilizationRate.StringFixed(1), e.Result.MaxCapacityHours)
}

// StateTransitionError reports an illegal lifecycle move, e.g. completing a
// cancelled allocation or rescheduling a terminal one.
type StateTransitionError struct {
	AllocationID AllocationID
	From         Status
	To           Status
	Reason       string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("illegal transition for %s: %s -> %s (%s)", e.AllocationID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("illegal transition for %s: %s -> %s", e.AllocationID, e.From, e.To)
}

// StorageError wraps a repository failure. The engine guarantees no partial
// record was written when one of these surfaces from a write path.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAllocationNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrDepartmentNotFound)
}

// IsValidation returns true for malformed-input errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInterval)
}

// IsConflict returns true when a hard conflict blocked the operation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsCapacityExceeded returns true for strict-mode capacity rejections.
func IsCapacityExceeded(err error) bool {
	var ce *CapacityExceededError
	return errors.As(err, &ce)
}

// IsStateTransition returns true for illegal lifecycle moves.
func IsStateTransition(err error) bool {
	var se *StateTransitionError
	return errors.As(err, &se)
}
