/*
store.go - Persistence interfaces for allocations and collaborator lookups

PURPOSE:
  Defines the interface between the engine and its storage. The engine takes
  these as constructor arguments (no ambient globals), so SQLite, PostgreSQL,
  or in-memory implementations are interchangeable.

KEY INTERFACES:
  Repository:        Allocation record persistence and queries
  TxRepository:      Repository plus atomic read-check-write support
  EmployeeDirectory: External employee lookup (id, capacity, active, department)
  ProjectDirectory:  External project lookup (id, date bounds, active)

CONSISTENCY:
  Create/update flows read existing overlapping allocations and then write.
  TxRepository.WithTx makes that read-check-write one atomic unit so two
  concurrent creations for the same employee cannot silently double-book
  past capacity. Read-only analytics query outside transactions.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:    Production SQLite
  - allocation/store/memory.go: In-memory for testing

SEE ALSO:
  - lifecycle.go: Writes through TxRepository
  - conflict.go, analyzer.go, summary.go: Read-only consumers
*/
package allocation

import "context"

// =============================================================================
// QUERY FILTER
// =============================================================================

// Filter narrows allocation queries. Nil fields are ignored. A non-nil
// From/To pair restricts to allocations whose interval intersects [From, To].
type Filter struct {
	EmployeeID *EmployeeID
	ProjectID  *ProjectID
	Statuses   []Status
	From       *Date
	To         *Date

	// Paging; zero values mean "no paging".
	Page  int
	Limit int
}

// Matches reports whether an allocation passes the filter. Implementations
// may push parts of this into SQL but must agree with it.
func (f Filter) Matches(a *ResourceAllocation) bool {
	if f.EmployeeID != nil && a.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.ProjectID != nil && a.ProjectID != *f.ProjectID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if a.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && f.To != nil {
		if !a.Span().Overlaps(Interval{Start: *f.From, End: *f.To}) {
			return false
		}
	} else if f.From != nil && a.EndDate.Before(*f.From) {
		return false
	} else if f.To != nil && a.StartDate.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// REPOSITORY - Allocation persistence
// =============================================================================

type Repository interface {
	// Insert persists a new allocation record.
	Insert(ctx context.Context, a ResourceAllocation) error

	// Update replaces an existing record. Returns ErrAllocationNotFound
	// if the ID is unknown.
	Update(ctx context.Context, a ResourceAllocation) error

	// Delete removes a record and returns it.
	Delete(ctx context.Context, id AllocationID) (*ResourceAllocation, error)

	// FindByID returns a single record or ErrAllocationNotFound.
	FindByID(ctx context.Context, id AllocationID) (*ResourceAllocation, error)

	// FindLiveByEmployee returns all tentative/active allocations for an
	// employee, ordered by start date.
	FindLiveByEmployee(ctx context.Context, employeeID EmployeeID) ([]ResourceAllocation, error)

	// Find returns allocations matching the filter, ordered by start date.
	Find(ctx context.Context, f Filter) ([]ResourceAllocation, error)
}

// TxRepository adds atomic multi-step operations.
type TxRepository interface {
	Repository

	// WithTx executes fn against a transactional view of the repository.
	// If fn returns an error the transaction is rolled back; otherwise it
	// is committed. Serializes against concurrent writers.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// =============================================================================
// COLLABORATOR DIRECTORIES
// =============================================================================

// EmployeeDirectory is the engine's view of the external employee store.
type EmployeeDirectory interface {
	// GetEmployee returns an employee or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns all employees (for population-wide analytics).
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// ProjectDirectory is the engine's view of the external project store.
type ProjectDirectory interface {
	// GetProject returns a project or ErrProjectNotFound.
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
}
