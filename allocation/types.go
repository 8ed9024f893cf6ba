/*
Package allocation provides the allocation conflict & capacity validation engine.

PURPOSE:
  This package tracks how employees are committed to projects over time and
  surfaces over-commitment of their working capacity. Given a population of
  time-bounded allocations (employee x project x date-range x hours), it:
  - detects overlapping commitments (conflict.go)
  - computes utilization against a weekly capacity baseline (capacity.go)
  - classifies and reports over-allocation severity (analyzer.go)
  - drives the allocation lifecycle state machine (lifecycle.go)
  - rolls metrics up to department summaries and trends (summary.go)

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A planned-hours quantity backed by decimal.Decimal
  - Status: The closed allocation lifecycle enum with its transition table
  - ResourceAllocation: The central entity
  - ConflictReport / CapacityValidationResult / OverAllocationWarning:
    The structured read-side results returned to callers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so hour/utilization math never drifts
  2. Type Safety: Strong typing for IDs prevents mixing employee/project IDs
  3. Closed enums: Status and Severity are tagged variants, not free strings
  4. Advisory by default: over-commitment is reported, not silently blocked

USAGE:
  repo := store.NewMemory()
  mgr := allocation.NewManager(repo, repo, repo)
  res, err := mgr.Create(ctx, allocation.CreateInput{...}, allocation.EnforceChecked)

SEE ALSO:
  - store.go: Repository and directory interfaces
  - errors.go: Error kinds callers branch on
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Planned-hours quantity
// =============================================================================

type Hours struct {
	Value decimal.Decimal
}

func NewHours(v float64) Hours {
	return Hours{Value: decimal.NewFromFloat(v)}
}

func NewHoursFromInt(v int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(v))}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (h Hours) Add(o Hours) Hours           { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours           { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Mul(s decimal.Decimal) Hours { return Hours{Value: h.Value.Mul(s)} }
func (h Hours) Div(s decimal.Decimal) Hours { return Hours{Value: h.Value.Div(s)} }
func (h Hours) IsZero() bool                { return h.Value.IsZero() }
func (h Hours) IsPositive() bool            { return h.Value.IsPositive() }
func (h Hours) IsNegative() bool            { return h.Value.IsNegative() }
func (h Hours) GreaterThan(o Hours) bool    { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool       { return h.Value.LessThan(o.Value) }
func (h Hours) Equal(o Hours) bool          { return h.Value.Equal(o.Value) }
func (h Hours) Float64() float64            { f, _ := h.Value.Float64(); return f }
func (h Hours) String() string              { return h.Value.String() }

func (h Hours) Max(o Hours) Hours {
	if h.GreaterThan(o) {
		return h
	}
	return o
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ProjectID string
type AllocationID string
type DepartmentID string

// =============================================================================
// STATUS - Allocation lifecycle enum
// =============================================================================

type Status string

const (
	StatusTentative Status = "tentative"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTentative, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsLive reports whether the allocation still commits capacity.
// Live = tentative or active; completed/cancelled allocations are history.
func (s Status) IsLive() bool {
	return s == StatusTentative || s == StatusActive
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo encodes the lifecycle state machine:
//
//	tentative -> active | cancelled
//	active    -> completed | cancelled
//	completed -> (terminal)
//	cancelled -> (terminal)
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusTentative:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// =============================================================================
// ENTITIES
// =============================================================================

// Employee is owned by the external employee directory; the engine reads
// identity, weekly capacity, active flag, and department membership.
type Employee struct {
	ID             EmployeeID
	Name           string
	Email          string
	WeeklyCapacity Hours
	Active         bool
	DepartmentID   DepartmentID
}

// DefaultWeeklyCapacity applies when an employee record carries no override.
var DefaultWeeklyCapacity = NewHoursFromInt(40)

// Capacity returns the employee's weekly capacity, falling back to the
// 40-hour default when the record has none set.
func (e *Employee) Capacity() Hours {
	if e == nil || !e.WeeklyCapacity.IsPositive() {
		return DefaultWeeklyCapacity
	}
	return e.WeeklyCapacity
}

// Project is owned externally; the engine reads its date bounds to constrain
// allocations and its name for conflict reporting.
type Project struct {
	ID        ProjectID
	Name      string
	StartDate Date
	EndDate   Date
	Active    bool
}

func (p *Project) Span() Interval {
	return Interval{Start: p.StartDate, End: p.EndDate}
}

// Department groups employees for rollup reporting.
type Department struct {
	ID   DepartmentID
	Name string
}

// MaxAllocatedHours is the sanity cap on a single allocation's weekly hours.
var MaxAllocatedHours = NewHoursFromInt(1000)

// ResourceAllocation is the central entity: a time-bounded commitment of an
// employee to a project. AllocatedHours is the planned WEEKLY figure; weekly
// aggregation prorates it by day overlap (see analyzer.go).
type ResourceAllocation struct {
	ID         AllocationID
	EmployeeID EmployeeID
	ProjectID  ProjectID

	StartDate Date // inclusive, StartDate < EndDate
	EndDate   Date // inclusive

	AllocatedHours Hours  // planned weekly hours, (0, 1000]
	ActualHours    *Hours // recorded on completion
	Role           string

	// Cost reporting only; not consulted by conflict/capacity logic.
	HourlyRate        *decimal.Decimal
	UtilizationTarget *decimal.Decimal // percent override of the 100 default

	Status Status
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *ResourceAllocation) Span() Interval {
	return Interval{Start: a.StartDate, End: a.EndDate}
}

func (a *ResourceAllocation) IsLive() bool {
	return a.Status.IsLive()
}

// =============================================================================
// DERIVED RESULTS - Computed on demand, never stored
// =============================================================================

// AllocationConflict describes one existing live allocation overlapping a
// candidate interval.
type AllocationConflict struct {
	AllocationID   AllocationID
	ProjectID      ProjectID
	ProjectName    string
	StartDate      Date
	EndDate        Date
	AllocatedHours Hours
	OverlapDays    int
}

// ConflictReport is the structured output of the Conflict Detector.
type ConflictReport struct {
	HasConflicts bool
	Conflicts    []AllocationConflict
	Suggestions  []string
}

// CapacityValidationResult is the advisory output of the Capacity Validator.
// IsValid=false does NOT prevent creation; callers decide whether to block.
type CapacityValidationResult struct {
	IsValid               bool
	Warnings              []string
	MaxCapacityHours      Hours
	CurrentAllocatedHours Hours
	UtilizationRate       decimal.Decimal // percent
	ConflictCount         int
}

// Severity classifies how far over capacity a week has gone.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// OverAllocationWarning flags one employee-week whose aggregated live hours
// exceed the employee's weekly capacity.
type OverAllocationWarning struct {
	EmployeeID          EmployeeID
	Week                Interval
	DefaultHours        Hours
	AllocatedHours      Hours
	OverAllocationHours Hours           // allocated - default, floored at 0
	UtilizationRate     decimal.Decimal // fraction, 1.0 == at capacity
	Severity            Severity
	Message             string
	Suggestions         []string
	Allocations         []AllocationID // contributing allocations
}

// WeekBreakdown counts warning severity per week bucket.
type WeekBreakdown struct {
	Week          Interval
	WarningCount  int
	CriticalCount int
}

// OverAllocationSummary aggregates warnings across a date range.
type OverAllocationSummary struct {
	Range                  Interval
	Warnings               []OverAllocationWarning
	TotalWarnings          int
	TotalCritical          int
	WeeklyBreakdown        []WeekBreakdown
	AverageUtilization     decimal.Decimal // fraction, mean over employee-weeks
	OverAllocatedEmployees int
}

// CapacityMetrics is the per-employee rollup consumed by the aggregator.
type CapacityMetrics struct {
	EmployeeID          EmployeeID
	DepartmentID        DepartmentID
	TotalAllocatedHours Hours           // peak weekly live hours in range
	UtilizationRate     decimal.Decimal // percent, peak week vs capacity
	ConflictCount       int             // overlapping live allocation pairs
	ActiveAllocations   int             // live allocations intersecting range
}

// UtilizationSummary is the whole-population (or single-employee) rollup.
type UtilizationSummary struct {
	Range              Interval
	TotalEmployees     int
	AverageUtilization decimal.Decimal // percent
	OverutilizedCount  int             // > 100%
	UnderutilizedCount int             // < 70%
	TotalAllocations   int
	ConflictsCount     int
	Employees          []CapacityMetrics
}

// TrendPoint is one week of a department trend series.
type TrendPoint struct {
	Week               Interval
	AverageUtilization decimal.Decimal // percent
	WarningCount       int
	AllocationCount    int
}
