/*
capacity.go - Capacity Validator

PURPOSE:
  Combines an employee's declared weekly capacity with existing + candidate
  allocated hours to produce a utilization rate and advisory warnings.

POLICY:
  utilizationRate = (currentAllocatedHours + candidateHours) / capacity * 100

  where currentAllocatedHours is the PEAK weekly live hours inside the
  candidate range (the analyzer's weekly aggregation collapsed to a single
  figure) and capacity defaults to 40 unless the employee record overrides it.

  rate > 100  -> "over-allocation" warning
  rate > 80   -> "high utilization" warning
  conflicts   -> warning noting the count

  IsValid = rate <= 100 AND no conflicts. Advisory only: IsValid=false never
  blocks by itself; the Lifecycle Manager decides per enforcement mode.

SEE ALSO:
  - analyzer.go: PeakWeeklyHours
  - conflict.go: Conflict count folded into warnings
*/
package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Threshold defaults, in percent. Tunable per validator instance.
var (
	DefaultOverAllocationThreshold  = decimal.NewFromInt(100)
	DefaultHighUtilizationThreshold = decimal.NewFromInt(80)
)

// CapacityValidator computes utilization pressure for a candidate allocation.
type CapacityValidator struct {
	Employees EmployeeDirectory
	Analyzer  *Analyzer
	Conflicts *ConflictDetector

	// Zero values fall back to the package defaults.
	OverAllocationThreshold  decimal.Decimal
	HighUtilizationThreshold decimal.Decimal
}

func (cv *CapacityValidator) overThreshold() decimal.Decimal {
	if cv.OverAllocationThreshold.IsZero() {
		return DefaultOverAllocationThreshold
	}
	return cv.OverAllocationThreshold
}

func (cv *CapacityValidator) highThreshold() decimal.Decimal {
	if cv.HighUtilizationThreshold.IsZero() {
		return DefaultHighUtilizationThreshold
	}
	return cv.HighUtilizationThreshold
}

// ValidateCapacity checks whether adding candidateHours per week over
// [start, end] would over-commit the employee. exclude lets updates validate
// against all other allocations.
func (cv *CapacityValidator) ValidateCapacity(
	ctx context.Context,
	employeeID EmployeeID,
	candidateHours Hours,
	start, end Date,
	exclude AllocationID,
) (*CapacityValidationResult, error) {
	if end.Before(start) || end.Equal(start) {
		return nil, ErrInvalidInterval
	}

	emp, err := cv.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	capacity := emp.Capacity()

	current, err := cv.Analyzer.PeakWeeklyHours(ctx, employeeID, start, end, exclude)
	if err != nil {
		return nil, err
	}

	rate := current.Add(candidateHours).Value.
		Div(capacity.Value).
		Mul(decimal.NewFromInt(100))

	result := &CapacityValidationResult{
		MaxCapacityHours:      capacity,
		CurrentAllocatedHours: current,
		UtilizationRate:       rate,
	}

	if rate.GreaterThan(cv.overThreshold()) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"over-allocation: %s%% utilization exceeds capacity (%sh/week current, %sh/week candidate, %sh/week capacity)",
			rate.StringFixed(1), current.Value.StringFixed(1),
			candidateHours.Value.StringFixed(1), capacity.Value.StringFixed(1)))
	} else if rate.GreaterThan(cv.highThreshold()) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"high utilization: %s%% of weekly capacity committed", rate.StringFixed(1)))
	}

	report, err := cv.Conflicts.CheckConflicts(ctx, employeeID, start, end, exclude)
	if err != nil {
		return nil, err
	}
	result.ConflictCount = len(report.Conflicts)
	if report.HasConflicts {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d overlapping live allocation(s) in the requested range", result.ConflictCount))
	}

	result.IsValid = !rate.GreaterThan(cv.overThreshold()) && result.ConflictCount == 0
	return result, nil
}
