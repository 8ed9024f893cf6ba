/*
analyzer.go - Over-Allocation Analyzer

PURPOSE:
  Walks a date range week by week, aggregates live allocated hours per
  employee per week, and emits severity-classified warnings with remediation
  suggestions. Pure read computation; runs on demand, never on the write path.

PRORATION CONVENTION:
  AllocatedHours on a record is a WEEKLY figure. The hours an allocation
  charges to a week bucket are:

      AllocatedHours * overlapDays(allocation, bucket) / 7

  so an allocation spanning only Wed-Fri of a week charges 3/7 of its weekly
  hours there. The source system mixed this rule with a flat-weekly rule on
  some paths; this engine applies the prorated rule everywhere.

SEVERITY BANDS (utilization as fraction of capacity):
  < 1.1  low
  < 1.2  medium
  < 1.4  high
  >= 1.4 critical

SEE ALSO:
  - interval.go: WeeksBetween bucket math
  - capacity.go: Collapses a range to a single peak-week metric
*/
package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	severityMediumAt   = decimal.NewFromFloat(1.1)
	severityHighAt     = decimal.NewFromFloat(1.2)
	severityCriticalAt = decimal.NewFromFloat(1.4)

	sevenDays = decimal.NewFromInt(7)
)

// SeverityFor classifies a utilization fraction (> 1.0) into a band.
// Bands are monotonic: a higher rate never yields a lower severity.
func SeverityFor(rate decimal.Decimal) Severity {
	switch {
	case rate.LessThan(severityMediumAt):
		return SeverityLow
	case rate.LessThan(severityHighAt):
		return SeverityMedium
	case rate.LessThan(severityCriticalAt):
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func severitySuggestions(s Severity) []string {
	suggestions := []string{"redistribute workload across the affected weeks"}
	switch s {
	case SeverityLow:
		return suggestions
	case SeverityMedium:
		return append(suggestions, "extend one of the project timelines")
	case SeverityHigh:
		return append(suggestions,
			"extend one of the project timelines",
			"reassign part of the work to another team member")
	default:
		return append(suggestions,
			"extend one of the project timelines",
			"reassign part of the work to another team member",
			"consider additional headcount")
	}
}

// Analyzer computes weekly over-allocation warnings from the live
// allocation set.
type Analyzer struct {
	Repo      Repository
	Employees EmployeeDirectory
}

// weeklyHours sums the prorated hours that the given allocations charge to
// one week bucket, returning the total and the contributing allocation IDs.
func weeklyHours(allocs []ResourceAllocation, week Interval, exclude AllocationID) (Hours, []AllocationID) {
	total := Hours{Value: decimal.Zero}
	var contributing []AllocationID

	for i := range allocs {
		a := &allocs[i]
		if a.ID == exclude || !a.IsLive() {
			continue
		}
		days := a.Span().OverlapDays(week)
		if days == 0 {
			continue
		}
		share := a.AllocatedHours.Mul(decimal.NewFromInt(int64(days))).Div(sevenDays)
		total = total.Add(share)
		contributing = append(contributing, a.ID)
	}
	return total, contributing
}

// AnalyzeWeek checks a single employee-week and returns a warning when the
// aggregated live hours exceed the employee's weekly capacity, or nil when
// the week is within capacity.
func (an *Analyzer) AnalyzeWeek(ctx context.Context, employeeID EmployeeID, week Interval) (*OverAllocationWarning, error) {
	emp, err := an.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	live, err := an.Repo.FindLiveByEmployee(ctx, employeeID)
	if err != nil {
		return nil, &StorageError{Op: "find live allocations", Err: err}
	}

	return an.analyzeWeek(emp, live, week), nil
}

func (an *Analyzer) analyzeWeek(emp *Employee, live []ResourceAllocation, week Interval) *OverAllocationWarning {
	capacity := emp.Capacity()
	allocated, contributing := weeklyHours(live, week, "")

	if !allocated.GreaterThan(capacity) {
		return nil
	}

	rate := allocated.Value.Div(capacity.Value)
	severity := SeverityFor(rate)

	return &OverAllocationWarning{
		EmployeeID:          emp.ID,
		Week:                week,
		DefaultHours:        capacity,
		AllocatedHours:      allocated,
		OverAllocationHours: allocated.Sub(capacity),
		UtilizationRate:     rate,
		Severity:            severity,
		Message: fmt.Sprintf("employee %s allocated %sh against %sh capacity in week %s (%s%% utilization, %s)",
			emp.ID, allocated.Value.StringFixed(1), capacity.Value.StringFixed(1),
			week.Start, rate.Mul(decimal.NewFromInt(100)).StringFixed(0), severity),
		Suggestions: severitySuggestions(severity),
		Allocations: contributing,
	}
}

// AnalyzeRange walks [start, end] week by week for every employee in scope
// (all employees when employeeID is nil) and aggregates the warnings.
func (an *Analyzer) AnalyzeRange(ctx context.Context, start, end Date, employeeID *EmployeeID) (*OverAllocationSummary, error) {
	if end.Before(start) {
		return nil, ErrInvalidInterval
	}

	var scope []Employee
	if employeeID != nil {
		emp, err := an.Employees.GetEmployee(ctx, *employeeID)
		if err != nil {
			return nil, err
		}
		scope = []Employee{*emp}
	} else {
		all, err := an.Employees.ListEmployees(ctx)
		if err != nil {
			return nil, err
		}
		scope = all
	}

	weeks := WeeksBetween(start, end)
	summary := &OverAllocationSummary{
		Range:           Interval{Start: start, End: end},
		WeeklyBreakdown: make([]WeekBreakdown, len(weeks)),
	}
	for i, week := range weeks {
		summary.WeeklyBreakdown[i].Week = week
	}

	utilizationSum := decimal.Zero
	utilizationSamples := 0
	overAllocated := map[EmployeeID]bool{}

	for i := range scope {
		emp := &scope[i]
		live, err := an.Repo.FindLiveByEmployee(ctx, emp.ID)
		if err != nil {
			return nil, &StorageError{Op: "find live allocations", Err: err}
		}
		capacity := emp.Capacity()

		for wi, week := range weeks {
			allocated, _ := weeklyHours(live, week, "")
			utilizationSum = utilizationSum.Add(allocated.Value.Div(capacity.Value))
			utilizationSamples++

			warning := an.analyzeWeek(emp, live, week)
			if warning == nil {
				continue
			}
			summary.Warnings = append(summary.Warnings, *warning)
			summary.WeeklyBreakdown[wi].WarningCount++
			if warning.Severity == SeverityCritical {
				summary.WeeklyBreakdown[wi].CriticalCount++
				summary.TotalCritical++
			}
			overAllocated[emp.ID] = true
		}
	}

	summary.TotalWarnings = len(summary.Warnings)
	summary.OverAllocatedEmployees = len(overAllocated)
	if utilizationSamples > 0 {
		summary.AverageUtilization = utilizationSum.Div(decimal.NewFromInt(int64(utilizationSamples)))
	}
	return summary, nil
}

// PeakWeeklyHours collapses [start, end] to a single-period metric: the
// maximum prorated live hours charged to any one week, excluding the given
// allocation. This is the "current allocated hours" the Capacity Validator
// compares against weekly capacity.
func (an *Analyzer) PeakWeeklyHours(
	ctx context.Context,
	employeeID EmployeeID,
	start, end Date,
	exclude AllocationID,
) (Hours, error) {
	live, err := an.Repo.FindLiveByEmployee(ctx, employeeID)
	if err != nil {
		return Hours{}, &StorageError{Op: "find live allocations", Err: err}
	}

	peak := Hours{Value: decimal.Zero}
	for _, week := range WeeksBetween(start, end) {
		allocated, _ := weeklyHours(live, week, exclude)
		peak = peak.Max(allocated)
	}
	return peak, nil
}
