/*
summary.go - Utilization/Heatmap Aggregator

PURPOSE:
  Rolls per-employee capacity metrics up to population and department
  summaries, plus a weekly trend series per department. A straightforward
  fold over the analyzer/validator outputs; the only invariant of its own is
  that every employee lands in exactly one department bucket.

DEFAULT RANGE:
  When callers omit the range, the aggregator looks at the Monday of the
  current week through four weeks out, which matches how the reports are
  consumed (a near-term staffing view).

SEE ALSO:
  - analyzer.go: Weekly aggregation this folds over
  - types.go: CapacityMetrics, UtilizationSummary, TrendPoint
*/
package allocation

import (
	"context"

	"github.com/shopspring/decimal"
)

// Aggregator computes read-side utilization rollups.
type Aggregator struct {
	Repo      Repository
	Employees EmployeeDirectory
}

// Tunable bounds, in percent.
var (
	OverutilizedAbove  = decimal.NewFromInt(100)
	UnderutilizedBelow = decimal.NewFromInt(70)

	oneHundred = decimal.NewFromInt(100)
)

// defaultRange is the rolling four-week staffing window.
func (ag *Aggregator) defaultRange() Interval {
	start := Today().StartOfWeek()
	return Interval{Start: start, End: start.AddDays(27)}
}

func (ag *Aggregator) resolveRange(from, to *Date) (Interval, error) {
	r := ag.defaultRange()
	if from != nil {
		r.Start = *from
	}
	if to != nil {
		r.End = *to
	}
	if r.End.Before(r.Start) {
		return Interval{}, ErrInvalidInterval
	}
	return r, nil
}

// Metrics computes the per-employee rollup over a range: peak weekly hours,
// utilization against capacity, hard-conflict pair count, and the number of
// live allocations intersecting the range.
func (ag *Aggregator) Metrics(ctx context.Context, emp *Employee, r Interval) (*CapacityMetrics, error) {
	live, err := ag.Repo.FindLiveByEmployee(ctx, emp.ID)
	if err != nil {
		return nil, &StorageError{Op: "find live allocations", Err: err}
	}

	var inRange []ResourceAllocation
	for _, a := range live {
		if a.Span().Overlaps(r) {
			inRange = append(inRange, a)
		}
	}

	peak := Hours{Value: decimal.Zero}
	for _, week := range WeeksBetween(r.Start, r.End) {
		allocated, _ := weeklyHours(inRange, week, "")
		peak = peak.Max(allocated)
	}

	conflicts := 0
	for i := range inRange {
		for j := i + 1; j < len(inRange); j++ {
			if inRange[i].Span().Overlaps(inRange[j].Span()) {
				conflicts++
			}
		}
	}

	return &CapacityMetrics{
		EmployeeID:          emp.ID,
		DepartmentID:        emp.DepartmentID,
		TotalAllocatedHours: peak,
		UtilizationRate:     peak.Value.Div(emp.Capacity().Value).Mul(oneHundred),
		ConflictCount:       conflicts,
		ActiveAllocations:   len(inRange),
	}, nil
}

// Summary aggregates per-employee metrics into the population rollup. A
// non-nil employeeID narrows the population to that single employee. Pure
// function of stored state: identical inputs with no intervening writes
// yield identical output.
func (ag *Aggregator) Summary(ctx context.Context, from, to *Date, employeeID *EmployeeID) (*UtilizationSummary, error) {
	r, err := ag.resolveRange(from, to)
	if err != nil {
		return nil, err
	}

	var scope []Employee
	if employeeID != nil {
		emp, err := ag.Employees.GetEmployee(ctx, *employeeID)
		if err != nil {
			return nil, err
		}
		scope = []Employee{*emp}
	} else {
		scope, err = ag.Employees.ListEmployees(ctx)
		if err != nil {
			return nil, err
		}
	}

	summary := &UtilizationSummary{Range: r, TotalEmployees: len(scope)}
	utilizationSum := decimal.Zero

	for i := range scope {
		metrics, err := ag.Metrics(ctx, &scope[i], r)
		if err != nil {
			return nil, err
		}
		summary.Employees = append(summary.Employees, *metrics)
		summary.TotalAllocations += metrics.ActiveAllocations
		summary.ConflictsCount += metrics.ConflictCount
		utilizationSum = utilizationSum.Add(metrics.UtilizationRate)

		if metrics.UtilizationRate.GreaterThan(OverutilizedAbove) {
			summary.OverutilizedCount++
		} else if metrics.UtilizationRate.LessThan(UnderutilizedBelow) {
			summary.UnderutilizedCount++
		}
	}

	if len(scope) > 0 {
		summary.AverageUtilization = utilizationSum.Div(decimal.NewFromInt(int64(len(scope))))
	}
	return summary, nil
}

// DepartmentTrend returns a week-by-week series of average utilization,
// over-capacity warning count, and live allocation count for one
// department's employees.
func (ag *Aggregator) DepartmentTrend(ctx context.Context, departmentID DepartmentID, from, to *Date) ([]TrendPoint, error) {
	r, err := ag.resolveRange(from, to)
	if err != nil {
		return nil, err
	}

	all, err := ag.Employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	var members []Employee
	for _, e := range all {
		if e.DepartmentID == departmentID {
			members = append(members, e)
		}
	}
	if len(members) == 0 {
		return nil, ErrDepartmentNotFound
	}

	type memberState struct {
		capacity Hours
		live     []ResourceAllocation
	}
	states := make([]memberState, len(members))
	for i := range members {
		live, err := ag.Repo.FindLiveByEmployee(ctx, members[i].ID)
		if err != nil {
			return nil, &StorageError{Op: "find live allocations", Err: err}
		}
		states[i] = memberState{capacity: members[i].Capacity(), live: live}
	}

	var trend []TrendPoint
	for _, week := range WeeksBetween(r.Start, r.End) {
		point := TrendPoint{Week: week}
		weekSum := decimal.Zero

		for _, st := range states {
			allocated, contributing := weeklyHours(st.live, week, "")
			weekSum = weekSum.Add(allocated.Value.Div(st.capacity.Value).Mul(oneHundred))
			point.AllocationCount += len(contributing)
			if allocated.GreaterThan(st.capacity) {
				point.WarningCount++
			}
		}

		point.AverageUtilization = weekSum.Div(decimal.NewFromInt(int64(len(members))))
		trend = append(trend, point)
	}
	return trend, nil
}
