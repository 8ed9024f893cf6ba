/*
conflict.go - Conflict Detector

PURPOSE:
  Given an employee and a candidate interval, finds existing LIVE allocations
  (tentative or active) whose intervals overlap the candidate. Read-only; the
  report is structured data the caller can render or act on.

POLICY:
  Overlap is NOT forbidden here. Two live allocations for the same employee
  may legally overlap (concurrent projects). This detector only surfaces the
  overlap; whether it blocks a write is the Lifecycle Manager's enforcement
  decision.

SUGGESTIONS:
  The report carries the conflict count, per-conflict overlap day counts, and
  the earliest non-conflicting start date (latest conflicting end date + 1).

SEE ALSO:
  - capacity.go: Folds the conflict count into validation warnings
  - lifecycle.go: Rejects on HasConflicts in checked mode
*/
package allocation

import (
	"context"
	"fmt"
)

// ConflictDetector finds overlapping live allocations.
type ConflictDetector struct {
	Repo     Repository
	Projects ProjectDirectory // optional; names resolved when available
}

// CheckConflicts returns all live allocations of employeeID overlapping
// [start, end]. exclude, when non-empty, skips that allocation so updates can
// check against all *other* records.
func (cd *ConflictDetector) CheckConflicts(
	ctx context.Context,
	employeeID EmployeeID,
	start, end Date,
	exclude AllocationID,
) (*ConflictReport, error) {
	if end.Before(start) || end.Equal(start) {
		return nil, ErrInvalidInterval
	}

	live, err := cd.Repo.FindLiveByEmployee(ctx, employeeID)
	if err != nil {
		return nil, &StorageError{Op: "find live allocations", Err: err}
	}

	candidate := Interval{Start: start, End: end}
	report := &ConflictReport{}
	latestEnd := Date{}

	for i := range live {
		a := &live[i]
		if a.ID == exclude {
			continue
		}
		if !a.Span().Overlaps(candidate) {
			continue
		}

		conflict := AllocationConflict{
			AllocationID:   a.ID,
			ProjectID:      a.ProjectID,
			ProjectName:    cd.projectName(ctx, a.ProjectID),
			StartDate:      a.StartDate,
			EndDate:        a.EndDate,
			AllocatedHours: a.AllocatedHours,
			OverlapDays:    a.Span().OverlapDays(candidate),
		}
		report.Conflicts = append(report.Conflicts, conflict)

		if latestEnd.IsZero() || a.EndDate.After(latestEnd) {
			latestEnd = a.EndDate
		}
	}

	report.HasConflicts = len(report.Conflicts) > 0
	if report.HasConflicts {
		report.Suggestions = buildConflictSuggestions(report.Conflicts, latestEnd)
	}
	return report, nil
}

func (cd *ConflictDetector) projectName(ctx context.Context, id ProjectID) string {
	if cd.Projects == nil {
		return ""
	}
	p, err := cd.Projects.GetProject(ctx, id)
	if err != nil || p == nil {
		return ""
	}
	return p.Name
}

func buildConflictSuggestions(conflicts []AllocationConflict, latestEnd Date) []string {
	suggestions := []string{
		fmt.Sprintf("%d overlapping live allocation(s) found", len(conflicts)),
	}
	for _, c := range conflicts {
		name := c.ProjectName
		if name == "" {
			name = string(c.ProjectID)
		}
		suggestions = append(suggestions, fmt.Sprintf(
			"allocation %s (%s) overlaps by %d day(s)", c.AllocationID, name, c.OverlapDays))
	}
	suggestions = append(suggestions, fmt.Sprintf(
		"earliest non-conflicting start date: %s", latestEnd.AddDays(1)))
	return suggestions
}
