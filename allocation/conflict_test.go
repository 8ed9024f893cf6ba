package allocation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/allocation/store"
)

// =============================================================================
// FIXTURES
// =============================================================================
// 2024-01-01 is a Monday; fixtures stay Monday-aligned so weekly math is
// easy to verify by hand.

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()

	m.PutEmployee(allocation.Employee{
		ID:             "emp-1",
		Name:           "Dana",
		WeeklyCapacity: allocation.NewHoursFromInt(40),
		Active:         true,
		DepartmentID:   "dept-eng",
	})
	m.PutEmployee(allocation.Employee{
		ID:             "emp-2",
		Name:           "Sam",
		WeeklyCapacity: allocation.NewHoursFromInt(40),
		Active:         true,
		DepartmentID:   "dept-eng",
	})
	m.PutProject(allocation.Project{
		ID:        "proj-a",
		Name:      "Apollo",
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-12-31"),
		Active:    true,
	})
	m.PutProject(allocation.Project{
		ID:        "proj-b",
		Name:      "Borealis",
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-12-31"),
		Active:    true,
	})
	m.PutDepartment(allocation.Department{ID: "dept-eng", Name: "Engineering"})
	return m
}

func filterByEmployee(id allocation.EmployeeID) allocation.Filter {
	return allocation.Filter{EmployeeID: &id}
}

func date(t *testing.T, s string) allocation.Date {
	t.Helper()
	d, err := allocation.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func seedAllocation(t *testing.T, m *store.Memory, id, emp, proj, start, end string, hours int, status allocation.Status) {
	t.Helper()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	err := m.Insert(context.Background(), allocation.ResourceAllocation{
		ID:             allocation.AllocationID(id),
		EmployeeID:     allocation.EmployeeID(emp),
		ProjectID:      allocation.ProjectID(proj),
		StartDate:      date(t, start),
		EndDate:        date(t, end),
		AllocatedHours: allocation.NewHoursFromInt(hours),
		Role:           "engineer",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("seed allocation %s: %v", id, err)
	}
}

// =============================================================================
// CONFLICT DETECTION TESTS
// =============================================================================

func TestCheckConflicts_OverlappingLiveAllocation(t *testing.T) {
	// GIVEN: emp-1 active on proj-a for all of January
	// WHEN: Checking Jan 15 - Feb 15
	// THEN: One conflict with 17 overlap days, suggested start Feb 1

	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)

	cd := &allocation.ConflictDetector{Repo: m, Projects: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-15"), date(t, "2024-02-15"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}

	if !report.HasConflicts {
		t.Fatal("expected conflicts")
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(report.Conflicts))
	}
	c := report.Conflicts[0]
	if c.AllocationID != "a-1" || c.ProjectName != "Apollo" {
		t.Errorf("unexpected conflict record: %+v", c)
	}
	if c.OverlapDays != 17 {
		t.Errorf("expected 17 overlap days, got %d", c.OverlapDays)
	}

	found := false
	for _, s := range report.Suggestions {
		if strings.Contains(s, "earliest non-conflicting start date: 2024-02-01") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing earliest-start suggestion in %v", report.Suggestions)
	}
}

func TestCheckConflicts_NoOverlap(t *testing.T) {
	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)

	cd := &allocation.ConflictDetector{Repo: m, Projects: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-02-01"), date(t, "2024-02-29"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}

	if report.HasConflicts || len(report.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", report)
	}
	if len(report.Suggestions) != 0 {
		t.Errorf("clean report should carry no suggestions, got %v", report.Suggestions)
	}
}

func TestCheckConflicts_IgnoresTerminalStatuses(t *testing.T) {
	// Cancelled and completed allocations never conflict.
	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 20, allocation.StatusCancelled)
	seedAllocation(t, m, "a-2", "emp-1", "proj-b", "2024-01-01", "2024-01-31", 20, allocation.StatusCompleted)

	cd := &allocation.ConflictDetector{Repo: m, Projects: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-10"), date(t, "2024-01-20"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}
	if report.HasConflicts {
		t.Errorf("terminal allocations must not conflict: %+v", report)
	}
}

func TestCheckConflicts_TentativeCounts(t *testing.T) {
	// Tentative allocations are live and do conflict.
	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 20, allocation.StatusTentative)

	cd := &allocation.ConflictDetector{Repo: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-10"), date(t, "2024-01-20"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}
	if !report.HasConflicts {
		t.Error("tentative allocations should conflict")
	}
}

func TestCheckConflicts_ExcludeSelf(t *testing.T) {
	// GIVEN: Rechecking a-1's own window while excluding a-1
	// THEN: No conflict is reported against itself

	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)

	cd := &allocation.ConflictDetector{Repo: m, Projects: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-01"), date(t, "2024-01-31"), "a-1")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}
	if report.HasConflicts {
		t.Errorf("excluded allocation must not conflict with itself: %+v", report)
	}
}

func TestCheckConflicts_OtherEmployeeUnaffected(t *testing.T) {
	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-2", "proj-a", "2024-01-01", "2024-01-31", 40, allocation.StatusActive)

	cd := &allocation.ConflictDetector{Repo: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-01"), date(t, "2024-01-31"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}
	if report.HasConflicts {
		t.Error("conflicts are per employee")
	}
}

func TestCheckConflicts_InvalidInterval(t *testing.T) {
	m := newTestStore(t)
	cd := &allocation.ConflictDetector{Repo: m}

	_, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-31"), date(t, "2024-01-01"), "")
	if err != allocation.ErrInvalidInterval {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}

	// Zero-length range is also rejected: start must precede end.
	_, err = cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-01"), date(t, "2024-01-01"), "")
	if err != allocation.ErrInvalidInterval {
		t.Errorf("expected ErrInvalidInterval for zero-length range, got %v", err)
	}
}

func TestCheckConflicts_MultipleConflictsLatestEnd(t *testing.T) {
	// GIVEN: Two overlapping allocations ending Jan 31 and Mar 15
	// THEN: Suggested start is the day after the latest end

	m := newTestStore(t)
	seedAllocation(t, m, "a-1", "emp-1", "proj-a", "2024-01-01", "2024-01-31", 10, allocation.StatusActive)
	seedAllocation(t, m, "a-2", "emp-1", "proj-b", "2024-01-15", "2024-03-15", 10, allocation.StatusActive)

	cd := &allocation.ConflictDetector{Repo: m, Projects: m}
	report, err := cd.CheckConflicts(context.Background(), "emp-1",
		date(t, "2024-01-20"), date(t, "2024-02-20"), "")
	if err != nil {
		t.Fatalf("CheckConflicts: %v", err)
	}

	if len(report.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(report.Conflicts))
	}
	found := false
	for _, s := range report.Suggestions {
		if strings.Contains(s, "earliest non-conflicting start date: 2024-03-16") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing earliest-start suggestion in %v", report.Suggestions)
	}
}
