package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDB(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func employeeIDPtr(id allocation.EmployeeID) *allocation.EmployeeID {
	return &id
}

func byEmployee(id allocation.EmployeeID) allocation.Filter {
	return allocation.Filter{EmployeeID: employeeIDPtr(id)}
}

func pagedFilter(id allocation.EmployeeID, page, limit int) allocation.Filter {
	f := byEmployee(id)
	f.Page = page
	f.Limit = limit
	return f
}

func testDate(t *testing.T, s string) allocation.Date {
	t.Helper()
	d, err := allocation.ParseDate(s)
	require.NoError(t, err)
	return d
}

func testAllocation(t *testing.T, id, emp, start, end string, hours int, status allocation.Status) allocation.ResourceAllocation {
	t.Helper()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	return allocation.ResourceAllocation{
		ID:             allocation.AllocationID(id),
		EmployeeID:     allocation.EmployeeID(emp),
		ProjectID:      "proj-a",
		StartDate:      testDate(t, start),
		EndDate:        testDate(t, end),
		AllocatedHours: allocation.NewHoursFromInt(hours),
		Role:           "engineer",
		Status:         status,
		Notes:          "seeded",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// =============================================================================
// ALLOCATION CRUD TESTS
// =============================================================================

func TestInsertAndFindByID(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	actual := allocation.NewHours(37.5)
	a := testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)
	a.ActualHours = &actual
	require.NoError(t, s.Insert(ctx, a))

	got, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)

	assert.Equal(t, a.EmployeeID, got.EmployeeID)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.Equal(t, "2024-01-31", got.EndDate.String())
	assert.True(t, got.AllocatedHours.Equal(a.AllocatedHours))
	require.NotNil(t, got.ActualHours)
	assert.True(t, got.ActualHours.Equal(actual), "decimal hours survive the round trip exactly")
	assert.Equal(t, a.Status, got.Status)
	assert.Equal(t, a.Notes, got.Notes)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func TestFindByID_Missing(t *testing.T) {
	s := newTestDB(t)

	_, err := s.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)
}

func TestInsert_DuplicateID(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	a := testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)
	require.NoError(t, s.Insert(ctx, a))
	assert.Error(t, s.Insert(ctx, a))
}

func TestUpdate(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	a := testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusTentative)
	require.NoError(t, s.Insert(ctx, a))

	a.Status = allocation.StatusActive
	a.AllocatedHours = allocation.NewHoursFromInt(25)
	require.NoError(t, s.Update(ctx, a))

	got, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusActive, got.Status)
	assert.True(t, got.AllocatedHours.Equal(allocation.NewHoursFromInt(25)))
}

func TestUpdate_Missing(t *testing.T) {
	s := newTestDB(t)

	a := testAllocation(t, "ghost", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)
	err := s.Update(context.Background(), a)
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)
}

func TestDelete_ReturnsRemoved(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	a := testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)
	require.NoError(t, s.Insert(ctx, a))

	removed, err := s.Delete(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, allocation.AllocationID("a-1"), removed.ID)

	_, err = s.FindByID(ctx, "a-1")
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)

	_, err = s.Delete(ctx, "a-1")
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestFindLiveByEmployee(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)))
	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-2", "emp-1", "2024-02-01", "2024-02-29", 20, allocation.StatusTentative)))
	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-3", "emp-1", "2024-03-01", "2024-03-31", 20, allocation.StatusCancelled)))
	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-4", "emp-2", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)))

	live, err := s.FindLiveByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, live, 2, "only tentative and active records are live")
	assert.Equal(t, allocation.AllocationID("a-1"), live[0].ID, "ordered by start date")
	assert.Equal(t, allocation.AllocationID("a-2"), live[1].ID)
}

func TestFind_Filters(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)))
	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-2", "emp-1", "2024-03-01", "2024-03-31", 20, allocation.StatusCompleted)))
	require.NoError(t, s.Insert(ctx, testAllocation(t, "a-3", "emp-2", "2024-01-15", "2024-02-15", 20, allocation.StatusActive)))

	// By employee.
	got, err := s.Find(ctx, byEmployee("emp-1"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// By status.
	got, err = s.Find(ctx, allocation.Filter{Statuses: []allocation.Status{allocation.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, allocation.AllocationID("a-2"), got[0].ID)

	// By date intersection: February touches a-3 only.
	from := testDate(t, "2024-02-01")
	to := testDate(t, "2024-02-29")
	got, err = s.Find(ctx, allocation.Filter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, allocation.AllocationID("a-3"), got[0].ID)

	// Combined filters narrow further.
	got, err = s.Find(ctx, allocation.Filter{
		EmployeeID: employeeIDPtr("emp-1"),
		Statuses:   []allocation.Status{allocation.StatusActive, allocation.StatusTentative},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, allocation.AllocationID("a-1"), got[0].ID)
}

func TestFind_Pagination(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	days := []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01", "2024-05-01"}
	for i, d := range days {
		id := string(rune('a'+i)) + "-alloc"
		end := testDate(t, d).AddDays(20)
		a := testAllocation(t, id, "emp-1", d, end.String(), 20, allocation.StatusActive)
		require.NoError(t, s.Insert(ctx, a))
	}

	page1, err := s.Find(ctx, pagedFilter("emp-1", 1, 2))
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := s.Find(ctx, pagedFilter("emp-1", 2, 2))
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)

	page3, err := s.Find(ctx, pagedFilter("emp-1", 3, 2))
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(repo allocation.Repository) error {
		return repo.Insert(ctx, testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive))
	})
	require.NoError(t, err)

	_, err = s.FindByID(ctx, "a-1")
	assert.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(repo allocation.Repository) error {
		if err := repo.Insert(ctx, testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindByID(ctx, "a-1")
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound, "failed transaction must leave no trace")
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(repo allocation.Repository) error {
		if err := repo.Insert(ctx, testAllocation(t, "a-1", "emp-1", "2024-01-01", "2024-01-31", 20, allocation.StatusActive)); err != nil {
			return err
		}
		live, err := repo.FindLiveByEmployee(ctx, "emp-1")
		if err != nil {
			return err
		}
		if len(live) != 1 {
			t.Errorf("tx view should see its own write, got %d records", len(live))
		}
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestEmployeeDirectory_RoundTrip(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	e := allocation.Employee{
		ID:             "emp-1",
		Name:           "Dana",
		Email:          "dana@example.com",
		WeeklyCapacity: allocation.NewHours(32.5),
		Active:         true,
		DepartmentID:   "dept-eng",
	}
	require.NoError(t, s.SaveEmployee(ctx, e))

	got, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Email, got.Email)
	assert.True(t, got.Capacity().Equal(e.WeeklyCapacity))
	assert.Equal(t, e.DepartmentID, got.DepartmentID)

	// Upsert path.
	e.Name = "Dana Q"
	e.Active = false
	require.NoError(t, s.SaveEmployee(ctx, e))
	got, err = s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Q", got.Name)
	assert.False(t, got.Active)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteEmployee(ctx, "emp-1"))
	_, err = s.GetEmployee(ctx, "emp-1")
	assert.ErrorIs(t, err, allocation.ErrEmployeeNotFound)
}

func TestProjectDirectory_RoundTrip(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	p := allocation.Project{
		ID:        "proj-a",
		Name:      "Apollo",
		StartDate: testDate(t, "2024-01-01"),
		EndDate:   testDate(t, "2024-12-31"),
		Active:    true,
	}
	require.NoError(t, s.SaveProject(ctx, p))

	got, err := s.GetProject(ctx, "proj-a")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.Equal(t, "2024-12-31", got.EndDate.String())

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProject(ctx, "proj-a"))
	_, err = s.GetProject(ctx, "proj-a")
	assert.ErrorIs(t, err, allocation.ErrProjectNotFound)
}

func TestDepartmentDirectory_RoundTrip(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDepartment(ctx, allocation.Department{ID: "dept-eng", Name: "Engineering"}))

	got, err := s.GetDepartment(ctx, "dept-eng")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", got.Name)

	list, err := s.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetDepartment(ctx, "dept-missing")
	assert.ErrorIs(t, err, allocation.ErrDepartmentNotFound)
}

// =============================================================================
// ENGINE-OVER-SQLITE TESTS
// =============================================================================

func TestManagerOverSQLite(t *testing.T) {
	// The full checked create path against the real store.
	s := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, allocation.Employee{
		ID: "emp-1", Name: "Dana", WeeklyCapacity: allocation.NewHoursFromInt(40), Active: true,
	}))
	require.NoError(t, s.SaveProject(ctx, allocation.Project{
		ID: "proj-a", Name: "Apollo",
		StartDate: testDate(t, "2024-01-01"), EndDate: testDate(t, "2024-12-31"), Active: true,
	}))

	mgr := allocation.NewManager(s, s, s)

	result, err := mgr.Create(ctx, allocation.CreateInput{
		EmployeeID:     "emp-1",
		ProjectID:      "proj-a",
		StartDate:      testDate(t, "2024-01-01"),
		EndDate:        testDate(t, "2024-01-31"),
		AllocatedHours: allocation.NewHoursFromInt(20),
		Role:           "engineer",
	}, allocation.EnforceChecked)
	require.NoError(t, err)

	// Overlap is rejected and rolled back.
	_, err = mgr.Create(ctx, allocation.CreateInput{
		EmployeeID:     "emp-1",
		ProjectID:      "proj-a",
		StartDate:      testDate(t, "2024-01-15"),
		EndDate:        testDate(t, "2024-02-15"),
		AllocatedHours: allocation.NewHoursFromInt(20),
		Role:           "engineer",
	}, allocation.EnforceChecked)
	assert.True(t, allocation.IsConflict(err), "expected conflict error, got %v", err)

	all, err := s.Find(ctx, byEmployee("emp-1"))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Lifecycle over the real store.
	a, err := mgr.Confirm(ctx, result.Allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusActive, a.Status)
}
