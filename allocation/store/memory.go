// Package store provides Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements allocation.TxRepository plus the employee and project
// directories, so engine tests need no database.
type Memory struct {
	mu          sync.RWMutex
	allocations map[allocation.AllocationID]allocation.ResourceAllocation

	// Directories use their own lock: WithTx holds mu for the whole
	// transaction while the engine still resolves employees/projects.
	dirMu       sync.RWMutex
	employees   map[allocation.EmployeeID]allocation.Employee
	projects    map[allocation.ProjectID]allocation.Project
	departments map[allocation.DepartmentID]allocation.Department
}

func NewMemory() *Memory {
	return &Memory{
		allocations: make(map[allocation.AllocationID]allocation.ResourceAllocation),
		employees:   make(map[allocation.EmployeeID]allocation.Employee),
		projects:    make(map[allocation.ProjectID]allocation.Project),
		departments: make(map[allocation.DepartmentID]allocation.Department),
	}
}

// =============================================================================
// REPOSITORY
// =============================================================================

func (m *Memory) Insert(_ context.Context, a allocation.ResourceAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[a.ID] = a
	return nil
}

func (m *Memory) Update(_ context.Context, a allocation.ResourceAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.allocations[a.ID]; !ok {
		return allocation.ErrAllocationNotFound
	}
	m.allocations[a.ID] = a
	return nil
}

func (m *Memory) Delete(_ context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocations[id]
	if !ok {
		return nil, allocation.ErrAllocationNotFound
	}
	delete(m.allocations, id)
	return &a, nil
}

func (m *Memory) FindByID(_ context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.allocations[id]
	if !ok {
		return nil, allocation.ErrAllocationNotFound
	}
	return &a, nil
}

func (m *Memory) FindLiveByEmployee(_ context.Context, employeeID allocation.EmployeeID) ([]allocation.ResourceAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []allocation.ResourceAllocation
	for _, a := range m.allocations {
		if a.EmployeeID == employeeID && a.IsLive() {
			result = append(result, a)
		}
	}
	sortByStart(result)
	return result, nil
}

func (m *Memory) Find(_ context.Context, f allocation.Filter) ([]allocation.ResourceAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []allocation.ResourceAllocation
	for _, a := range m.allocations {
		if f.Matches(&a) {
			result = append(result, a)
		}
	}
	sortByStart(result)
	return paginate(result, f.Page, f.Limit), nil
}

func sortByStart(allocs []allocation.ResourceAllocation) {
	sort.Slice(allocs, func(i, j int) bool {
		if allocs[i].StartDate.Equal(allocs[j].StartDate) {
			return allocs[i].ID < allocs[j].ID
		}
		return allocs[i].StartDate.Before(allocs[j].StartDate)
	})
}

func paginate(allocs []allocation.ResourceAllocation, page, limit int) []allocation.ResourceAllocation {
	if limit <= 0 {
		return allocs
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(allocs) {
		return nil
	}
	end := start + limit
	if end > len(allocs) {
		end = len(allocs)
	}
	return allocs[start:end]
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn against the store while holding the write lock, so
// concurrent writers serialize; on error the pre-call state is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(allocation.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[allocation.AllocationID]allocation.ResourceAllocation, len(m.allocations))
	for k, v := range m.allocations {
		snapshot[k] = v
	}

	if err := fn(&memoryTxView{parent: m}); err != nil {
		m.allocations = snapshot
		return err
	}
	return nil
}

// memoryTxView accesses the parent maps directly; the parent holds the
// write lock for the duration of the transaction.
type memoryTxView struct {
	parent *Memory
}

func (tv *memoryTxView) Insert(_ context.Context, a allocation.ResourceAllocation) error {
	tv.parent.allocations[a.ID] = a
	return nil
}

func (tv *memoryTxView) Update(_ context.Context, a allocation.ResourceAllocation) error {
	if _, ok := tv.parent.allocations[a.ID]; !ok {
		return allocation.ErrAllocationNotFound
	}
	tv.parent.allocations[a.ID] = a
	return nil
}

func (tv *memoryTxView) Delete(_ context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	a, ok := tv.parent.allocations[id]
	if !ok {
		return nil, allocation.ErrAllocationNotFound
	}
	delete(tv.parent.allocations, id)
	return &a, nil
}

func (tv *memoryTxView) FindByID(_ context.Context, id allocation.AllocationID) (*allocation.ResourceAllocation, error) {
	a, ok := tv.parent.allocations[id]
	if !ok {
		return nil, allocation.ErrAllocationNotFound
	}
	return &a, nil
}

func (tv *memoryTxView) FindLiveByEmployee(_ context.Context, employeeID allocation.EmployeeID) ([]allocation.ResourceAllocation, error) {
	var result []allocation.ResourceAllocation
	for _, a := range tv.parent.allocations {
		if a.EmployeeID == employeeID && a.IsLive() {
			result = append(result, a)
		}
	}
	sortByStart(result)
	return result, nil
}

func (tv *memoryTxView) Find(_ context.Context, f allocation.Filter) ([]allocation.ResourceAllocation, error) {
	var result []allocation.ResourceAllocation
	for _, a := range tv.parent.allocations {
		if f.Matches(&a) {
			result = append(result, a)
		}
	}
	sortByStart(result)
	return paginate(result, f.Page, f.Limit), nil
}

// =============================================================================
// DIRECTORIES - Employee/project/department seeding for tests and dev
// =============================================================================

func (m *Memory) PutEmployee(e allocation.Employee) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	m.employees[e.ID] = e
}

func (m *Memory) GetEmployee(_ context.Context, id allocation.EmployeeID) (*allocation.Employee, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, allocation.ErrEmployeeNotFound
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]allocation.Employee, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()

	result := make([]allocation.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PutProject(p allocation.Project) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	m.projects[p.ID] = p
}

func (m *Memory) GetProject(_ context.Context, id allocation.ProjectID) (*allocation.Project, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, allocation.ErrProjectNotFound
	}
	return &p, nil
}

func (m *Memory) PutDepartment(d allocation.Department) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	m.departments[d.ID] = d
}

// The Save/Delete/List variants mirror the SQLite store so either backend
// can sit behind the HTTP layer.

func (m *Memory) SaveEmployee(_ context.Context, e allocation.Employee) error {
	m.PutEmployee(e)
	return nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id allocation.EmployeeID) error {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	delete(m.employees, id)
	return nil
}

func (m *Memory) SaveProject(_ context.Context, p allocation.Project) error {
	m.PutProject(p)
	return nil
}

func (m *Memory) ListProjects(_ context.Context) ([]allocation.Project, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()

	result := make([]allocation.Project, 0, len(m.projects))
	for _, p := range m.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeleteProject(_ context.Context, id allocation.ProjectID) error {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *Memory) SaveDepartment(_ context.Context, d allocation.Department) error {
	m.PutDepartment(d)
	return nil
}

func (m *Memory) GetDepartment(_ context.Context, id allocation.DepartmentID) (*allocation.Department, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, allocation.ErrDepartmentNotFound
	}
	return &d, nil
}

func (m *Memory) ListDepartments(_ context.Context) ([]allocation.Department, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()

	result := make([]allocation.Department, 0, len(m.departments))
	for _, d := range m.departments {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
