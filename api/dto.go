/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract so fields can be
  renamed and versions evolved without touching the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers parse and validate; DTOs are pure data carriers. Domain-level
  validation (dates, hours, role) lives in the engine.

SEE ALSO:
  - handlers.go: Uses these types
  - allocation/types.go: The domain records behind them
*/
package api

import (
	"time"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

// AllocationDTO represents an allocation in API responses.
type AllocationDTO struct {
	ID                string   `json:"id"`
	EmployeeID        string   `json:"employee_id"`
	ProjectID         string   `json:"project_id"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	AllocatedHours    float64  `json:"allocated_hours"`
	ActualHours       *float64 `json:"actual_hours,omitempty"`
	Role              string   `json:"role"`
	HourlyRate        *float64 `json:"hourly_rate,omitempty"`
	UtilizationTarget *float64 `json:"utilization_target,omitempty"`
	Status            string   `json:"status"`
	Notes             string   `json:"notes,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

func toAllocationDTO(a *allocation.ResourceAllocation) AllocationDTO {
	dto := AllocationDTO{
		ID:             string(a.ID),
		EmployeeID:     string(a.EmployeeID),
		ProjectID:      string(a.ProjectID),
		StartDate:      a.StartDate.String(),
		EndDate:        a.EndDate.String(),
		AllocatedHours: a.AllocatedHours.Float64(),
		Role:           a.Role,
		Status:         string(a.Status),
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ActualHours != nil {
		v := a.ActualHours.Float64()
		dto.ActualHours = &v
	}
	if a.HourlyRate != nil {
		v, _ := a.HourlyRate.Float64()
		dto.HourlyRate = &v
	}
	if a.UtilizationTarget != nil {
		v, _ := a.UtilizationTarget.Float64()
		dto.UtilizationTarget = &v
	}
	return dto
}

// CreateAllocationRequest is the request to create an allocation.
type CreateAllocationRequest struct {
	EmployeeID        string   `json:"employee_id"`
	ProjectID         string   `json:"project_id"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	AllocatedHours    float64  `json:"allocated_hours"`
	Role              string   `json:"role"`
	HourlyRate        *float64 `json:"hourly_rate,omitempty"`
	UtilizationTarget *float64 `json:"utilization_target,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Status            string   `json:"status,omitempty"`

	// Enforcement: "checked" (default), "strict", or "none".
	Enforcement string `json:"enforcement,omitempty"`
}

// UpdateAllocationRequest carries partial allocation updates.
type UpdateAllocationRequest struct {
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	AllocatedHours *float64 `json:"allocated_hours,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"`
	Role           *string  `json:"role,omitempty"`
	HourlyRate     *float64 `json:"hourly_rate,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Enforcement    string   `json:"enforcement,omitempty"`
}

// CompleteAllocationRequest optionally records actual hours.
type CompleteAllocationRequest struct {
	ActualHours *float64 `json:"actual_hours,omitempty"`
}

// AllocationResultDTO returns the persisted record plus advisory results.
type AllocationResultDTO struct {
	Allocation AllocationDTO          `json:"allocation"`
	Warnings   []string               `json:"warnings,omitempty"`
	Conflicts  *ConflictReportDTO     `json:"conflicts,omitempty"`
	Validation *CapacityValidationDTO `json:"validation,omitempty"`
}

// =============================================================================
// CONFLICT / CAPACITY TYPES
// =============================================================================

// ConflictDTO is one overlapping allocation in a conflict report.
type ConflictDTO struct {
	AllocationID   string  `json:"allocation_id"`
	ProjectID      string  `json:"project_id"`
	ProjectName    string  `json:"project_name,omitempty"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	AllocatedHours float64 `json:"allocated_hours"`
	OverlapDays    int     `json:"overlap_days"`
}

// ConflictReportDTO mirrors allocation.ConflictReport.
type ConflictReportDTO struct {
	HasConflicts bool          `json:"has_conflicts"`
	Conflicts    []ConflictDTO `json:"conflicts"`
	Suggestions  []string      `json:"suggestions,omitempty"`
}

func toConflictReportDTO(r *allocation.ConflictReport) *ConflictReportDTO {
	if r == nil {
		return nil
	}
	dto := &ConflictReportDTO{
		HasConflicts: r.HasConflicts,
		Conflicts:    make([]ConflictDTO, 0, len(r.Conflicts)),
		Suggestions:  r.Suggestions,
	}
	for _, c := range r.Conflicts {
		dto.Conflicts = append(dto.Conflicts, ConflictDTO{
			AllocationID:   string(c.AllocationID),
			ProjectID:      string(c.ProjectID),
			ProjectName:    c.ProjectName,
			StartDate:      c.StartDate.String(),
			EndDate:        c.EndDate.String(),
			AllocatedHours: c.AllocatedHours.Float64(),
			OverlapDays:    c.OverlapDays,
		})
	}
	return dto
}

// CapacityValidationDTO mirrors allocation.CapacityValidationResult.
type CapacityValidationDTO struct {
	IsValid               bool     `json:"is_valid"`
	Warnings              []string `json:"warnings,omitempty"`
	MaxCapacityHours      float64  `json:"max_capacity_hours"`
	CurrentAllocatedHours float64  `json:"current_allocated_hours"`
	UtilizationRate       float64  `json:"utilization_rate"`
	ConflictCount         int      `json:"conflict_count"`
}

func toCapacityValidationDTO(r *allocation.CapacityValidationResult) *CapacityValidationDTO {
	if r == nil {
		return nil
	}
	rate, _ := r.UtilizationRate.Float64()
	return &CapacityValidationDTO{
		IsValid:               r.IsValid,
		Warnings:              r.Warnings,
		MaxCapacityHours:      r.MaxCapacityHours.Float64(),
		CurrentAllocatedHours: r.CurrentAllocatedHours.Float64(),
		UtilizationRate:       rate,
		ConflictCount:         r.ConflictCount,
	}
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// OverAllocationWarningDTO is one flagged employee-week.
type OverAllocationWarningDTO struct {
	EmployeeID          string   `json:"employee_id"`
	WeekStart           string   `json:"week_start"`
	WeekEnd             string   `json:"week_end"`
	DefaultHours        float64  `json:"default_hours"`
	AllocatedHours      float64  `json:"allocated_hours"`
	OverAllocationHours float64  `json:"over_allocation_hours"`
	UtilizationRate     float64  `json:"utilization_rate"`
	Severity            string   `json:"severity"`
	Message             string   `json:"message"`
	Suggestions         []string `json:"suggestions,omitempty"`
	Allocations         []string `json:"allocations,omitempty"`
}

// WeekBreakdownDTO counts warnings per week bucket.
type WeekBreakdownDTO struct {
	WeekStart     string `json:"week_start"`
	WeekEnd       string `json:"week_end"`
	WarningCount  int    `json:"warning_count"`
	CriticalCount int    `json:"critical_count"`
}

// OverAllocationSummaryDTO mirrors allocation.OverAllocationSummary.
type OverAllocationSummaryDTO struct {
	RangeStart             string                     `json:"range_start"`
	RangeEnd               string                     `json:"range_end"`
	Warnings               []OverAllocationWarningDTO `json:"warnings"`
	TotalWarnings          int                        `json:"total_warnings"`
	TotalCritical          int                        `json:"total_critical"`
	WeeklyBreakdown        []WeekBreakdownDTO         `json:"weekly_breakdown"`
	AverageUtilization     float64                    `json:"average_utilization"`
	OverAllocatedEmployees int                        `json:"over_allocated_employees"`
}

func toOverAllocationSummaryDTO(s *allocation.OverAllocationSummary) OverAllocationSummaryDTO {
	avg, _ := s.AverageUtilization.Float64()
	dto := OverAllocationSummaryDTO{
		RangeStart:             s.Range.Start.String(),
		RangeEnd:               s.Range.End.String(),
		Warnings:               make([]OverAllocationWarningDTO, 0, len(s.Warnings)),
		TotalWarnings:          s.TotalWarnings,
		TotalCritical:          s.TotalCritical,
		WeeklyBreakdown:        make([]WeekBreakdownDTO, 0, len(s.WeeklyBreakdown)),
		AverageUtilization:     avg,
		OverAllocatedEmployees: s.OverAllocatedEmployees,
	}
	for _, w := range s.Warnings {
		rate, _ := w.UtilizationRate.Float64()
		ids := make([]string, 0, len(w.Allocations))
		for _, id := range w.Allocations {
			ids = append(ids, string(id))
		}
		dto.Warnings = append(dto.Warnings, OverAllocationWarningDTO{
			EmployeeID:          string(w.EmployeeID),
			WeekStart:           w.Week.Start.String(),
			WeekEnd:             w.Week.End.String(),
			DefaultHours:        w.DefaultHours.Float64(),
			AllocatedHours:      w.AllocatedHours.Float64(),
			OverAllocationHours: w.OverAllocationHours.Float64(),
			UtilizationRate:     rate,
			Severity:            string(w.Severity),
			Message:             w.Message,
			Suggestions:         w.Suggestions,
			Allocations:         ids,
		})
	}
	for _, b := range s.WeeklyBreakdown {
		dto.WeeklyBreakdown = append(dto.WeeklyBreakdown, WeekBreakdownDTO{
			WeekStart:     b.Week.Start.String(),
			WeekEnd:       b.Week.End.String(),
			WarningCount:  b.WarningCount,
			CriticalCount: b.CriticalCount,
		})
	}
	return dto
}

// CapacityMetricsDTO is the per-employee rollup.
type CapacityMetricsDTO struct {
	EmployeeID          string  `json:"employee_id"`
	DepartmentID        string  `json:"department_id,omitempty"`
	TotalAllocatedHours float64 `json:"total_allocated_hours"`
	UtilizationRate     float64 `json:"utilization_rate"`
	ConflictCount       int     `json:"conflict_count"`
	ActiveAllocations   int     `json:"active_allocations"`
}

// UtilizationSummaryDTO mirrors allocation.UtilizationSummary.
type UtilizationSummaryDTO struct {
	RangeStart         string               `json:"range_start"`
	RangeEnd           string               `json:"range_end"`
	TotalEmployees     int                  `json:"total_employees"`
	AverageUtilization float64              `json:"average_utilization"`
	OverutilizedCount  int                  `json:"overutilized_count"`
	UnderutilizedCount int                  `json:"underutilized_count"`
	TotalAllocations   int                  `json:"total_allocations"`
	ConflictsCount     int                  `json:"conflicts_count"`
	Employees          []CapacityMetricsDTO `json:"employees"`
}

func toUtilizationSummaryDTO(s *allocation.UtilizationSummary) UtilizationSummaryDTO {
	avg, _ := s.AverageUtilization.Float64()
	dto := UtilizationSummaryDTO{
		RangeStart:         s.Range.Start.String(),
		RangeEnd:           s.Range.End.String(),
		TotalEmployees:     s.TotalEmployees,
		AverageUtilization: avg,
		OverutilizedCount:  s.OverutilizedCount,
		UnderutilizedCount: s.UnderutilizedCount,
		TotalAllocations:   s.TotalAllocations,
		ConflictsCount:     s.ConflictsCount,
		Employees:          make([]CapacityMetricsDTO, 0, len(s.Employees)),
	}
	for _, m := range s.Employees {
		rate, _ := m.UtilizationRate.Float64()
		dto.Employees = append(dto.Employees, CapacityMetricsDTO{
			EmployeeID:          string(m.EmployeeID),
			DepartmentID:        string(m.DepartmentID),
			TotalAllocatedHours: m.TotalAllocatedHours.Float64(),
			UtilizationRate:     rate,
			ConflictCount:       m.ConflictCount,
			ActiveAllocations:   m.ActiveAllocations,
		})
	}
	return dto
}

// TrendPointDTO is one week of a department trend series.
type TrendPointDTO struct {
	WeekStart          string  `json:"week_start"`
	WeekEnd            string  `json:"week_end"`
	AverageUtilization float64 `json:"average_utilization"`
	WarningCount       int     `json:"warning_count"`
	AllocationCount    int     `json:"allocation_count"`
}

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email,omitempty"`
	WeeklyCapacity float64 `json:"weekly_capacity"`
	Active         bool    `json:"active"`
	DepartmentID   string  `json:"department_id,omitempty"`
}

func toEmployeeDTO(e *allocation.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:             string(e.ID),
		Name:           e.Name,
		Email:          e.Email,
		WeeklyCapacity: e.Capacity().Float64(),
		Active:         e.Active,
		DepartmentID:   string(e.DepartmentID),
	}
}

// SaveEmployeeRequest creates or updates an employee.
type SaveEmployeeRequest struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email,omitempty"`
	WeeklyCapacity float64 `json:"weekly_capacity,omitempty"`
	Active         *bool   `json:"active,omitempty"`
	DepartmentID   string  `json:"department_id,omitempty"`
}

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Active    bool   `json:"active"`
}

func toProjectDTO(p *allocation.Project) ProjectDTO {
	return ProjectDTO{
		ID:        string(p.ID),
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		Active:    p.Active,
	}
}

// SaveProjectRequest creates or updates a project.
type SaveProjectRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Active    *bool  `json:"active,omitempty"`
}

// DepartmentDTO represents a department.
type DepartmentDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
