/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Lightweight, context-based, RESTful route patterns.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/allocations/*    Allocation lifecycle
  /api/employees/*      Employee directory, conflict and capacity checks
  /api/projects/*       Project directory
  /api/departments/*    Department directory
  /api/reports/*        Over-allocation and utilization reports

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Allocation routes
		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", h.ListAllocations)
			r.Post("/", h.CreateAllocation)
			r.Get("/{id}", h.GetAllocation)
			r.Put("/{id}", h.UpdateAllocation)
			r.Delete("/{id}", h.DeleteAllocation)
			r.Post("/{id}/confirm", h.ConfirmAllocation)
			r.Post("/{id}/complete", h.CompleteAllocation)
			r.Post("/{id}/cancel", h.CancelAllocation)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/conflicts", h.CheckConflicts)
			r.Get("/{id}/capacity", h.ValidateCapacity)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.SaveProject)
			r.Get("/{id}", h.GetProject)
			r.Delete("/{id}", h.DeleteProject)
		})

		// Department routes
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Post("/", h.SaveDepartment)
			r.Get("/{id}", h.GetDepartment)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/overallocation", h.OverAllocationReport)
			r.Get("/utilization", h.UtilizationReport)
			r.Get("/departments/{id}/trend", h.DepartmentTrend)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Allocation Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Allocation Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/allocations">/api/allocations</a> - List allocations</li>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/projects">/api/projects</a> - List projects</li>
<li><a href="/api/reports/utilization">/api/reports/utilization</a> - Utilization summary</li>
</ul>
</body>
</html>`))
	})

	return r
}
