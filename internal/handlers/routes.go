package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Router bundles the handlers served by the API
type Router struct {
	Middleware *Middleware
	Activities *ActivityHandler
	Plans      *PlanHandler
	Progress   *ProgressHandler
	Startup    *StartupStatus
	Logger     *zap.Logger
}

// Handler builds the request multiplexer wrapped in request logging
func (rt *Router) Handler() http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /healthz", Healthz)
	mux.HandleFunc("GET /readyz", rt.Startup.Readyz)

	// Catalog
	mux.HandleFunc("GET /api/activities", m.RequireAuth(rt.Activities.ListActivities))
	mux.HandleFunc("GET /api/activities/{id}", m.RequireAuth(rt.Activities.GetActivity))
	mux.HandleFunc("POST /api/activities", m.RequireAdmin(m.RateLimit(rt.Activities.CreateActivity)))
	mux.HandleFunc("PUT /api/activities/{id}", m.RequireAdmin(m.RateLimit(rt.Activities.UpdateActivity)))

	// Plans
	mux.HandleFunc("POST /api/children/{childId}/plans/current", m.RequireAuth(m.RateLimit(rt.Plans.EnsureActivePlan)))
	mux.HandleFunc("POST /api/children/{childId}/plans/close", m.RequireAuth(m.RateLimit(rt.Plans.CloseCycle)))
	mux.HandleFunc("GET /api/children/{childId}/plans", m.RequireAuth(rt.Plans.ListPlans))
	mux.HandleFunc("GET /api/children/{childId}/plans/{planId}", m.RequireAuth(rt.Plans.GetPlan))

	// Progress
	mux.HandleFunc("GET /api/children/{childId}/plans/{planId}/progress", m.RequireAuth(rt.Progress.ListPlanProgress))
	mux.HandleFunc("PUT /api/children/{childId}/plans/{planId}/activities/{activityId}/progress", m.RequireAuth(m.RateLimit(rt.Progress.RecordProgress)))
	mux.HandleFunc("GET /api/children/{childId}/plans/{planId}/activities/{activityId}/progress", m.RequireAuth(rt.Progress.GetProgress))

	return Logging(rt.Logger, mux)
}
