package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chromabloom/internal/service"

	"go.uber.org/zap"
)

// PlanHandler exposes the plan lifecycle of a caregiver's children
type PlanHandler struct {
	plans  *service.PlanService
	logger *zap.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *service.PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{
		plans:  plans,
		logger: logger,
	}
}

type ensurePlanRequest struct {
	AgeGroup string `json:"age_group"`
}

// EnsureActivePlan returns the child's current plan, creating or rolling
// it over as needed. The body is optional.
func (h *PlanHandler) EnsureActivePlan(w http.ResponseWriter, r *http.Request) {
	var req ensurePlanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, h.logger, r, invalidInput(ErrInvalidJSON))
		return
	}

	plan, err := h.plans.EnsureActivePlan(r.Context(), caregiverID(r), r.PathValue("childId"), req.AgeGroup)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// CloseCycle ends the child's finished cycle and starts the next one
func (h *PlanHandler) CloseCycle(w http.ResponseWriter, r *http.Request) {
	closure, err := h.plans.CloseCycle(r.Context(), caregiverID(r), r.PathValue("childId"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, closure)
}

// ListPlans returns every plan version for the child, newest first
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlanHistory(r.Context(), caregiverID(r), r.PathValue("childId"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// GetPlan returns one plan with its activities
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(r.Context(), caregiverID(r), r.PathValue("childId"), r.PathValue("planId"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}
