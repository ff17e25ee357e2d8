package handlers

import (
	"net/http"

	"chromabloom/internal/models"
	"chromabloom/internal/service"

	"go.uber.org/zap"
)

// ActivityHandler serves the activity catalog
type ActivityHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(catalog *service.CatalogService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListActivities returns the catalog filtered by age_group and difficulty_level
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	activities, err := h.catalog.ListActivities(r.Context(), query.Get("age_group"), query.Get("difficulty_level"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// GetActivity returns a single activity
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.catalog.GetActivity(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// CreateActivity adds an activity to the catalog
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var activity models.Activity
	if err := decodeJSON(w, r, &activity); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	created, err := h.catalog.CreateActivity(r.Context(), &activity)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdateActivity replaces an existing activity
func (h *ActivityHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var activity models.Activity
	if err := decodeJSON(w, r, &activity); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	updated, err := h.catalog.UpdateActivity(r.Context(), r.PathValue("id"), &activity)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
