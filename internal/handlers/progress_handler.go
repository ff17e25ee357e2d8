package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chromabloom/internal/models"
	"chromabloom/internal/service"

	"go.uber.org/zap"
)

// ProgressHandler records and reads daily activity runs
type ProgressHandler struct {
	progress *service.ProgressService
	logger   *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *service.ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger,
	}
}

type progressRequest struct {
	StepsProgress            []models.StepStatus `json:"steps_progress"`
	CompletedDurationMinutes json.RawMessage     `json:"completed_duration_minutes"`
	StartedAt                *time.Time          `json:"started_at"`
	FinishedAt               *time.Time          `json:"finished_at"`
}

// parseDuration accepts a JSON number or a numeric string. Absent means 0.
func parseDuration(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, invalidInput("completed_duration_minutes must be a number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalidInput("completed_duration_minutes must be a number")
	}
	return n, nil
}

// RecordProgress upserts today's run of a plan activity
func (h *ProgressHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	duration, err := parseDuration(req.CompletedDurationMinutes)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	run, err := h.progress.RecordProgress(r.Context(), service.ProgressInput{
		CaregiverID:              caregiverID(r),
		ChildID:                  r.PathValue("childId"),
		PlanID:                   r.PathValue("planId"),
		ActivityID:               r.PathValue("activityId"),
		StepsProgress:            req.StepsProgress,
		CompletedDurationMinutes: duration,
		StartedAt:                req.StartedAt,
		FinishedAt:               req.FinishedAt,
	})
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetProgress returns the run of one activity on a day, defaulting to today.
// A day without a run answers with null data.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	run, err := h.progress.GetProgress(r.Context(), caregiverID(r),
		r.PathValue("childId"), r.PathValue("planId"), r.PathValue("activityId"), r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	if run == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// ListPlanProgress returns every run of the plan on a day
func (h *ProgressHandler) ListPlanProgress(w http.ResponseWriter, r *http.Request) {
	runs, err := h.progress.ListPlanProgress(r.Context(), caregiverID(r),
		r.PathValue("childId"), r.PathValue("planId"), r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}
