package service

import (
	"context"
	"math"
	"strings"
	"time"

	"chromabloom/internal/models"
	"chromabloom/internal/repository"

	"go.uber.org/zap"
)

// ProgressInput is one progress report for an activity of a plan
type ProgressInput struct {
	CaregiverID              string
	ChildID                  string
	PlanID                   string
	ActivityID               string
	StepsProgress            []models.StepStatus
	CompletedDurationMinutes float64
	StartedAt                *time.Time
	FinishedAt               *time.Time
}

// ProgressService records and reads activity runs
type ProgressService struct {
	plans      *repository.PlanRepository
	activities *repository.ActivityRepository
	runs       *repository.RunRepository
	clock      Clock
	logger     *zap.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(plans *repository.PlanRepository, activities *repository.ActivityRepository, runs *repository.RunRepository, clock Clock, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		plans:      plans,
		activities: activities,
		runs:       runs,
		clock:      clock,
		logger:     logger,
	}
}

// RecordProgress normalizes the reported steps against the activity and
// upserts today's run for the plan and activity. A repeated report on the
// same day replaces the earlier one.
func (s *ProgressService) RecordProgress(ctx context.Context, in ProgressInput) (*models.Run, error) {
	if strings.TrimSpace(in.ActivityID) == "" {
		return nil, newError(KindInvalidInput, nil, "activity id is required")
	}
	if math.IsNaN(in.CompletedDurationMinutes) || math.IsInf(in.CompletedDurationMinutes, 0) {
		return nil, newError(KindInvalidInput, nil, "completed_duration_minutes must be a finite number")
	}

	plan, err := s.ownedPlan(ctx, in.CaregiverID, in.ChildID, in.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, newError(KindInvalidInput, nil, "plan %s is no longer active", plan.ID)
	}

	now := s.clock.now()
	if now.Before(plan.CycleStart) || plan.HasEnded(now) {
		return nil, newError(KindInvalidInput, nil, "plan %s does not accept progress outside its cycle", plan.ID)
	}

	activity, err := s.activities.GetByID(ctx, in.ActivityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, newError(KindNotFound, nil, "activity %s not found", in.ActivityID)
	}
	if !plan.Contains(activity.ID) {
		return nil, newError(KindInvalidInput, nil, "activity %s is not part of plan %s", activity.ID, plan.ID)
	}
	if activity.TotalSteps() == 0 {
		return nil, newError(KindInvalidInput, nil, "invalid activity %s: it has no steps", activity.ID)
	}

	steps := models.NormalizeSteps(activity.TotalSteps(), in.StepsProgress)
	completed := models.CountCompleted(steps)

	run, err := s.runs.Upsert(ctx, &models.Run{
		CaregiverID:              plan.CaregiverID,
		ChildID:                  plan.ChildID,
		PlanID:                   plan.ID,
		ActivityID:               activity.ID,
		RunDate:                  s.clock.day(now),
		StepsProgress:            steps,
		TotalSteps:               len(steps),
		CompletedSteps:           completed,
		SkippedSteps:             len(steps) - completed,
		CompletedDurationMinutes: math.Max(0, in.CompletedDurationMinutes),
		StartedAt:                in.StartedAt,
		FinishedAt:               in.FinishedAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("progress recorded",
		zap.String("plan_id", run.PlanID),
		zap.String("activity_id", run.ActivityID),
		zap.String("run_date", run.RunDate),
		zap.Int("completed_steps", run.CompletedSteps),
		zap.Int("total_steps", run.TotalSteps))
	return run, nil
}

// GetProgress returns the run recorded on date, today when date is empty,
// or nil when nothing was reported.
func (s *ProgressService) GetProgress(ctx context.Context, caregiverID, childID, planID, activityID, date string) (*models.Run, error) {
	if _, err := s.ownedPlan(ctx, caregiverID, childID, planID); err != nil {
		return nil, err
	}
	day, err := s.resolveDay(date)
	if err != nil {
		return nil, err
	}
	return s.runs.Get(ctx, planID, activityID, day)
}

// ListPlanProgress returns every run of the plan recorded on date
func (s *ProgressService) ListPlanProgress(ctx context.Context, caregiverID, childID, planID, date string) ([]*models.Run, error) {
	if _, err := s.ownedPlan(ctx, caregiverID, childID, planID); err != nil {
		return nil, err
	}
	day, err := s.resolveDay(date)
	if err != nil {
		return nil, err
	}
	return s.runs.ListForPlanOnDate(ctx, planID, day)
}

func (s *ProgressService) ownedPlan(ctx context.Context, caregiverID, childID, planID string) (*models.Plan, error) {
	if caregiverID == "" || childID == "" || planID == "" {
		return nil, newError(KindInvalidInput, nil, "caregiver, child and plan ids are required")
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.CaregiverID != caregiverID || plan.ChildID != childID {
		return nil, newError(KindNotFound, nil, "plan %s not found", planID)
	}
	return plan, nil
}

func (s *ProgressService) resolveDay(date string) (string, error) {
	if date == "" {
		return s.clock.day(s.clock.now()), nil
	}
	day, err := s.clock.parseDay(date)
	if err != nil {
		return "", newError(KindInvalidInput, nil, "date must be formatted YYYY-MM-DD")
	}
	return day, nil
}
