package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
	"chromabloom/internal/repository"
	"chromabloom/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlanService owns the plan lifecycle of every (caregiver, child) pair
type PlanService struct {
	db         *database.DB
	plans      *repository.PlanRepository
	children   *repository.ChildRepository
	caregivers *repository.CaregiverRepository
	catalog    *CatalogService
	features   *FeatureService
	predictor  DifficultyPredictor
	notifier   CycleNotifier
	clock      Clock
	logger     *zap.Logger
}

// NewPlanService creates a new plan service. notifier may be nil.
func NewPlanService(db *database.DB, catalog *CatalogService, features *FeatureService, predictor DifficultyPredictor, notifier CycleNotifier, clock Clock, logger *zap.Logger) *PlanService {
	return &PlanService{
		db:         db,
		plans:      repository.NewPlanRepository(db),
		children:   repository.NewChildRepository(db),
		caregivers: repository.NewCaregiverRepository(db),
		catalog:    catalog,
		features:   features,
		predictor:  predictor,
		notifier:   notifier,
		clock:      clock,
		logger:     logger,
	}
}

// EnsureActivePlan returns the pair's active plan. With no plan it creates
// an easy starter plan; with an ended plan it closes the cycle and returns
// the successor.
func (s *PlanService) EnsureActivePlan(ctx context.Context, caregiverID, childID, ageGroup string) (*models.Plan, error) {
	child, err := s.ownedChild(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}

	active, err := s.plans.GetActive(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if !active.HasEnded(s.clock.now()) {
			return s.populate(ctx, active)
		}
		closure, err := s.CloseCycle(ctx, caregiverID, childID)
		if errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrCycleNotEnded) {
			return s.reloadActive(ctx, caregiverID, childID, err)
		}
		if err != nil {
			return nil, err
		}
		return closure.NewPlan, nil
	}

	ageGroup = strings.TrimSpace(ageGroup)
	if ageGroup == "" {
		if child == nil || child.DateOfBirth == nil {
			return nil, newError(KindInvalidInput, nil, "age_group is required when the child's date of birth is unknown")
		}
		ageGroup = models.AgeGroupForBirthDate(*child.DateOfBirth, s.clock.now())
	}
	if err := validation.ValidateAgeGroup(ageGroup); err != nil {
		return nil, newError(KindInvalidInput, err, "invalid age group")
	}

	drawn, err := s.catalog.Draw(ctx, ageGroup, models.DifficultyEasy, models.PlanSize)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	plan := newPlan(caregiverID, childID, ageGroup, models.DifficultyEasy, drawn, now, now)

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		plans := s.plans.WithTx(tx)
		version, err := plans.LatestVersion(ctx, caregiverID, childID)
		if err != nil {
			return err
		}
		plan.Version = version + 1
		return plans.Create(ctx, plan)
	})
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return s.reloadActive(ctx, caregiverID, childID, newError(KindConcurrencyConflict, err, "another starter plan was created concurrently"))
		}
		return nil, err
	}

	s.logger.Info("starter plan created",
		zap.String("caregiver_id", caregiverID),
		zap.String("child_id", childID),
		zap.String("plan_id", plan.ID),
		zap.String("age_group", ageGroup),
		zap.Int("version", plan.Version))
	return attach(plan, drawn), nil
}

// CloseCycle closes the pair's ended cycle: features, one predictor call,
// a draw at the predicted difficulty, then the old plan is deactivated and
// the successor created in one transaction. Nothing changes unless every
// step succeeds.
func (s *PlanService) CloseCycle(ctx context.Context, caregiverID, childID string) (*models.CycleClosure, error) {
	child, err := s.ownedChild(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}

	ended, err := s.plans.GetActive(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}
	if ended == nil {
		return nil, newError(KindNotFound, nil, "no active plan for child %s", childID)
	}

	now := s.clock.now()
	if !ended.HasEnded(now) {
		return nil, newError(KindCycleNotEnded, nil, "cycle of plan %s ends at %s", ended.ID, ended.CycleEnd.In(now.Location()).Format(time.RFC3339))
	}

	var fv models.FeatureVector
	var caregiver *models.Caregiver
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fv, err = s.features.ComputeCycleFeatures(gctx, caregiverID, childID, ended.ID, ended.CycleStart, ended.CycleEnd, ended.Difficulty)
		return err
	})
	if s.notifier != nil {
		g.Go(func() error {
			var err error
			if caregiver, err = s.caregivers.GetByID(gctx, caregiverID); err != nil {
				s.logger.Warn("failed to load caregiver for cycle email", zap.String("caregiver_id", caregiverID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ageGroup := resolveAgeGroup(child, ended, now)

	difficulty, err := s.predictor.PredictDifficulty(ctx, fv)
	if err != nil {
		s.logger.Warn("difficulty prediction failed", zap.String("plan_id", ended.ID), zap.Error(err))
		if KindOf(err) == "" {
			err = newError(KindPredictorUnavailable, err, "difficulty predictor failed")
		}
		return nil, err
	}

	drawn, err := s.catalog.Draw(ctx, ageGroup, difficulty, models.PlanSize)
	if err != nil {
		return nil, err
	}

	next := newPlan(caregiverID, childID, ageGroup, difficulty, drawn, now.AddDate(0, 0, 1), now)

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		plans := s.plans.WithTx(tx)
		if err := plans.Deactivate(ctx, ended.ID, now); err != nil {
			if errors.Is(err, repository.ErrPlanNotActive) {
				return newError(KindConcurrencyConflict, err, "plan %s was closed concurrently", ended.ID)
			}
			return err
		}
		version, err := plans.LatestVersion(ctx, caregiverID, childID)
		if err != nil {
			return err
		}
		next.Version = version + 1
		return plans.Create(ctx, next)
	})
	if err != nil {
		if KindOf(err) == "" && s.db.Dialect.IsUniqueViolation(err) {
			err = newError(KindConcurrencyConflict, err, "a successor plan was created concurrently")
		}
		return nil, err
	}

	closure := &models.CycleClosure{
		EndedPlanID:         ended.ID,
		FeatureVector:       fv,
		PredictedDifficulty: difficulty,
		NewPlan:             attach(next, drawn),
	}

	s.logger.Info("cycle closed",
		zap.String("caregiver_id", caregiverID),
		zap.String("child_id", childID),
		zap.String("ended_plan_id", ended.ID),
		zap.String("new_plan_id", next.ID),
		zap.String("difficulty", string(difficulty)),
		zap.Int("version", next.Version),
		zap.Int("runs_count", fv.RunsCount),
		zap.Float64("avg_completion_rate", fv.AvgCompletionRate))

	s.notify(ctx, caregiver, child, closure)
	return closure, nil
}

// GetPlan returns one of the pair's plans with its activities resolved
func (s *PlanService) GetPlan(ctx context.Context, caregiverID, childID, planID string) (*models.Plan, error) {
	if _, err := s.ownedChild(ctx, caregiverID, childID); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.CaregiverID != caregiverID || plan.ChildID != childID {
		return nil, newError(KindNotFound, nil, "plan %s not found", planID)
	}
	return s.populate(ctx, plan)
}

// ListPlanHistory returns every plan of the pair, newest first
func (s *PlanService) ListPlanHistory(ctx context.Context, caregiverID, childID string) ([]*models.Plan, error) {
	if _, err := s.ownedChild(ctx, caregiverID, childID); err != nil {
		return nil, err
	}
	plans, err := s.plans.ListForPair(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, p := range plans {
		ids = append(ids, p.ActivityIDs()...)
	}
	activities, err := s.catalog.GetActivities(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		resolve(p, activities)
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	return plans, nil
}

// ownedChild checks the pair is consistent with the child directory. A child
// that is not in the directory is allowed; one owned by someone else is not
// found.
func (s *PlanService) ownedChild(ctx context.Context, caregiverID, childID string) (*models.Child, error) {
	if caregiverID == "" || childID == "" {
		return nil, newError(KindInvalidInput, nil, "caregiver and child ids are required")
	}
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child != nil && child.CaregiverID != caregiverID {
		return nil, newError(KindNotFound, nil, "child %s not found", childID)
	}
	return child, nil
}

func (s *PlanService) reloadActive(ctx context.Context, caregiverID, childID string, cause error) (*models.Plan, error) {
	active, err := s.plans.GetActive(ctx, caregiverID, childID)
	if err != nil {
		return nil, err
	}
	if active == nil || active.HasEnded(s.clock.now()) {
		return nil, cause
	}
	return s.populate(ctx, active)
}

func (s *PlanService) populate(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	activities, err := s.catalog.GetActivities(ctx, plan.ActivityIDs())
	if err != nil {
		return nil, err
	}
	resolve(plan, activities)
	return plan, nil
}

func (s *PlanService) notify(ctx context.Context, caregiver *models.Caregiver, child *models.Child, closure *models.CycleClosure) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCycleClosed(ctx, caregiver, child, closure); err != nil {
		s.logger.Warn("failed to send cycle email", zap.String("plan_id", closure.NewPlan.ID), zap.Error(err))
	}
}

// resolveAgeGroup prefers the child's current age band and falls back to
// the band the ended plan was drawn for.
func resolveAgeGroup(child *models.Child, ended *models.Plan, now time.Time) string {
	if child != nil && child.DateOfBirth != nil {
		return models.AgeGroupForBirthDate(*child.DateOfBirth, now)
	}
	return ended.AgeGroup
}

func newPlan(caregiverID, childID, ageGroup string, difficulty models.Difficulty, drawn []*models.Activity, startDay, now time.Time) *models.Plan {
	start, end := models.CycleWindow(startDay)
	plan := &models.Plan{
		ID:          uuid.NewString(),
		CaregiverID: caregiverID,
		ChildID:     childID,
		AgeGroup:    ageGroup,
		Difficulty:  difficulty,
		CycleStart:  start,
		CycleEnd:    end,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, a := range drawn {
		plan.Activities = append(plan.Activities, models.PlanActivity{ActivityID: a.ID, Order: i + 1})
	}
	return plan
}

func attach(plan *models.Plan, drawn []*models.Activity) *models.Plan {
	byID := make(map[string]*models.Activity, len(drawn))
	for _, a := range drawn {
		byID[a.ID] = a
	}
	resolve(plan, byID)
	return plan
}

func resolve(plan *models.Plan, activities map[string]*models.Activity) {
	for i := range plan.Activities {
		plan.Activities[i].Activity = activities[plan.Activities[i].ActivityID]
	}
}
