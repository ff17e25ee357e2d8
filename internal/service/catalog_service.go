package service

import (
	"context"
	"errors"
	"math/rand/v2"

	"chromabloom/internal/models"
	"chromabloom/internal/repository"
	"chromabloom/internal/validation"

	"go.uber.org/zap"
)

// CatalogService provides access to the activity catalog
type CatalogService struct {
	activities *repository.ActivityRepository
	logger     *zap.Logger
	shuffle    func(n int, swap func(i, j int))
}

// NewCatalogService creates a new catalog service
func NewCatalogService(activities *repository.ActivityRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		activities: activities,
		logger:     logger,
		shuffle:    rand.Shuffle,
	}
}

// GetActivity returns an activity or a not_found error
func (s *CatalogService) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, newError(KindNotFound, nil, "activity %s not found", id)
	}
	return a, nil
}

// GetActivities returns the activities with the given ids keyed by id
func (s *CatalogService) GetActivities(ctx context.Context, ids []string) (map[string]*models.Activity, error) {
	return s.activities.GetByIDs(ctx, ids)
}

// ListActivities returns the catalog, optionally filtered
func (s *CatalogService) ListActivities(ctx context.Context, ageGroup, difficulty string) ([]*models.Activity, error) {
	var d models.Difficulty
	if difficulty != "" {
		parsed, err := models.ParseDifficulty(difficulty)
		if err != nil {
			return nil, newError(KindInvalidInput, nil, "difficulty_level must be easy, medium or hard")
		}
		d = parsed
	}
	if ageGroup != "" {
		if err := validation.ValidateAgeGroup(ageGroup); err != nil {
			return nil, newError(KindInvalidInput, err, "invalid age group")
		}
	}

	activities, err := s.activities.List(ctx, ageGroup, d)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []*models.Activity{}
	}
	return activities, nil
}

// ListByAgeGroupAndDifficulty returns every eligible activity for a draw
func (s *CatalogService) ListByAgeGroupAndDifficulty(ctx context.Context, ageGroup string, difficulty models.Difficulty) ([]*models.Activity, error) {
	return s.activities.ListByAgeGroupAndDifficulty(ctx, ageGroup, difficulty)
}

// CreateActivity validates and stores a new catalog entry
func (s *CatalogService) CreateActivity(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	a.ID = ""
	if err := validation.ValidateActivity(a); err != nil {
		return nil, invalidFromValidation(err)
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("activity created",
		zap.String("activity_id", a.ID),
		zap.String("age_group", a.AgeGroup),
		zap.String("difficulty", string(a.Difficulty)))
	return a, nil
}

// UpdateActivity validates and overwrites an existing catalog entry
func (s *CatalogService) UpdateActivity(ctx context.Context, id string, a *models.Activity) (*models.Activity, error) {
	existing, err := s.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}

	a.ID = id
	if err := validation.ValidateActivity(a); err != nil {
		return nil, invalidFromValidation(err)
	}
	ok, err := s.activities.Update(ctx, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindNotFound, nil, "activity %s not found", id)
	}
	a.CreatedAt = existing.CreatedAt
	return a, nil
}

// Draw picks n distinct activities uniformly at random from the pool for
// the age group and difficulty. It never returns a short list.
func (s *CatalogService) Draw(ctx context.Context, ageGroup string, difficulty models.Difficulty, n int) ([]*models.Activity, error) {
	pool, err := s.activities.ListByAgeGroupAndDifficulty(ctx, ageGroup, difficulty)
	if err != nil {
		return nil, err
	}
	if len(pool) < n {
		return nil, newError(KindInsufficientCatalog, nil,
			"need %d %s activities for age group %s, catalog has %d", n, difficulty, ageGroup, len(pool))
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n], nil
}

func invalidFromValidation(err error) error {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return newError(KindInvalidInput, nil, "%s", verr.Error())
	}
	return newError(KindInvalidInput, err, "invalid activity")
}
