package service

import (
	"context"
	"time"

	"chromabloom/internal/features"
	"chromabloom/internal/models"
	"chromabloom/internal/repository"
)

// FeatureService aggregates a cycle's runs. It only reads.
type FeatureService struct {
	runs  *repository.RunRepository
	clock Clock
}

// NewFeatureService creates a new feature service
func NewFeatureService(runs *repository.RunRepository, clock Clock) *FeatureService {
	return &FeatureService{runs: runs, clock: clock}
}

// ComputeCycleFeatures summarizes the plan's runs dated within the cycle
func (s *FeatureService) ComputeCycleFeatures(ctx context.Context, caregiverID, childID, planID string, cycleStart, cycleEnd time.Time, difficulty models.Difficulty) (models.FeatureVector, error) {
	runs, err := s.runs.ListForPlan(ctx, caregiverID, childID, planID, s.clock.day(cycleStart), s.clock.day(cycleEnd))
	if err != nil {
		return models.FeatureVector{}, err
	}

	samples := make([]features.Sample, len(runs))
	for i, r := range runs {
		samples[i] = features.FromRun(*r)
	}
	return features.Compute(childID, difficulty, samples), nil
}
