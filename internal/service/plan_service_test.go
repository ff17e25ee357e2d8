package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromabloom/internal/models"
	"chromabloom/internal/repository"
)

func TestEnsureActivePlanCreatesStarter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 8, 3)
	env.seedCatalog(t, "4", models.DifficultyHard, 5, 3)

	plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)

	assert.Equal(t, models.DifficultyEasy, plan.Difficulty)
	assert.Equal(t, 1, plan.Version)
	assert.True(t, plan.IsActive)
	assert.Equal(t, "4", plan.AgeGroup)
	require.Len(t, plan.Activities, models.PlanSize)

	seen := map[string]bool{}
	for i, pa := range plan.Activities {
		assert.Equal(t, i+1, pa.Order)
		require.NotNil(t, pa.Activity)
		assert.Equal(t, models.DifficultyEasy, pa.Activity.Difficulty)
		assert.False(t, seen[pa.ActivityID], "activity drawn twice")
		seen[pa.ActivityID] = true
	}

	assert.True(t, plan.CycleStart.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, plan.CycleEnd.Equal(time.Date(2024, 3, 14, 23, 59, 59, 999000000, time.UTC)))

	again, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, again.ID)
	assert.Equal(t, plan.ActivityIDs(), again.ActivityIDs())
	assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"))
}

func TestEnsureActivePlanInsufficientCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 4, 2)

	_, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")

	assert.ErrorIs(t, err, ErrInsufficientCatalog)
	assert.Equal(t, 0, env.countActive(t, "cg-1", "child-1"))
}

func TestEnsureActivePlanAgeGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "3", models.DifficultyEasy, 5, 2)

	dob := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	children := repository.NewChildRepository(env.db)
	require.NoError(t, children.Save(ctx, &models.Child{ID: "child-1", CaregiverID: "cg-1", Name: "Kavi", DateOfBirth: &dob}))
	require.NoError(t, children.Save(ctx, &models.Child{ID: "child-2", CaregiverID: "cg-2", Name: "Nila"}))

	t.Run("derived from date of birth", func(t *testing.T) {
		plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "")
		require.NoError(t, err)
		assert.Equal(t, "3", plan.AgeGroup)
	})

	t.Run("required without date of birth", func(t *testing.T) {
		_, err := env.plans.EnsureActivePlan(ctx, "cg-2", "child-2", "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown band", func(t *testing.T) {
		_, err := env.plans.EnsureActivePlan(ctx, "cg-2", "child-2", "12")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("child of another caregiver", func(t *testing.T) {
		_, err := env.plans.EnsureActivePlan(ctx, "cg-2", "child-1", "3")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCloseCycleBeforeEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 5, 2)

	plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)

	env.clock.Set(plan.CycleEnd)
	_, err = env.plans.CloseCycle(ctx, "cg-1", "child-1")

	assert.ErrorIs(t, err, ErrCycleNotEnded)
	assert.Equal(t, 0, env.predictor.callCount())

	stored, err := env.plansRepo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, plan.Version, stored.Version)
}

func TestCloseCycleWithoutPlan(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.plans.CloseCycle(context.Background(), "cg-1", "child-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseCycleFailuresLeavePlanActive(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(env *testEnv)
		wantErr error
	}{
		{
			name: "predictor unavailable",
			setup: func(env *testEnv) {
				env.predictor.err = newError(KindPredictorUnavailable, nil, "timeout")
			},
			wantErr: ErrPredictorUnavailable,
		},
		{
			name: "predictor returns a plain error",
			setup: func(env *testEnv) {
				env.predictor.err = errors.New("connection refused")
			},
			wantErr: ErrPredictorUnavailable,
		},
		{
			name: "no catalog at predicted difficulty",
			setup: func(env *testEnv) {
				env.predictor.difficulty = models.DifficultyHard
			},
			wantErr: ErrInsufficientCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.seedCatalog(t, "4", models.DifficultyEasy, 5, 2)
			env.seedCatalog(t, "4", models.DifficultyMedium, 5, 2)
			tt.setup(env)

			plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
			require.NoError(t, err)
			env.clock.Set(plan.CycleEnd.Add(time.Second))

			_, err = env.plans.CloseCycle(ctx, "cg-1", "child-1")
			assert.ErrorIs(t, err, tt.wantErr)

			active, err := env.plansRepo.GetActive(ctx, "cg-1", "child-1")
			require.NoError(t, err)
			require.NotNil(t, active)
			assert.Equal(t, plan.ID, active.ID)
			assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"))
			assert.Empty(t, env.notifier.closures)
		})
	}
}

func TestFourteenDayCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 5, 3)
	env.seedCatalog(t, "4", models.DifficultyMedium, 6, 4)

	plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)

	for day := 0; day < models.CycleDays; day++ {
		env.clock.Set(testStart.AddDate(0, 0, day))
		for _, pa := range plan.Activities {
			run, err := env.progress.RecordProgress(ctx, ProgressInput{
				CaregiverID:              "cg-1",
				ChildID:                  "child-1",
				PlanID:                   plan.ID,
				ActivityID:               pa.ActivityID,
				StepsProgress:            allSteps(3),
				CompletedDurationMinutes: 10,
			})
			require.NoError(t, err)
			assert.Equal(t, 3, run.CompletedSteps)
		}
	}

	env.clock.Set(plan.CycleEnd.Add(time.Second))
	closure, err := env.plans.CloseCycle(ctx, "cg-1", "child-1")
	require.NoError(t, err)

	fv := closure.FeatureVector
	assert.Equal(t, "child-1", fv.ChildID)
	assert.InDelta(t, 1.0, fv.AvgCompletionRate, 1e-9)
	assert.Equal(t, 70, fv.RunsCount)
	assert.InDelta(t, 0.0, fv.CompletionRateTrend, 1e-9)
	assert.InDelta(t, 0.0, fv.AvgSkippedSteps, 1e-9)
	assert.InDelta(t, 10.0, fv.AvgDurationMinutes, 1e-9)
	assert.Equal(t, models.DifficultyEasy, fv.CurrentDifficultyLevel)

	assert.Equal(t, 1, env.predictor.callCount())
	assert.Equal(t, plan.ID, closure.EndedPlanID)
	assert.Equal(t, models.DifficultyMedium, closure.PredictedDifficulty)

	next := closure.NewPlan
	assert.Equal(t, 2, next.Version)
	assert.True(t, next.IsActive)
	assert.Equal(t, models.DifficultyMedium, next.Difficulty)
	require.Len(t, next.Activities, models.PlanSize)
	for _, pa := range next.Activities {
		require.NotNil(t, pa.Activity)
		assert.Equal(t, models.DifficultyMedium, pa.Activity.Difficulty)
	}
	assert.True(t, next.CycleStart.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)), "successor starts tomorrow, got %v", next.CycleStart)
	assert.True(t, next.CycleEnd.Equal(time.Date(2024, 3, 29, 23, 59, 59, 999000000, time.UTC)))

	old, err := env.plansRepo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"))

	require.Len(t, env.notifier.closures, 1)
	assert.Equal(t, next.ID, env.notifier.closures[0].NewPlan.ID)

	history, err := env.plans.ListPlanHistory(ctx, "cg-1", "child-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, next.ID, history[0].ID)
	require.NotNil(t, history[1].Activities[0].Activity)
}

func TestEnsureActivePlanClosesEndedCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 5, 2)
	env.seedCatalog(t, "4", models.DifficultyMedium, 5, 2)

	first, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)

	env.clock.Set(first.CycleEnd.Add(time.Hour))
	second, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, models.DifficultyMedium, second.Difficulty)
	assert.Equal(t, 1, env.predictor.callCount())

	// Zero runs still produce a complete feature vector.
	fv := env.predictor.calls[0]
	assert.Equal(t, 0, fv.RunsCount)
	assert.Equal(t, 0.0, fv.AvgCompletionRate)
}

func TestGetPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 5, 2)

	plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)

	got, err := env.plans.GetPlan(ctx, "cg-1", "child-1", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
	require.NotNil(t, got.Activities[0].Activity)

	_, err = env.plans.GetPlan(ctx, "cg-2", "child-1", plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.plans.GetPlan(ctx, "cg-1", "child-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentEnsureCreatesOneStarter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 10, 2)

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
			errs[i] = err
			if plan != nil {
				ids[i] = plan.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"))
}

func TestConcurrentCloseCycleHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 5, 2)
	env.seedCatalog(t, "4", models.DifficultyMedium, 5, 2)

	plan, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
	require.NoError(t, err)
	env.clock.Set(plan.CycleEnd.Add(time.Minute))

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.plans.CloseCycle(ctx, "cg-1", "child-1")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrCycleNotEnded), "unexpected error %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"))

	latest, err := env.plansRepo.LatestVersion(ctx, "cg-1", "child-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestRandomizedLifecycleKeepsOneActivePlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "4", models.DifficultyEasy, 6, 2)
	env.seedCatalog(t, "4", models.DifficultyMedium, 6, 2)

	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 4; round++ {
		workers := 3 + rng.IntN(4)
		closers := make([]bool, workers)
		for i := range closers {
			closers[i] = rng.IntN(2) == 0
		}

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(close bool) {
				defer wg.Done()
				if close {
					_, _ = env.plans.CloseCycle(ctx, "cg-1", "child-1")
					return
				}
				_, _ = env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
			}(closers[i])
		}
		wg.Wait()

		active, err := env.plans.EnsureActivePlan(ctx, "cg-1", "child-1", "4")
		require.NoError(t, err)
		assert.Equal(t, 1, env.countActive(t, "cg-1", "child-1"), "round %d", round)

		env.clock.Set(active.CycleEnd.Add(time.Hour))
	}

	history, err := env.plans.ListPlanHistory(ctx, "cg-1", "child-1")
	require.NoError(t, err)
	for i, p := range history {
		assert.Equal(t, len(history)-i, p.Version, "versions are contiguous")
	}
}
