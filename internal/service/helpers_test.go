package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
	"chromabloom/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakePredictor struct {
	mu         sync.Mutex
	difficulty models.Difficulty
	err        error
	calls      []models.FeatureVector
}

func (p *fakePredictor) PredictDifficulty(ctx context.Context, fv models.FeatureVector) (models.Difficulty, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fv)
	if p.err != nil {
		return "", p.err
	}
	return p.difficulty, nil
}

func (p *fakePredictor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeNotifier struct {
	mu       sync.Mutex
	closures []*models.CycleClosure
	err      error
}

func (n *fakeNotifier) NotifyCycleClosed(ctx context.Context, caregiver *models.Caregiver, child *models.Child, closure *models.CycleClosure) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closures = append(n.closures, closure)
	return n.err
}

type testEnv struct {
	db         *database.DB
	clock      *testClock
	predictor  *fakePredictor
	notifier   *fakeNotifier
	activities *repository.ActivityRepository
	plansRepo  *repository.PlanRepository
	catalog    *CatalogService
	progress   *ProgressService
	plans      *PlanService
}

var testStart = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	logger := zap.NewNop()
	tc := &testClock{now: testStart}
	clock := Clock{Now: tc.Now, Location: time.UTC}

	activities := repository.NewActivityRepository(db)
	plans := repository.NewPlanRepository(db)
	runs := repository.NewRunRepository(db)

	env := &testEnv{
		db:         db,
		clock:      tc,
		predictor:  &fakePredictor{difficulty: models.DifficultyMedium},
		notifier:   &fakeNotifier{},
		activities: activities,
		plansRepo:  plans,
	}
	env.catalog = NewCatalogService(activities, logger)
	env.progress = NewProgressService(plans, activities, runs, clock, logger)
	features := NewFeatureService(runs, clock)
	env.plans = NewPlanService(db, env.catalog, features, env.predictor, env.notifier, clock, logger)
	return env
}

// seedCatalog stores count activities of the given band and tier, each with
// steps instruction steps.
func (e *testEnv) seedCatalog(t *testing.T, ageGroup string, difficulty models.Difficulty, count, steps int) []*models.Activity {
	t.Helper()

	var out []*models.Activity
	for i := 0; i < count; i++ {
		a := &models.Activity{
			Title:       fmt.Sprintf("%s %s activity %d", ageGroup, difficulty, i+1),
			Description: "seeded",
			AgeGroup:    ageGroup,
			Difficulty:  difficulty,
		}
		for s := 1; s <= steps; s++ {
			a.Steps = append(a.Steps, models.ActivityStep{StepNumber: s, Instruction: fmt.Sprintf("step %d", s)})
		}
		require.NoError(t, e.activities.Create(context.Background(), a))
		out = append(out, a)
	}
	return out
}

func (e *testEnv) countActive(t *testing.T, caregiverID, childID string) int {
	t.Helper()

	var n int
	err := e.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM plans WHERE caregiver_id = ? AND child_id = ? AND is_active = ?",
		caregiverID, childID, true).Scan(&n)
	require.NoError(t, err)
	return n
}

func allSteps(n int) []models.StepStatus {
	steps := make([]models.StepStatus, n)
	for i := range steps {
		steps[i] = models.StepStatus{StepNumber: i + 1, IsCompleted: true}
	}
	return steps
}
