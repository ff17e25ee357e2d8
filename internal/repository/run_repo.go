package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"

	"github.com/google/uuid"
)

// RunRepository handles run database operations
type RunRepository struct {
	db database.DBTX
}

// NewRunRepository creates a new run repository
func NewRunRepository(db database.DBTX) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, caregiver_id, child_id, plan_id, activity_id, run_date, steps_progress,
	total_steps, completed_steps, skipped_steps, completed_duration_minutes,
	started_at, finished_at, created_at, updated_at`

// Upsert writes the run for its (plan, activity, run date) key, replacing
// the step statuses and counts of an existing run in one statement. The
// stored row is returned.
func (r *RunRepository) Upsert(ctx context.Context, run *models.Run) (*models.Run, error) {
	steps, err := json.Marshal(run.StepsProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps progress: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, r.db.GetDialect().UpsertRunQuery(),
		uuid.NewString(), run.CaregiverID, run.ChildID, run.PlanID, run.ActivityID, run.RunDate,
		string(steps), run.TotalSteps, run.CompletedSteps, run.SkippedSteps,
		run.CompletedDurationMinutes, utcPtr(run.StartedAt), utcPtr(run.FinishedAt), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert run: %w", err)
	}

	stored, err := r.Get(ctx, run.PlanID, run.ActivityID, run.RunDate)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("run for plan %s activity %s on %s missing after upsert", run.PlanID, run.ActivityID, run.RunDate)
	}
	return stored, nil
}

// Get returns the run for the key, or nil if none was recorded
func (r *RunRepository) Get(ctx context.Context, planID, activityID, runDate string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE plan_id = ? AND activity_id = ? AND run_date = ?`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, planID, activityID, runDate))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListForPlan returns the plan's runs dated within [fromDay, toDay],
// ordered by run date and then last update.
func (r *RunRepository) ListForPlan(ctx context.Context, caregiverID, childID, planID, fromDay, toDay string) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE caregiver_id = ? AND child_id = ? AND plan_id = ? AND run_date >= ? AND run_date <= ?
		ORDER BY run_date, updated_at, activity_id`
	return r.queryRuns(ctx, query, caregiverID, childID, planID, fromDay, toDay)
}

// ListForPlanOnDate returns the plan's runs for one day
func (r *RunRepository) ListForPlanOnDate(ctx context.Context, planID, runDate string) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE plan_id = ? AND run_date = ? ORDER BY activity_id`
	return r.queryRuns(ctx, query, planID, runDate)
}

func (r *RunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]*models.Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var steps string
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.CaregiverID,
		&run.ChildID,
		&run.PlanID,
		&run.ActivityID,
		&run.RunDate,
		&steps,
		&run.TotalSteps,
		&run.CompletedSteps,
		&run.SkippedSteps,
		&run.CompletedDurationMinutes,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(steps), &run.StepsProgress); err != nil {
		return nil, fmt.Errorf("run %s has malformed steps progress: %w", run.ID, err)
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
