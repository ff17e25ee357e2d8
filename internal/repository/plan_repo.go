package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
)

// ErrPlanNotActive is returned by Deactivate when the plan is no longer the
// active one, meaning another caller already closed it.
var ErrPlanNotActive = errors.New("plan is not active")

// PlanRepository handles plan database operations
type PlanRepository struct {
	db database.DBTX
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *PlanRepository) WithTx(tx *database.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

const planColumns = `id, caregiver_id, child_id, age_group, difficulty_level, cycle_start, cycle_end,
	version, is_active, created_at, updated_at`

// GetActive returns the pair's active plan, or nil if there is none
func (r *PlanRepository) GetActive(ctx context.Context, caregiverID, childID string) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans
		WHERE caregiver_id = ? AND child_id = ? AND is_active = ?
		ORDER BY version DESC LIMIT 1`
	return r.getOne(ctx, query, caregiverID, childID, true)
}

// GetByID returns a plan, or nil if it does not exist
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// LatestVersion returns the highest version created for the pair, 0 when
// the pair has no plans yet.
func (r *PlanRepository) LatestVersion(ctx context.Context, caregiverID, childID string) (int, error) {
	var version sql.NullInt64
	query := `SELECT MAX(version) FROM plans WHERE caregiver_id = ? AND child_id = ?`
	if err := r.db.QueryRowContext(ctx, query, caregiverID, childID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read latest plan version: %w", err)
	}
	return int(version.Int64), nil
}

// Create inserts a plan and its ordered activity slots. It must run inside a
// transaction so a plan is never visible without its activities.
func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	query := `INSERT INTO plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.CaregiverID, p.ChildID, p.AgeGroup, string(p.Difficulty),
		p.CycleStart.UTC(), p.CycleEnd.UTC(), p.Version, p.IsActive, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	for _, pa := range p.Activities {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO plan_activities (plan_id, activity_id, position) VALUES (?, ?, ?)`,
			p.ID, pa.ActivityID, pa.Order)
		if err != nil {
			return fmt.Errorf("failed to add activity to plan: %w", err)
		}
	}
	return nil
}

// Deactivate clears the active flag of a plan that is still active. It
// returns ErrPlanNotActive when no row was changed.
func (r *PlanRepository) Deactivate(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE plans SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?`
	result, err := r.db.ExecContext(ctx, query, false, now.UTC(), id, true)
	if err != nil {
		return fmt.Errorf("failed to deactivate plan: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate plan: %w", err)
	}
	if rows == 0 {
		return ErrPlanNotActive
	}
	return nil
}

// ListForPair returns every plan of the pair, newest version first
func (r *PlanRepository) ListForPair(ctx context.Context, caregiverID, childID string) ([]*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE caregiver_id = ? AND child_id = ? ORDER BY version DESC`
	rows, err := r.db.QueryContext(ctx, query, caregiverID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range plans {
		if err := r.loadActivities(ctx, p); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (r *PlanRepository) getOne(ctx context.Context, query string, args ...any) (*models.Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if err := r.loadActivities(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PlanRepository) loadActivities(ctx context.Context, p *models.Plan) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id, position FROM plan_activities WHERE plan_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load plan activities: %w", err)
	}
	defer rows.Close()

	p.Activities = []models.PlanActivity{}
	for rows.Next() {
		var pa models.PlanActivity
		if err := rows.Scan(&pa.ActivityID, &pa.Order); err != nil {
			return fmt.Errorf("failed to scan plan activity: %w", err)
		}
		p.Activities = append(p.Activities, pa)
	}
	return rows.Err()
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	p := &models.Plan{}
	var difficulty string
	err := row.Scan(
		&p.ID,
		&p.CaregiverID,
		&p.ChildID,
		&p.AgeGroup,
		&difficulty,
		&p.CycleStart,
		&p.CycleEnd,
		&p.Version,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Difficulty = models.Difficulty(difficulty)
	return p, nil
}
