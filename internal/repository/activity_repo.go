package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"

	"github.com/google/uuid"
)

// ActivityRepository handles catalog database operations
type ActivityRepository struct {
	db database.DBTX
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db database.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *ActivityRepository) WithTx(tx *database.Tx) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

const activityColumns = `id, title, description, age_group, development_area, difficulty_level,
	estimated_duration_minutes, steps, media_links, created_at, updated_at`

// Create inserts a new activity, assigning an id when it has none
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	steps, media, err := encodeActivityJSON(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO activities (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Title, a.Description, a.AgeGroup, a.DevelopmentArea, string(a.Difficulty),
		a.EstimatedDurationMinutes, steps, media, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// Update overwrites an existing activity's editable fields. It reports
// false when no activity has the id.
func (r *ActivityRepository) Update(ctx context.Context, a *models.Activity) (bool, error) {
	a.UpdatedAt = time.Now().UTC()

	steps, media, err := encodeActivityJSON(a)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE activities
		SET title = ?, description = ?, age_group = ?, development_area = ?, difficulty_level = ?,
		    estimated_duration_minutes = ?, steps = ?, media_links = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		a.Title, a.Description, a.AgeGroup, a.DevelopmentArea, string(a.Difficulty),
		a.EstimatedDurationMinutes, steps, media, a.UpdatedAt, a.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update activity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update activity: %w", err)
	}
	return rows > 0, nil
}

// Save creates the activity or overwrites the one with the same id
func (r *ActivityRepository) Save(ctx context.Context, a *models.Activity) error {
	if a.ID != "" {
		existing, err := r.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			_, err := r.Update(ctx, a)
			a.CreatedAt = existing.CreatedAt
			return err
		}
	}
	return r.Create(ctx, a)
}

// GetByID retrieves an activity, or nil if it does not exist
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`
	a, err := scanActivity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// GetByIDs retrieves the activities with the given ids keyed by id. Missing
// ids are absent from the map.
func (r *ActivityRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Activity, error) {
	found := make(map[string]*models.Activity, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE id IN (` + placeholders + `)`
	activities, err := r.queryActivities(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, a := range activities {
		found[a.ID] = a
	}
	return found, nil
}

// List returns activities, optionally filtered by age group and difficulty
func (r *ActivityRepository) List(ctx context.Context, ageGroup string, difficulty models.Difficulty) ([]*models.Activity, error) {
	var conditions []string
	var args []any
	if ageGroup != "" {
		conditions = append(conditions, "age_group = ?")
		args = append(args, ageGroup)
	}
	if difficulty != "" {
		conditions = append(conditions, "difficulty_level = ?")
		args = append(args, string(difficulty))
	}

	query := `SELECT ` + activityColumns + ` FROM activities`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY age_group, difficulty_level, title, id`

	return r.queryActivities(ctx, query, args...)
}

// ListByAgeGroupAndDifficulty returns the eligible pool for a draw
func (r *ActivityRepository) ListByAgeGroupAndDifficulty(ctx context.Context, ageGroup string, difficulty models.Difficulty) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE age_group = ? AND difficulty_level = ? ORDER BY id`
	return r.queryActivities(ctx, query, ageGroup, string(difficulty))
}

func (r *ActivityRepository) queryActivities(ctx context.Context, query string, args ...any) ([]*models.Activity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	a := &models.Activity{}
	var difficulty, steps, media string
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.AgeGroup,
		&a.DevelopmentArea,
		&difficulty,
		&a.EstimatedDurationMinutes,
		&steps,
		&media,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Difficulty = models.Difficulty(difficulty)

	if err := json.Unmarshal([]byte(steps), &a.Steps); err != nil {
		return nil, fmt.Errorf("activity %s has malformed steps: %w", a.ID, err)
	}
	if media != "" {
		if err := json.Unmarshal([]byte(media), &a.MediaLinks); err != nil {
			return nil, fmt.Errorf("activity %s has malformed media links: %w", a.ID, err)
		}
	}
	if a.MediaLinks == nil {
		a.MediaLinks = []string{}
	}
	return a, nil
}

func encodeActivityJSON(a *models.Activity) (steps, media string, err error) {
	stepList := a.Steps
	if stepList == nil {
		stepList = []models.ActivityStep{}
	}
	mediaList := a.MediaLinks
	if mediaList == nil {
		mediaList = []string{}
	}

	stepsJSON, err := json.Marshal(stepList)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode steps: %w", err)
	}
	mediaJSON, err := json.Marshal(mediaList)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode media links: %w", err)
	}
	return string(stepsJSON), string(mediaJSON), nil
}
