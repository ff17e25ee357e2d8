package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
)

// CaregiverRepository handles database operations for caregivers
type CaregiverRepository struct {
	db database.DBTX
}

// NewCaregiverRepository creates a new caregiver repository
func NewCaregiverRepository(db database.DBTX) *CaregiverRepository {
	return &CaregiverRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *CaregiverRepository) WithTx(tx *database.Tx) *CaregiverRepository {
	return &CaregiverRepository{db: tx}
}

// GetByID retrieves a caregiver, or nil if it does not exist
func (r *CaregiverRepository) GetByID(ctx context.Context, id string) (*models.Caregiver, error) {
	c := &models.Caregiver{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM caregivers WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}
	return c, nil
}

// ListAll returns every caregiver ordered by id
func (r *CaregiverRepository) ListAll(ctx context.Context) ([]*models.Caregiver, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, email, created_at FROM caregivers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	defer rows.Close()

	var caregivers []*models.Caregiver
	for rows.Next() {
		c := &models.Caregiver{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		caregivers = append(caregivers, c)
	}
	return caregivers, rows.Err()
}

// Save inserts the caregiver or overwrites the one with the same id
func (r *CaregiverRepository) Save(ctx context.Context, c *models.Caregiver) error {
	existing, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		_, err = r.db.ExecContext(ctx, "UPDATE caregivers SET name = ?, email = ? WHERE id = ?", c.Name, c.Email, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update caregiver: %w", err)
		}
		c.CreatedAt = existing.CreatedAt
		return nil
	}

	c.CreatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx, "INSERT INTO caregivers (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.Email, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create caregiver: %w", err)
	}
	return nil
}
