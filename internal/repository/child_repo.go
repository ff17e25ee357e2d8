package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
)

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *ChildRepository) WithTx(tx *database.Tx) *ChildRepository {
	return &ChildRepository{db: tx}
}

// GetByID retrieves a child, or nil if it does not exist
func (r *ChildRepository) GetByID(ctx context.Context, id string) (*models.Child, error) {
	query := "SELECT id, caregiver_id, name, date_of_birth, created_at FROM children WHERE id = ?"
	child := &models.Child{}
	var dob sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&child.ID,
		&child.CaregiverID,
		&child.Name,
		&dob,
		&child.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if dob.Valid {
		child.DateOfBirth = &dob.Time
	}
	return child, nil
}

// ListAll returns every child ordered by id
func (r *ChildRepository) ListAll(ctx context.Context) ([]*models.Child, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, caregiver_id, name, date_of_birth, created_at FROM children ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var children []*models.Child
	for rows.Next() {
		child := &models.Child{}
		var dob sql.NullTime
		if err := rows.Scan(&child.ID, &child.CaregiverID, &child.Name, &dob, &child.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if dob.Valid {
			child.DateOfBirth = &dob.Time
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

// Save inserts the child or overwrites the one with the same id
func (r *ChildRepository) Save(ctx context.Context, child *models.Child) error {
	existing, err := r.GetByID(ctx, child.ID)
	if err != nil {
		return err
	}

	var dob any
	if child.DateOfBirth != nil {
		dob = child.DateOfBirth.UTC()
	}

	if existing != nil {
		_, err = r.db.ExecContext(ctx,
			"UPDATE children SET caregiver_id = ?, name = ?, date_of_birth = ? WHERE id = ?",
			child.CaregiverID, child.Name, dob, child.ID)
		if err != nil {
			return fmt.Errorf("failed to update child: %w", err)
		}
		child.CreatedAt = existing.CreatedAt
		return nil
	}

	child.CreatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO children (id, caregiver_id, name, date_of_birth, created_at) VALUES (?, ?, ?, ?, ?)",
		child.ID, child.CaregiverID, child.Name, dob, child.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}
