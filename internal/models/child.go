package models

import "time"

// Caregiver is a parent or therapist who owns children's plans
type Caregiver struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Child is a child in a caregiver's care
type Child struct {
	ID          string     `json:"id" yaml:"id"`
	CaregiverID string     `json:"caregiver_id" yaml:"caregiver_id"`
	Name        string     `json:"name" yaml:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
}
