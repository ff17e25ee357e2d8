package models

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the tier an activity or plan is pitched at
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every tier in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known tiers
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty normalizes case and surrounding space before validating
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty level %q", s)
	}
	return d, nil
}

// DevelopmentAreas are the areas an activity can target
var DevelopmentAreas = []string{"self-care", "motor", "language", "cognitive", "social", "emotional"}

// ValidDevelopmentArea reports whether area is a known development area
func ValidDevelopmentArea(area string) bool {
	for _, a := range DevelopmentAreas {
		if a == area {
			return true
		}
	}
	return false
}

// ActivityStep is one numbered instruction of an activity
type ActivityStep struct {
	StepNumber  int    `json:"step_number" yaml:"step_number"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// Activity is a catalog entry a plan can draw
type Activity struct {
	ID                       string         `json:"id" yaml:"id"`
	Title                    string         `json:"title" yaml:"title"`
	Description              string         `json:"description" yaml:"description"`
	AgeGroup                 string         `json:"age_group" yaml:"age_group"`
	DevelopmentArea          string         `json:"development_area" yaml:"development_area"`
	Difficulty               Difficulty     `json:"difficulty_level" yaml:"difficulty_level"`
	EstimatedDurationMinutes int            `json:"estimated_duration_minutes" yaml:"estimated_duration_minutes"`
	Steps                    []ActivityStep `json:"steps" yaml:"steps"`
	MediaLinks               []string       `json:"media_links" yaml:"media_links,omitempty"`
	CreatedAt                time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt                time.Time      `json:"updated_at" yaml:"-"`
}

// TotalSteps returns the number of instruction steps
func (a *Activity) TotalSteps() int {
	return len(a.Steps)
}
