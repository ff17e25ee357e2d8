package validation

import (
	"fmt"
	"regexp"
	"strings"

	"chromabloom/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRequired checks that a trimmed value is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateAgeGroup checks the value is one of the catalog's age bands
func ValidateAgeGroup(ageGroup string) error {
	if !models.ValidAgeGroup(ageGroup) {
		return ValidationError{Field: "age_group", Message: fmt.Sprintf("age group must be one of %s", strings.Join(models.AgeGroups, ", "))}
	}
	return nil
}

// ValidateActivity checks and normalizes an activity in place. Steps keep
// their given order and are renumbered 1..N.
func ValidateActivity(a *models.Activity) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	a.AgeGroup = strings.TrimSpace(a.AgeGroup)

	if err := ValidateRequired("title", a.Title); err != nil {
		return err
	}
	if err := ValidateRequired("description", a.Description); err != nil {
		return err
	}
	if err := ValidateAgeGroup(a.AgeGroup); err != nil {
		return err
	}

	a.DevelopmentArea = strings.TrimSpace(a.DevelopmentArea)
	if err := ValidateRequired("development_area", a.DevelopmentArea); err != nil {
		return err
	}
	if !models.ValidDevelopmentArea(a.DevelopmentArea) {
		return ValidationError{Field: "development_area", Message: fmt.Sprintf("development area must be one of %s", strings.Join(models.DevelopmentAreas, ", "))}
	}

	difficulty, err := models.ParseDifficulty(string(a.Difficulty))
	if err != nil {
		return ValidationError{Field: "difficulty_level", Message: "difficulty level must be easy, medium or hard"}
	}
	a.Difficulty = difficulty

	if a.EstimatedDurationMinutes < 0 {
		return ValidationError{Field: "estimated_duration_minutes", Message: "estimated duration cannot be negative"}
	}

	if len(a.Steps) == 0 {
		return ValidationError{Field: "steps", Message: "at least one step is required"}
	}
	for i := range a.Steps {
		a.Steps[i].Instruction = strings.TrimSpace(a.Steps[i].Instruction)
		if a.Steps[i].Instruction == "" {
			return ValidationError{Field: "steps", Message: fmt.Sprintf("step %d has no instruction", i+1)}
		}
		a.Steps[i].StepNumber = i + 1
	}

	if a.MediaLinks == nil {
		a.MediaLinks = []string{}
	}
	return nil
}
