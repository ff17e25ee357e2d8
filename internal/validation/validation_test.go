package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromabloom/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func validActivity() models.Activity {
	return models.Activity{
		Title:           "Brush teeth",
		Description:     "Morning brushing routine",
		AgeGroup:        "4",
		DevelopmentArea: "self-care",
		Difficulty:      "easy",
		Steps: []models.ActivityStep{
			{StepNumber: 7, Instruction: "Wet the brush"},
			{StepNumber: 2, Instruction: " Brush for two minutes "},
		},
	}
}

func TestValidateActivity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *models.Activity)
		wantErr string
	}{
		{name: "valid activity", mutate: func(a *models.Activity) {}},
		{name: "missing title", mutate: func(a *models.Activity) { a.Title = "  " }, wantErr: "title"},
		{name: "missing description", mutate: func(a *models.Activity) { a.Description = "" }, wantErr: "description"},
		{name: "unknown age group", mutate: func(a *models.Activity) { a.AgeGroup = "11" }, wantErr: "age_group"},
		{name: "missing area", mutate: func(a *models.Activity) { a.DevelopmentArea = " " }, wantErr: "development_area"},
		{name: "unknown area", mutate: func(a *models.Activity) { a.DevelopmentArea = "music" }, wantErr: "development_area"},
		{name: "unknown difficulty", mutate: func(a *models.Activity) { a.Difficulty = "impossible" }, wantErr: "difficulty_level"},
		{name: "negative duration", mutate: func(a *models.Activity) { a.EstimatedDurationMinutes = -1 }, wantErr: "estimated_duration_minutes"},
		{name: "no steps", mutate: func(a *models.Activity) { a.Steps = nil }, wantErr: "steps"},
		{name: "blank step", mutate: func(a *models.Activity) { a.Steps[1].Instruction = " " }, wantErr: "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validActivity()
			tt.mutate(&a)

			err := ValidateActivity(&a)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestValidateActivityNormalizes(t *testing.T) {
	a := validActivity()
	a.Difficulty = " MEDIUM "

	require.NoError(t, ValidateActivity(&a))

	assert.Equal(t, models.DifficultyMedium, a.Difficulty)
	assert.Equal(t, []models.ActivityStep{
		{StepNumber: 1, Instruction: "Wet the brush"},
		{StepNumber: 2, Instruction: "Brush for two minutes"},
	}, a.Steps)
	assert.NotNil(t, a.MediaLinks)
}
