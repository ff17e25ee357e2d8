package models

import "time"

// RunDateLayout is the calendar-day format of Run.RunDate
const RunDateLayout = "2006-01-02"

// StepStatus records whether one step of an activity was completed
type StepStatus struct {
	StepNumber  int  `json:"step_number"`
	IsCompleted bool `json:"is_completed"`
}

// Run is the recorded progress of one activity of a plan on one day
type Run struct {
	ID                       string       `json:"id"`
	CaregiverID              string       `json:"caregiver_id"`
	ChildID                  string       `json:"child_id"`
	PlanID                   string       `json:"plan_id"`
	ActivityID               string       `json:"activity_id"`
	RunDate                  string       `json:"run_date"`
	StepsProgress            []StepStatus `json:"steps_progress"`
	TotalSteps               int          `json:"total_steps"`
	CompletedSteps           int          `json:"completed_steps"`
	SkippedSteps             int          `json:"skipped_steps"`
	CompletedDurationMinutes float64      `json:"completed_duration_minutes"`
	StartedAt                *time.Time   `json:"started_at,omitempty"`
	FinishedAt               *time.Time   `json:"finished_at,omitempty"`
	CreatedAt                time.Time    `json:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at"`
}

// NormalizeSteps builds a status list spanning exactly 1..total. Each step
// takes the first incoming status with its number; anything else is left
// not completed and out-of-range numbers are dropped.
func NormalizeSteps(total int, incoming []StepStatus) []StepStatus {
	if total < 0 {
		total = 0
	}
	seen := make(map[int]bool, len(incoming))
	completed := make(map[int]bool, len(incoming))
	for _, s := range incoming {
		if s.StepNumber < 1 || s.StepNumber > total || seen[s.StepNumber] {
			continue
		}
		seen[s.StepNumber] = true
		completed[s.StepNumber] = s.IsCompleted
	}

	steps := make([]StepStatus, total)
	for i := range steps {
		n := i + 1
		steps[i] = StepStatus{StepNumber: n, IsCompleted: completed[n]}
	}
	return steps
}

// CountCompleted returns the number of completed steps
func CountCompleted(steps []StepStatus) int {
	n := 0
	for _, s := range steps {
		if s.IsCompleted {
			n++
		}
	}
	return n
}
