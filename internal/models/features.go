package models

// FeatureVector summarizes a cycle's runs for the difficulty predictor.
// Field names on the wire are fixed by the deployed model, including the
// misspelled avg_skepped_steps.
type FeatureVector struct {
	ChildID                string     `json:"childId"`
	AvgCompletionRate      float64    `json:"avg_completion_rate"`
	AvgSkippedSteps        float64    `json:"avg_skepped_steps"`
	AvgDurationMinutes     float64    `json:"avg_duration_minutes"`
	RunsCount              int        `json:"runs_count"`
	CompletionRateTrend    float64    `json:"completion_rate_trend"`
	CurrentDifficultyLevel Difficulty `json:"current_difficulty_level"`
}

// CycleClosure is the outcome of closing an ended cycle
type CycleClosure struct {
	EndedPlanID         string        `json:"ended_plan_id"`
	FeatureVector       FeatureVector `json:"feature_vector"`
	PredictedDifficulty Difficulty    `json:"predicted_difficulty"`
	NewPlan             *Plan         `json:"new_plan"`
}
