package models

import "time"

const (
	// PlanSize is how many activities every plan draws
	PlanSize = 5
	// CycleDays is the length of a cycle in calendar days
	CycleDays = 14
)

// PlanActivity is one slot of a plan in display order
type PlanActivity struct {
	ActivityID string    `json:"activity_id"`
	Order      int       `json:"order"`
	Activity   *Activity `json:"activity,omitempty"`
}

// Plan is the activity set assigned to a child for one cycle
type Plan struct {
	ID          string         `json:"id"`
	CaregiverID string         `json:"caregiver_id"`
	ChildID     string         `json:"child_id"`
	AgeGroup    string         `json:"age_group"`
	Difficulty  Difficulty     `json:"difficulty_level"`
	Activities  []PlanActivity `json:"activities"`
	CycleStart  time.Time      `json:"cycle_start_date"`
	CycleEnd    time.Time      `json:"cycle_end_date"`
	Version     int            `json:"version"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HasEnded reports whether now is past the end of the cycle
func (p *Plan) HasEnded(now time.Time) bool {
	return now.After(p.CycleEnd)
}

// Contains reports whether activityID is one of the plan's slots
func (p *Plan) Contains(activityID string) bool {
	for _, pa := range p.Activities {
		if pa.ActivityID == activityID {
			return true
		}
	}
	return false
}

// ActivityIDs returns the plan's activity ids in order
func (p *Plan) ActivityIDs() []string {
	ids := make([]string, len(p.Activities))
	for i, pa := range p.Activities {
		ids[i] = pa.ActivityID
	}
	return ids
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CycleWindow returns the window of a cycle starting on day's calendar day:
// midnight of that day through the last millisecond of day+13.
func CycleWindow(day time.Time) (start, end time.Time) {
	start = StartOfDay(day)
	y, m, d := start.Date()
	end = time.Date(y, m, d+CycleDays-1, 23, 59, 59, int(999*time.Millisecond), start.Location())
	return start, end
}
