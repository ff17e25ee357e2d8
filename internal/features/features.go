// Package features turns a cycle's run history into the numeric summary the
// difficulty predictor consumes. It performs no I/O.
package features

import (
	"math"
	"sort"
	"time"

	"chromabloom/internal/models"
)

// Sample is the view of one run the aggregation needs. Optional fields are
// nil when the run does not carry them.
type Sample struct {
	Day            string // YYYY-MM-DD
	CompletionRate *float64
	CompletedSteps *int
	TotalSteps     *int
	Completed      *bool
	SkippedSteps   *int
	StartedAt      *time.Time
	FinishedAt     *time.Time
	// ReportedMinutes is the caregiver-reported duration, used when the run
	// carries no timestamps.
	ReportedMinutes *float64
}

// FromRun builds a Sample from a stored run
func FromRun(r models.Run) Sample {
	completed, total, skipped := r.CompletedSteps, r.TotalSteps, r.SkippedSteps
	s := Sample{
		Day:            r.RunDate,
		CompletedSteps: &completed,
		TotalSteps:     &total,
		SkippedSteps:   &skipped,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
	if r.CompletedDurationMinutes > 0 {
		reported := r.CompletedDurationMinutes
		s.ReportedMinutes = &reported
	}
	return s
}

// CompletionRate derives a run's rate: an explicit rate first, then
// completed/total when total is positive, then the completed flag. ok is
// false when none of those is available.
func CompletionRate(s Sample) (rate float64, ok bool) {
	if s.CompletionRate != nil && isFinite(*s.CompletionRate) {
		return *s.CompletionRate, true
	}
	if s.CompletedSteps != nil && s.TotalSteps != nil && *s.TotalSteps > 0 {
		return float64(*s.CompletedSteps) / float64(*s.TotalSteps), true
	}
	if s.Completed != nil {
		if *s.Completed {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// DurationMinutes is the span between start and finish when both are known
// and the span is not negative. A run with neither timestamp falls back to
// its reported minutes.
func DurationMinutes(s Sample) (float64, bool) {
	if s.StartedAt == nil && s.FinishedAt == nil {
		if s.ReportedMinutes == nil || !isFinite(*s.ReportedMinutes) || *s.ReportedMinutes < 0 {
			return 0, false
		}
		return *s.ReportedMinutes, true
	}
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0, false
	}
	d := s.FinishedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0, false
	}
	return d.Minutes(), true
}

// Mean averages the finite values of xs; it is 0 when there are none.
func Mean(xs []float64) float64 {
	var sum float64
	var n int
	for _, x := range xs {
		if !isFinite(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Trend is mean(second half) - mean(first half) of chronologically ordered
// daily rates. The first half takes the middle element on odd counts.
func Trend(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	mid := (len(daily) + 1) / 2
	return Mean(daily[mid:]) - Mean(daily[:mid])
}

// DailyRates groups derivable rates by day and returns each day's mean in
// day order. Days with no derivable rate are left out.
func DailyRates(samples []Sample) []float64 {
	byDay := make(map[string][]float64)
	for _, s := range samples {
		if rate, ok := CompletionRate(s); ok {
			byDay[s.Day] = append(byDay[s.Day], rate)
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	rates := make([]float64, len(days))
	for i, day := range days {
		rates[i] = Mean(byDay[day])
	}
	return rates
}

// Compute builds the feature vector for a cycle. It is always fully
// populated, even for an empty history.
func Compute(childID string, difficulty models.Difficulty, samples []Sample) models.FeatureVector {
	rates := make([]float64, 0, len(samples))
	skipped := make([]float64, 0, len(samples))
	durations := make([]float64, 0, len(samples))

	for _, s := range samples {
		if rate, ok := CompletionRate(s); ok {
			rates = append(rates, rate)
		}
		if s.SkippedSteps != nil {
			skipped = append(skipped, float64(*s.SkippedSteps))
		} else {
			skipped = append(skipped, 0)
		}
		if d, ok := DurationMinutes(s); ok {
			durations = append(durations, d)
		}
	}

	return models.FeatureVector{
		ChildID:                childID,
		AvgCompletionRate:      Mean(rates),
		AvgSkippedSteps:        Mean(skipped),
		AvgDurationMinutes:     Mean(durations),
		RunsCount:              len(samples),
		CompletionRateTrend:    Trend(DailyRates(samples)),
		CurrentDifficultyLevel: difficulty,
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
