package features

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"chromabloom/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func intp(v int) *int              { return &v }
func floatp(v float64) *float64    { return &v }
func boolp(v bool) *bool           { return &v }
func timep(v time.Time) *time.Time { return &v }

func stepsSample(day string, completed, total int) Sample {
	return Sample{Day: day, CompletedSteps: intp(completed), TotalSteps: intp(total), SkippedSteps: intp(total - completed)}
}

func TestComputeZeroRuns(t *testing.T) {
	got := Compute("child-1", models.DifficultyEasy, nil)

	want := models.FeatureVector{
		ChildID:                "child-1",
		CurrentDifficultyLevel: models.DifficultyEasy,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompletionRatePriority(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   float64
		wantOK bool
	}{
		{name: "explicit rate wins", sample: Sample{CompletionRate: floatp(0.25), CompletedSteps: intp(4), TotalSteps: intp(4)}, want: 0.25, wantOK: true},
		{name: "non-finite explicit rate falls through", sample: Sample{CompletionRate: floatp(math.NaN()), CompletedSteps: intp(1), TotalSteps: intp(4)}, want: 0.25, wantOK: true},
		{name: "steps ratio", sample: Sample{CompletedSteps: intp(3), TotalSteps: intp(4)}, want: 0.75, wantOK: true},
		{name: "zero total falls back to flag", sample: Sample{CompletedSteps: intp(0), TotalSteps: intp(0), Completed: boolp(true)}, want: 1, wantOK: true},
		{name: "false flag", sample: Sample{Completed: boolp(false)}, want: 0, wantOK: true},
		{name: "nothing derivable", sample: Sample{CompletedSteps: intp(0), TotalSteps: intp(0)}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CompletionRate(tt.sample)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestComputeExcludesUndeterminedRates(t *testing.T) {
	samples := []Sample{
		stepsSample("2024-03-01", 4, 4),
		{Day: "2024-03-01"},
	}

	got := Compute("child-1", models.DifficultyMedium, samples)

	assert.InDelta(t, 1.0, got.AvgCompletionRate, 1e-9)
	assert.Equal(t, 2, got.RunsCount)
	// The undetermined run still counts toward skipped steps with its default of 0.
	assert.InDelta(t, 0.0, got.AvgSkippedSteps, 1e-9)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name  string
		daily []float64
		want  float64
	}{
		{name: "rising", daily: []float64{0.2, 0.2, 0.8, 0.8}, want: 0.6},
		{name: "single day", daily: []float64{0.5}, want: 0},
		{name: "empty", daily: nil, want: 0},
		{name: "flat", daily: []float64{1, 1, 1}, want: 0},
		{name: "odd count puts middle in first half", daily: []float64{0.0, 0.3, 0.9}, want: 0.9 - 0.15},
		{name: "falling", daily: []float64{1, 0}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Trend(tt.daily), 1e-9)
		})
	}
}

func TestDailyRatesSortsDaysAndSkipsEmptyDays(t *testing.T) {
	samples := []Sample{
		stepsSample("2024-03-03", 4, 4),
		stepsSample("2024-03-01", 1, 4),
		stepsSample("2024-03-01", 3, 4),
		{Day: "2024-03-02"},
	}

	got := DailyRates(samples)

	if diff := cmp.Diff([]float64{0.5, 1.0}, got); diff != "" {
		t.Errorf("DailyRates() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeTrendFromRuns(t *testing.T) {
	samples := []Sample{
		stepsSample("2024-03-01", 1, 5),
		stepsSample("2024-03-02", 1, 5),
		stepsSample("2024-03-03", 4, 5),
		stepsSample("2024-03-04", 4, 5),
	}

	got := Compute("child-1", models.DifficultyEasy, samples)

	assert.InDelta(t, 0.6, got.CompletionRateTrend, 1e-9)
	assert.InDelta(t, 0.5, got.AvgCompletionRate, 1e-9)
	assert.InDelta(t, 2.5, got.AvgSkippedSteps, 1e-9)
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	samples := []Sample{
		{Day: "2024-03-01", StartedAt: timep(start), FinishedAt: timep(start.Add(10 * time.Minute))},
		{Day: "2024-03-01", StartedAt: timep(start), FinishedAt: timep(start.Add(20 * time.Minute))},
		{Day: "2024-03-01", StartedAt: timep(start), FinishedAt: timep(start.Add(-5 * time.Minute))},
		{Day: "2024-03-01", StartedAt: timep(start)},
	}

	got := Compute("child-1", models.DifficultyEasy, samples)

	assert.InDelta(t, 15.0, got.AvgDurationMinutes, 1e-9)
}

func TestDurationMinutesFallsBackToReported(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		sample Sample
		want   float64
		ok     bool
	}{
		{"reported only", Sample{ReportedMinutes: floatp(10)}, 10, true},
		{"timestamps win", Sample{StartedAt: timep(start), FinishedAt: timep(start.Add(20 * time.Minute)), ReportedMinutes: floatp(10)}, 20, true},
		{"half timestamps ignore reported", Sample{StartedAt: timep(start), ReportedMinutes: floatp(10)}, 0, false},
		{"negative reported", Sample{ReportedMinutes: floatp(-1)}, 0, false},
		{"nan reported", Sample{ReportedMinutes: floatp(math.NaN())}, 0, false},
		{"nothing", Sample{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DurationMinutes(tt.sample)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMeanIgnoresNonFinite(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, math.NaN(), 3, math.Inf(1)}), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
}

func TestFromRun(t *testing.T) {
	run := models.Run{RunDate: "2024-03-01", TotalSteps: 4, CompletedSteps: 3, SkippedSteps: 1, CompletedDurationMinutes: 8}

	s := FromRun(run)
	rate, ok := CompletionRate(s)

	assert.True(t, ok)
	assert.InDelta(t, 0.75, rate, 1e-9)
	assert.Equal(t, "2024-03-01", s.Day)
	assert.Equal(t, 1, *s.SkippedSteps)
	d, ok := DurationMinutes(s)
	assert.True(t, ok)
	assert.InDelta(t, 8.0, d, 1e-9)

	s = FromRun(models.Run{RunDate: "2024-03-01"})
	assert.Nil(t, s.ReportedMinutes)
}
