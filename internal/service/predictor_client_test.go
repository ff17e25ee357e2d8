package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromabloom/internal/models"
)

func TestPredictorClientSendsFlatFeatures(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict-difficulty", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"childId":"child-1","next_difficulty_level":"hard"}`))
	}))
	defer server.Close()

	client := NewPredictorClient(server.URL+"/", time.Second)
	difficulty, err := client.PredictDifficulty(context.Background(), models.FeatureVector{
		ChildID:                "child-1",
		AvgCompletionRate:      0.75,
		AvgSkippedSteps:        1.5,
		AvgDurationMinutes:     12,
		RunsCount:              9,
		CompletionRateTrend:    0.1,
		CurrentDifficultyLevel: models.DifficultyMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyHard, difficulty)

	assert.Equal(t, map[string]any{
		"childId":                  "child-1",
		"avg_completion_rate":      0.75,
		"avg_skepped_steps":        1.5,
		"avg_duration_minutes":     12.0,
		"runs_count":               9.0,
		"completion_rate_trend":    0.1,
		"current_difficulty_level": "medium",
	}, got)
}

func TestPredictorClientFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "missing tier",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"childId":"child-1"}`))
			},
		},
		{
			name: "unknown tier",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"next_difficulty_level":"expert"}`))
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewPredictorClient(server.URL, 100*time.Millisecond)
			_, err := client.PredictDifficulty(context.Background(), models.FeatureVector{ChildID: "child-1"})

			assert.ErrorIs(t, err, ErrPredictorUnavailable)
		})
	}
}

func TestPredictorClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewPredictorClient(url, time.Second).PredictDifficulty(context.Background(), models.FeatureVector{})

	assert.ErrorIs(t, err, ErrPredictorUnavailable)
}
