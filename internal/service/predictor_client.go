package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"chromabloom/internal/models"
)

// DifficultyPredictor recommends the next cycle's difficulty from a closed
// cycle's features.
type DifficultyPredictor interface {
	PredictDifficulty(ctx context.Context, features models.FeatureVector) (models.Difficulty, error)
}

// PredictorClient calls the difficulty model over HTTP
type PredictorClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewPredictorClient creates a client for the model served at baseURL
func NewPredictorClient(baseURL string, timeout time.Duration) *PredictorClient {
	return &PredictorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type predictResponse struct {
	ChildID             string `json:"childId"`
	NextDifficultyLevel string `json:"next_difficulty_level"`
}

// PredictDifficulty posts the features to /predict-difficulty. Any transport
// failure, timeout, non-2xx status or missing tier is predictor_unavailable.
func (c *PredictorClient) PredictDifficulty(ctx context.Context, features models.FeatureVector) (models.Difficulty, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(features)
	if err != nil {
		return "", newError(KindPredictorUnavailable, err, "failed to encode features")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict-difficulty", bytes.NewReader(body))
	if err != nil {
		return "", newError(KindPredictorUnavailable, err, "failed to build predictor request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(KindPredictorUnavailable, err, "difficulty predictor unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", newError(KindPredictorUnavailable, nil,
			"difficulty predictor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", newError(KindPredictorUnavailable, err, "undecodable predictor response")
	}

	difficulty, err := models.ParseDifficulty(out.NextDifficultyLevel)
	if err != nil {
		return "", newError(KindPredictorUnavailable, err, "predictor returned no usable next_difficulty_level")
	}
	return difficulty, nil
}

var _ DifficultyPredictor = (*PredictorClient)(nil)
