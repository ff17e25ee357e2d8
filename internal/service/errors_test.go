package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("closing cycle: %w", newError(KindPredictorUnavailable, cause, "difficulty predictor unreachable"))

	assert.ErrorIs(t, err, ErrPredictorUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindPredictorUnavailable, KindOf(err))
	assert.Equal(t, "closing cycle: difficulty predictor unreachable: dial tcp: refused", err.Error())
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "cycle_not_ended", ErrCycleNotEnded.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
