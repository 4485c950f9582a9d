//nolint:funlen // ok for this test code
package pitstop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/tirecast/pkg/model"
)

func entries(pairs ...float64) []model.PredictionEntry {
	ret := make([]model.PredictionEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		ret = append(ret, model.PredictionEntry{
			Lap: int(pairs[i]), PredictedTime: pairs[i+1], Confidence: 0.8,
		})
	}
	return ret
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name        string
		predictions []model.PredictionEntry
		threshold   float64
		wantLap     int
		wantWindow  model.PitWindow
		wantLost    float64
		wantReached bool
	}{
		{
			name:        "threshold exceeded",
			predictions: entries(16, 95.0, 17, 96.5, 18, 97.5),
			threshold:   2.0,
			wantLap:     18,
			wantWindow:  model.PitWindow{Start: 17, End: 18},
			wantLost:    2.5,
			wantReached: true,
		},
		{
			name:        "threshold never reached",
			predictions: entries(16, 95.0, 17, 96.5, 18, 97.5),
			threshold:   10.0,
			wantLap:     18,
			wantWindow:  model.PitWindow{Start: 17, End: 18},
			wantLost:    2.5,
		},
		{
			name:        "negative degradation never triggers",
			predictions: entries(16, 95.0, 17, 94.0, 18, 98.0),
			threshold:   2.0,
			wantLap:     18,
			wantWindow:  model.PitWindow{Start: 17, End: 18},
			wantLost:    3.0,
			wantReached: true,
		},
		{
			name:        "unsorted input",
			predictions: entries(19, 98.0, 16, 95.0, 18, 97.5, 17, 96.0),
			threshold:   2.0,
			wantLap:     18,
			wantWindow:  model.PitWindow{Start: 17, End: 19},
			wantLost:    2.5,
			wantReached: true,
		},
		{
			name:        "equal to threshold triggers",
			predictions: entries(16, 95.0, 17, 97.0, 18, 97.0),
			threshold:   2.0,
			wantLap:     17,
			wantWindow:  model.PitWindow{Start: 16, End: 18},
			wantLost:    2.0,
			wantReached: true,
		},
		{
			name:        "faster until the end",
			predictions: entries(16, 95.0, 17, 94.0),
			threshold:   2.0,
			wantLap:     17,
			wantWindow:  model.PitWindow{Start: 16, End: 17},
			wantLost:    0,
		},
		{
			name:        "single entry",
			predictions: entries(30, 95.0),
			threshold:   2.0,
			wantLap:     30,
			wantWindow:  model.PitWindow{Start: 30, End: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]model.PredictionEntry(nil), tt.predictions...)
			got := Recommend(tt.predictions, tt.threshold)
			assert.Equal(t, in, tt.predictions, "input must not be modified")
			assert.Equal(t, tt.wantLap, got.RecommendedLap.GetOr(-1))
			assert.Equal(t, tt.wantWindow, got.Window.GetOr(model.PitWindow{}))
			assert.InDelta(t, tt.wantLost, got.TimeLost, 1e-9)
			assert.Equal(t, tt.wantReached, got.ThresholdReached)
			assert.GreaterOrEqual(t, got.TimeLost, 0.0)
			if !tt.wantReached {
				assert.Contains(t, got.Reasoning, "never reached")
			}
		})
	}
}

func TestRecommendEmpty(t *testing.T) {
	got := Recommend(nil, DefaultThreshold)
	assert.False(t, got.RecommendedLap.IsValue())
	assert.False(t, got.Window.IsValue())
	assert.Equal(t, NoPredictions, got.Reasoning)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recommended_lap":null`)
}

func TestWithClampNegative(t *testing.T) {
	a := NewAdvisor(WithThreshold(2.0), WithClampNegative(false))
	got := a.Recommend(entries(16, 95.0, 17, 94.0))
	assert.Equal(t, 17, got.RecommendedLap.GetOr(-1))
	assert.InDelta(t, 0.0, got.TimeLost, 1e-9)
}

func TestRecommendationJSON(t *testing.T) {
	got := Recommend(entries(16, 95.0, 17, 96.5, 18, 97.5), 2.0)
	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recommended_lap":18`)
	assert.Contains(t, string(data), `"window":[17,18]`)
}
