package predict

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/tirecast/pkg/export"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/predict"
)

func sampleReport() *predict.Report {
	return &predict.Report{
		Track:      model.TrackInfo{ID: "bahrain", Name: "Bahrain GP 2024", Flag: "🇧🇭"},
		CurrentLap: 10,
		TotalLaps:  57,
		Forecast:   model.ForecastSuccess([]model.PredictionEntry{
			{Lap: 11, PredictedTime: 95.1, Confidence: 0.9},
			{Lap: 12, PredictedTime: 97.4, Confidence: 0.8},
		}, "Rear tires are fading."),
		Pit: &model.PitRecommendation{
			RecommendedLap:   null.From(12),
			Window:           null.From(model.PitWindow{Start: 11, End: 12}),
			Reasoning:        "Lap time degraded by 2.30s compared to baseline (threshold 2.00s).",
			TimeLost:         2.3,
			ThresholdReached: true,
		},
		Urgency:  predict.UrgencyUrgent,
		Strategy: &model.StrategyComparison{
			Status:     model.StatusSuccess,
			Strategies: []model.StrategyOption{
				{Name: "1-Stop Strategy", PitLaps: []int{33}, FinishTime: 4500.5},
				{Name: "2-Stop Strategy", PitLaps: []int{25, 41}, FinishTime: 4510.25},
			},
			Recommended: "1-Stop Strategy",
		},
		Metrics: predict.MetricsFor([]model.PredictionEntry{
			{Lap: 11, Confidence: 0.9}, {Lap: 12, Confidence: 0.8},
		}, 10),
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport()))
	out := buf.String()
	assert.Contains(t, out, "Bahrain GP 2024")
	assert.Contains(t, out, "URGENT")
	assert.Contains(t, out, "pit on lap 12 (window 11-12)")
	assert.Contains(t, out, "97.400")
	assert.Contains(t, out, "4500.50s")
	assert.Contains(t, out, "Rear tires are fading.")
}

func TestRenderFailure(t *testing.T) {
	r := &predict.Report{
		Track:    model.TrackInfo{Name: "Monaco GP 2024"},
		Forecast: model.ForecastFailure(model.CategoryCredential, assert.AnError),
		Message:  predict.UserMessage(model.CategoryCredential, ""),
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	assert.Contains(t, buf.String(), "credential")
	assert.Contains(t, buf.String(), "Missing or invalid API key")
	assert.NotContains(t, buf.String(), "pit on lap")
}

func TestExportName(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, export.FileName("Bahrain GP 2024", 10)),
		exportName(dir, "Bahrain GP 2024", 10))
	file := filepath.Join(dir, "out.csv")
	assert.Equal(t, file, exportName(file, "Bahrain GP 2024", 10))
}
