package predict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/tirecast/pkg/catalog"
	"github.com/mpapenbr/tirecast/pkg/laps"
	"github.com/mpapenbr/tirecast/pkg/llm"
	"github.com/mpapenbr/tirecast/pkg/llm/parse"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/processing/racecontext"
)

type Urgency string

const (
	UrgencyUrgent  Urgency = "URGENT"
	UrgencySoon    Urgency = "SOON"
	UrgencyPlanned Urgency = "PLANNED"
)

const (
	urgentLaps = 3
	soonLaps   = 8
)

type (
	ReportMetrics struct {
		LapsPredicted     int     `json:"laps_predicted"`
		AverageConfidence float64 `json:"average_confidence"`
		LapsRemaining     int     `json:"laps_remaining"`
	}

	// Report is everything the dashboard shows for one prediction run
	Report struct {
		RequestID   string                    `json:"request_id"`
		Track       model.TrackInfo           `json:"track"`
		CurrentLap  int                       `json:"current_lap"`
		TotalLaps   int                       `json:"total_laps,omitempty"`
		Horizon     int                       `json:"horizon,omitempty"`
		Forecast    *model.ForecastResult     `json:"forecast"`
		Message     string                    `json:"message,omitempty"`
		Pit         *model.PitRecommendation  `json:"pit,omitempty"`
		Urgency     Urgency                   `json:"urgency,omitempty"`
		Strategy    *model.StrategyComparison `json:"strategy,omitempty"`
		Chart       []model.ChartPoint        `json:"chart,omitempty"`
		Metrics     ReportMetrics             `json:"metrics"`
		GeneratedAt time.Time                 `json:"generated_at"`
		Duration    float64                   `json:"duration_seconds"`
	}
)

func (r *Report) OK() bool {
	return r != nil && r.Forecast.OK()
}

// UrgencyFor rates how soon the recommended stop is due
func UrgencyFor(recommendedLap, currentLap int) Urgency {
	switch {
	case recommendedLap <= currentLap+urgentLaps:
		return UrgencyUrgent
	case recommendedLap <= currentLap+soonLaps:
		return UrgencySoon
	default:
		return UrgencyPlanned
	}
}

// MetricsFor derives the summary figures of a forecast
func MetricsFor(predictions []model.PredictionEntry, currentLap int) ReportMetrics {
	if len(predictions) == 0 {
		return ReportMetrics{}
	}
	avg := lo.MeanBy(predictions, func(p model.PredictionEntry) float64 { return p.Confidence })
	return ReportMetrics{
		LapsPredicted:     len(predictions),
		AverageConfidence: decimal.NewFromFloat(avg).Round(3).InexactFloat64(),
		LapsRemaining:     max(0, predictions[len(predictions)-1].Lap-currentLap),
	}
}

// Categorize maps a pipeline error to the category shown to the user
func Categorize(err error) model.ErrorCategory {
	switch {
	case err == nil:
		return model.CategoryNone
	case errors.Is(err, catalog.ErrUnknownTrack),
		errors.Is(err, laps.ErrFileNotFound),
		errors.Is(err, laps.ErrEmptyFile),
		errors.Is(err, laps.ErrMissingColumn),
		errors.Is(err, laps.ErrParse),
		errors.Is(err, racecontext.ErrNoData),
		errors.Is(err, racecontext.ErrLapNotFound):
		return model.CategoryNoData
	case errors.Is(err, llm.ErrMissingCredential),
		errors.Is(err, llm.ErrInvalidCredential):
		return model.CategoryCredential
	case errors.Is(err, llm.ErrBackendExhausted),
		errors.Is(err, context.DeadlineExceeded):
		return model.CategoryNetwork
	case errors.Is(err, parse.ErrFormat),
		errors.Is(err, parse.ErrEmptyInput):
		return model.CategoryParse
	default:
		return model.CategoryGeneric
	}
}

// MessageFor is the human readable text for err.
// Errors carrying an end user message are passed through as is.
func MessageFor(err error) string {
	var lapErr *racecontext.LapNotFoundError
	if errors.As(err, &lapErr) {
		return lapErr.Error()
	}
	return UserMessage(Categorize(err), err.Error())
}

// UserMessage is the human readable text for a failed run
func UserMessage(category model.ErrorCategory, errText string) string {
	switch category {
	case model.CategoryNone:
		return ""
	case model.CategoryCredential:
		return "Missing or invalid API key. Please check your configuration."
	case model.CategoryNetwork:
		return "API call failed. Please check your internet connection or model quota."
	case model.CategoryParse:
		return "Failed to parse AI response. The output format may be invalid."
	case model.CategoryNoData:
		return "Data file not found. Please run data download first."
	default:
		return fmt.Sprintf("Prediction failed: %s", errText)
	}
}
