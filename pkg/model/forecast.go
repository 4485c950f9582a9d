package model

type (
	Status        string
	ErrorCategory string
)

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	CategoryNone       ErrorCategory = ""
	CategoryNoData     ErrorCategory = "no-data"
	CategoryCredential ErrorCategory = "credential"
	CategoryNetwork    ErrorCategory = "network"
	CategoryParse      ErrorCategory = "parse"
	CategoryGeneric    ErrorCategory = "generic"
)

type PredictionEntry struct {
	Lap           int     `json:"lap"`
	PredictedTime float64 `json:"predicted_time"`
	Confidence    float64 `json:"confidence"`
}

// ForecastResult is exchanged between the pipeline and all downstream consumers.
type ForecastResult struct {
	Status      Status            `json:"status"`
	Predictions []PredictionEntry `json:"predictions,omitempty"`
	Reasoning   string            `json:"reasoning,omitempty"`
	Error       string            `json:"error,omitempty"`
	Category    ErrorCategory     `json:"category,omitempty"`
}

func ForecastSuccess(predictions []PredictionEntry, reasoning string) *ForecastResult {
	return &ForecastResult{
		Status:      StatusSuccess,
		Predictions: predictions,
		Reasoning:   reasoning,
	}
}

func ForecastFailure(category ErrorCategory, err error) *ForecastResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ForecastResult{Status: StatusError, Error: msg, Category: category}
}

func (r *ForecastResult) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// ChartPoint is what the charting collaborator consumes
type ChartPoint struct {
	Lap           int     `json:"lap"`
	PredictedTime float64 `json:"predicted_time"`
}

func ChartPoints(predictions []PredictionEntry) []ChartPoint {
	ret := make([]ChartPoint, len(predictions))
	for i, p := range predictions {
		ret[i] = ChartPoint{Lap: p.Lap, PredictedTime: p.PredictedTime}
	}
	return ret
}
