package model

import (
	"encoding/json"
	"fmt"

	"github.com/aarondl/opt/null"
)

// PitWindow is serialized as a two element array [start, end]
type PitWindow struct {
	Start int
	End   int
}

func (w PitWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{w.Start, w.End})
}

func (w *PitWindow) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	w.Start, w.End = v[0], v[1]
	return nil
}

func (w PitWindow) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

type PitRecommendation struct {
	RecommendedLap   null.Val[int]       `json:"recommended_lap"`
	Window           null.Val[PitWindow] `json:"window"`
	Reasoning        string              `json:"reasoning"`
	TimeLost         float64             `json:"time_lost"`
	ThresholdReached bool                `json:"threshold_reached"`
}

type StintInfo struct {
	LapStart int `json:"lap_start"`
	LapEnd   int `json:"lap_end"`
	Laps     int `json:"laps"`
}

type StrategyOption struct {
	Name       string      `json:"name"`
	PitLaps    []int       `json:"pit_laps"`
	FinishTime float64     `json:"finish_time"`
	Pros       string      `json:"pros"`
	Cons       string      `json:"cons"`
	Stints     []StintInfo `json:"stints,omitempty"`
}

type StrategyComparison struct {
	Status      Status           `json:"status"`
	Strategies  []StrategyOption `json:"strategies,omitempty"`
	Recommended string           `json:"recommended,omitempty"`
	Error       string           `json:"error,omitempty"`
	Category    ErrorCategory    `json:"category,omitempty"`
}
