package degradation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/tirecast/pkg/model"
)

func tableOf(times ...float64) *model.LapTable {
	recs := make([]model.LapRecord, len(times))
	for i, t := range times {
		recs[i] = model.LapRecord{LapNumber: i + 1, LapTime: t}
	}
	return model.NewLapTable(recs, model.ColLapNumber, model.ColLapTime)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		want  []model.DegradationEntry
	}{
		{
			name:  "single lap",
			times: []float64{95.0},
			want:  []model.DegradationEntry{{}},
		},
		{
			name:  "linear",
			times: []float64{95.0, 95.1, 95.2},
			want: []model.DegradationEntry{
				{Degradation: 0, Cumulative: 0, Rate: 0},
				{Degradation: 0.1, Cumulative: 0.1, Rate: 0.05},
				{Degradation: 0.1, Cumulative: 0.2, Rate: 0.2 / 3},
			},
		},
		{
			name:  "window of five",
			times: []float64{90, 91, 92, 93, 94, 95, 100},
			want: []model.DegradationEntry{
				{Degradation: 0, Cumulative: 0, Rate: 0},
				{Degradation: 1, Cumulative: 1, Rate: 0.5},
				{Degradation: 1, Cumulative: 2, Rate: 2.0 / 3},
				{Degradation: 1, Cumulative: 3, Rate: 0.75},
				{Degradation: 1, Cumulative: 4, Rate: 0.8},
				{Degradation: 1, Cumulative: 5, Rate: 1},
				{Degradation: 5, Cumulative: 10, Rate: 1.8},
			},
		},
		{
			name:  "faster laps yield negative values",
			times: []float64{96, 95},
			want: []model.DegradationEntry{
				{},
				{Degradation: -1, Cumulative: -1, Rate: -0.5},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tableOf(tt.times...)
			got := Calculate(in)
			require.True(t, got.HasDegradation())
			assert.False(t, in.HasDegradation(), "input must not be modified")
			if diff := cmp.Diff(tt.want, got.Degradation, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculateCumulativeIsLastMinusFirst(t *testing.T) {
	got := Calculate(tableOf(95.0, 94.2, 96.7, 97.1, 96.9))
	last := got.Degradation[len(got.Degradation)-1]
	assert.InDelta(t, 96.9-95.0, last.Cumulative, 1e-9)
}

func TestCalculatePassThrough(t *testing.T) {
	empty := model.EmptyLapTable()
	assert.Same(t, empty, Calculate(empty))

	noTime := model.NewLapTable(
		[]model.LapRecord{{LapNumber: 1}}, model.ColLapNumber)
	assert.Same(t, noTime, Calculate(noTime))
}

func TestWithWindow(t *testing.T) {
	got := NewCalculator(WithWindow(1)).Calculate(tableOf(90, 91, 93))
	assert.InDelta(t, 2.0, got.Degradation[2].Rate, 1e-9)
}
