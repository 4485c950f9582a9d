//nolint:funlen // ok for this test code
package laps

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/testsupport/basedata"
)

func TestLoadMissingFile(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, ErrFileNotFound))
	require.NotNil(t, table)
	assert.True(t, table.IsEmpty())
}

func TestLoadSampleRace(t *testing.T) {
	file := basedata.WriteFile(t, "race.csv", basedata.SampleRace())
	table, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 20, table.Len())
	assert.Equal(t, 20, table.MaxLap())
	assert.True(t, table.HasColumn(model.ColTireAge))
	assert.True(t, table.HasColumn(model.ColCompound))
	assert.False(t, table.HasColumn(model.ColTrackTemp))
	assert.Equal(t, model.CompoundMedium, table.Records[0].Compound)
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []model.LapRecord
		wantErr error
	}{
		{
			name:    "empty",
			content: "",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "header only",
			content: "lap_number,lap_time\n",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "missing lap time column",
			content: "lap_number,tire_age\n1,2\n",
			wantErr: ErrMissingColumn,
		},
		{
			name:    "non numeric lap time",
			content: "lap_number,lap_time\n1,fast\n",
			wantErr: ErrParse,
		},
		{
			name: "canonical names",
			content: basedata.CSV(
				[]string{"lap_number", "lap_time", "tire_compound", "tire_age", "track_temp"},
				[]string{"1", "95.5", "soft", "1", "41.5"},
			),
			want: []model.LapRecord{
				{LapNumber: 1, LapTime: 95.5, Compound: model.CompoundSoft, TireAge: 1},
			},
		},
		{
			name:    "byte order mark before header",
			content: "\uFEFFLapNumber,LapTime_seconds,Compound,TyreLife\n1,95.5,SOFT,1\n2,96.0,SOFT,2\n",
			want: []model.LapRecord{
				{LapNumber: 1, LapTime: 95.5, Compound: model.CompoundSoft, TireAge: 1},
				{LapNumber: 2, LapTime: 96.0, Compound: model.CompoundSoft, TireAge: 2},
			},
		},
		{
			name: "drops missing and out of range lap times",
			content: basedata.CSV(
				[]string{"lap_number", "lap_time_seconds"},
				[]string{"1", ""},
				[]string{"2", "NaN"},
				[]string{"3", "59.999"},
				[]string{"4", "60"},
				[]string{"5", "150"},
				[]string{"6", "150.001"},
			),
			want: []model.LapRecord{
				{LapNumber: 4, LapTime: 60, Compound: model.CompoundUnknown},
				{LapNumber: 5, LapTime: 150, Compound: model.CompoundUnknown},
			},
		},
		{
			name: "sorts and keeps first duplicate",
			content: basedata.CSV(
				basedata.HamiltonHeader,
				[]string{"3", "96.0", "HARD", "3"},
				[]string{"1", "95.0", "HARD", "1"},
				[]string{"3", "99.0", "HARD", "3"},
				[]string{"2", "95.5", "HARD", "2"},
			),
			want: []model.LapRecord{
				{LapNumber: 1, LapTime: 95.0, Compound: model.CompoundHard, TireAge: 1},
				{LapNumber: 2, LapTime: 95.5, Compound: model.CompoundHard, TireAge: 2},
				{LapNumber: 3, LapTime: 96.0, Compound: model.CompoundHard, TireAge: 3},
			},
		},
		{
			name: "coerces tire age",
			content: basedata.CSV(
				basedata.HamiltonHeader,
				[]string{"1.0", "95.0", "MEDIUM", "4.0"},
				[]string{"2", "95.0", "MEDIUM", ""},
				[]string{"3", "95.0", "MEDIUM", "-2"},
				[]string{"4", "95.0", "INTER", "x"},
			),
			want: []model.LapRecord{
				{LapNumber: 1, LapTime: 95.0, Compound: model.CompoundMedium, TireAge: 4},
				{LapNumber: 2, LapTime: 95.0, Compound: model.CompoundMedium},
				{LapNumber: 3, LapTime: 95.0, Compound: model.CompoundMedium},
				{LapNumber: 4, LapTime: 95.0, Compound: model.CompoundIntermediate},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewLoader().Read(strings.NewReader(tt.content))
			require.NotNil(t, table)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, table.IsEmpty())
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, table.Records,
				cmpopts.IgnoreFields(model.LapRecord{}, "TrackTemp")); diff != "" {
				t.Errorf("Read() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadTrackTemp(t *testing.T) {
	content := basedata.CSV(
		[]string{"LapNumber", "LapTime_seconds", "TrackTemp"},
		[]string{"1", "95.0", "42.5"},
		[]string{"2", "95.0", ""},
	)
	table, err := NewLoader().Read(strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.True(t, table.Records[0].TrackTemp.IsValue())
	assert.InDelta(t, 42.5, table.Records[0].TrackTemp.GetOr(0), 1e-9)
	assert.False(t, table.Records[1].TrackTemp.IsValue())
}

func TestWithLapTimeBounds(t *testing.T) {
	content := basedata.CSV(
		[]string{"lap_number", "lap_time"},
		[]string{"1", "50"},
		[]string{"2", "95"},
	)
	table, err := NewLoader(WithLapTimeBounds(40, 100)).Read(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}
