package basedata

import (
	"fmt"
	"strings"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"

	"github.com/mpapenbr/tirecast/pkg/model"
)

// HamiltonHeader is the column layout of the recorded 2024 telemetry files
var HamiltonHeader = []string{"LapNumber", "LapTime_seconds", "Compound", "TyreLife"}

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleTrack(file string) model.TrackInfo {
	return model.TrackInfo{
		ID:        "testtrack",
		Name:      "Test GP 2024",
		File:      file,
		TotalLaps: 30,
		Length:    5.0,
		TyreWear:  "Medium",
		Flag:      "🏁",
	}
}

// CSV renders header and rows as csv content
func CSV(header []string, rows ...[]string) string {
	b := strings.Builder{}
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// LinearStint creates rows for consecutive laps starting at firstLap.
// Each lap is slower than the previous one by step seconds.
func LinearStint(firstLap, laps int, base, step float64, compound string) [][]string {
	ret := make([][]string, 0, laps)
	for i := range laps {
		ret = append(ret, []string{
			fmt.Sprintf("%d", firstLap+i),
			fmt.Sprintf("%.3f", base+float64(i)*step),
			compound,
			fmt.Sprintf("%d", i+1),
		})
	}
	return ret
}

// SampleRace is a 20 lap single stint on MEDIUM tires.
// Lap times start at 95.0 and grow by 0.1s per lap.
func SampleRace() string {
	return CSV(HamiltonHeader, LinearStint(1, 20, 95.0, 0.1, "MEDIUM")...)
}

// WriteFile stores content as name in a temporary directory.
// The directory is removed when the test finishes.
func WriteFile(t assert.TestingT, name, content string) string {
	dir := fs.NewDir(t, "tirecast", fs.WithFile(name, content))
	return dir.Join(name)
}
