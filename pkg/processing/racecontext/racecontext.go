package racecontext

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

// DefaultWindow is the maximum number of laps rendered into the context
const DefaultWindow = 10

const (
	accelerationFactor = 1.2
	slowdownFactor     = 0.8
	trendDistance      = 2 // compare rates[-1] with rates[-3]
)

type Trend string

const (
	TrendStable       Trend = "stable"
	TrendAccelerating Trend = "accelerating"
	TrendSlowingDown  Trend = "slowing down"
)

var (
	ErrNoData      = errors.New("no race data available")
	ErrLapNotFound = errors.New("lap not found")
)

// LapNotFoundError is returned if the requested lap is not part of the table.
// Its message is meant for end users.
type LapNotFoundError struct {
	Lap int
}

func (e *LapNotFoundError) Error() string {
	return fmt.Sprintf("Lap %d not found in dataset.", e.Lap)
}

func (e *LapNotFoundError) Is(target error) bool {
	return target == ErrLapNotFound
}

type (
	LapLine struct {
		Lap         int
		LapTime     float64
		Degradation float64
	}

	// Summary holds the values rendered into the context block
	Summary struct {
		CurrentLap int
		Window     int
		Compound   model.Compound
		TireAge    int
		AvgRate    null.Val[float64]
		TrackTemp  null.Val[float64]
		Trend      Trend
		Laps       []LapLine
	}

	Formatter struct {
		l      *log.Logger
		window int
	}
	Option func(*Formatter)
)

func WithLogger(l *log.Logger) Option {
	return func(f *Formatter) {
		f.l = l
	}
}

func WithWindow(window int) Option {
	return func(f *Formatter) {
		if window > 0 {
			f.window = window
		}
	}
}

func NewFormatter(opts ...Option) *Formatter {
	ret := &Formatter{
		l:      log.Default().Named("racecontext"),
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Format renders the context for currentLap using default settings.
func Format(table *model.LapTable, currentLap int) (string, error) {
	return NewFormatter().Format(table, currentLap)
}

func (f *Formatter) Format(table *model.LapTable, currentLap int) (string, error) {
	s, err := f.Summarize(table, currentLap)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// Summarize collects the values of the trailing window ending at currentLap.
func (f *Formatter) Summarize(table *model.LapTable, currentLap int) (*Summary, error) {
	if table.IsEmpty() {
		return nil, ErrNoData
	}
	idx := table.IndexOfLap(currentLap)
	if idx < 0 {
		f.l.Debug("lap not in table", log.Int("lap", currentLap))
		return nil, &LapNotFoundError{Lap: currentLap}
	}
	start := max(0, idx-f.window+1)
	latest := table.Records[idx]

	ret := &Summary{
		CurrentLap: currentLap,
		Window:     f.window,
		Compound:   latest.Compound,
		TireAge:    latest.TireAge,
		Trend:      TrendStable,
		Laps:       make([]LapLine, 0, idx-start+1),
	}
	if ret.Compound == "" {
		ret.Compound = model.CompoundUnknown
	}
	if table.HasColumn(model.ColTrackTemp) {
		ret.TrackTemp = latest.TrackTemp
	}

	var rates []float64
	if table.HasDegradation() {
		rates = lo.Map(table.Degradation[start:idx+1],
			func(d model.DegradationEntry, _ int) float64 { return d.Rate })
		ret.AvgRate = null.From(round3(lo.Sum(rates) / float64(len(rates))))
		ret.Trend = classify(rates)
	}
	for i := start; i <= idx; i++ {
		line := LapLine{Lap: table.Records[i].LapNumber, LapTime: table.Records[i].LapTime}
		if table.HasDegradation() {
			line.Degradation = table.Degradation[i].Degradation
		}
		ret.Laps = append(ret.Laps, line)
	}
	return ret, nil
}

// classify compares the latest rate with the one two samples before.
// Less than 3 samples are considered stable.
func classify(rates []float64) Trend {
	if len(rates) <= trendDistance {
		return TrendStable
	}
	last := rates[len(rates)-1]
	ref := rates[len(rates)-1-trendDistance]
	switch {
	case last > ref*accelerationFactor:
		return TrendAccelerating
	case last < ref*slowdownFactor:
		return TrendSlowingDown
	default:
		return TrendStable
	}
}

func (s *Summary) String() string {
	b := strings.Builder{}
	b.WriteString("=== F1 Tire Performance Context ===\n")
	fmt.Fprintf(&b, "Current Lap: %d\n", s.CurrentLap)
	fmt.Fprintf(&b, "Tire Compound: %s\n", s.Compound)
	fmt.Fprintf(&b, "Tire Age (laps): %d\n", s.TireAge)
	rate := "n/a"
	if s.AvgRate.IsValue() {
		rate = strconv.FormatFloat(s.AvgRate.GetOr(0), 'f', -1, 64)
	}
	fmt.Fprintf(&b, "Average Degradation Rate (last %d laps): %s s/lap\n",
		s.Window, rate)
	if s.TrackTemp.IsValue() {
		fmt.Fprintf(&b, "Track Temperature: %s °C\n",
			strconv.FormatFloat(s.TrackTemp.GetOr(0), 'f', -1, 64))
	}
	fmt.Fprintf(&b, "Performance Pattern: %s\n", s.Trend)
	b.WriteString("\nRecent Lap Data:\n")
	for _, l := range s.Laps {
		fmt.Fprintf(&b, "Lap %2d: time=%.3fs, deg=%.3fs\n", l.Lap, l.LapTime, l.Degradation)
	}
	fmt.Fprintf(&b, "\nSummary: Tire degradation appears to be %s.", s.Trend)
	return b.String()
}

func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
