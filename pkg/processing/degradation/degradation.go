package degradation

import (
	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

// DefaultWindow is the number of laps the rolling degradation rate is computed on
const DefaultWindow = 5

type (
	Calculator struct {
		l      *log.Logger
		window int
	}
	Option func(*Calculator)
)

func WithLogger(l *log.Logger) Option {
	return func(c *Calculator) {
		c.l = l
	}
}

// WithWindow sets the size of the trailing window for the rate.
// Values below 1 are ignored.
func WithWindow(window int) Option {
	return func(c *Calculator) {
		if window > 0 {
			c.window = window
		}
	}
}

func NewCalculator(opts ...Option) *Calculator {
	ret := &Calculator{
		l:      log.Default().Named("degradation"),
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Calculate derives the degradation columns using the default settings.
func Calculate(table *model.LapTable) *model.LapTable {
	return NewCalculator().Calculate(table)
}

// Calculate returns a copy of table enriched with per lap degradation,
// cumulative degradation and a trailing mean of the degradation.
// Tables without lap time column or without rows are returned unchanged.
func (c *Calculator) Calculate(table *model.LapTable) *model.LapTable {
	if table.IsEmpty() {
		c.l.Warn("no data to calculate degradation")
		return table
	}
	if !table.HasColumn(model.ColLapTime) {
		c.l.Error("lap time column missing, skipping degradation")
		return table
	}

	n := table.Len()
	entries := make([]model.DegradationEntry, n)
	cumulative := 0.0
	for i := range n {
		deg := 0.0
		if i > 0 {
			deg = table.Records[i].LapTime - table.Records[i-1].LapTime
		}
		cumulative += deg
		entries[i].Degradation = deg
		entries[i].Cumulative = cumulative
	}
	for i := range n {
		start := max(0, i-c.window+1)
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += entries[j].Degradation
		}
		entries[i].Rate = sum / float64(i-start+1)
	}
	c.l.Debug("degradation calculated",
		log.Int("laps", n),
		log.Float64("cumulative", cumulative))
	return table.WithDegradation(entries)
}
