package strategy

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/laps"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/processing/degradation"
	"github.com/mpapenbr/tirecast/pkg/racestints"
)

const (
	OneStopName = "1-Stop Strategy"
	TwoStopName = "2-Stop Strategy"

	FallbackDegradation = 0.12 // seconds per lap
	FallbackLapTime     = 90.0 // seconds
	PitLoss             = 22.0 // seconds per stop

	oneStopFactor = 1.05
	twoStopFactor = 0.85
)

var ErrNoData = errors.New("no data available for strategy comparison")

type (
	Comparator struct {
		l          *log.Logger
		loader     *laps.Loader
		calculator *degradation.Calculator
		totalLaps  int
	}
	Option func(*Comparator)

	// option is the static description of a strategy
	option struct {
		name   string
		stops  int
		factor float64
		pros   string
		cons   string
	}
)

var options = []option{
	{
		name:   OneStopName,
		stops:  1,
		factor: oneStopFactor,
		pros:   "Simpler, less risk of pit errors.",
		cons:   "Higher tire wear; may lose pace in final laps.",
	},
	{
		name:   TwoStopName,
		stops:  2,
		factor: twoStopFactor,
		pros:   "Fresher tires; more consistent performance.",
		cons:   "Extra pit stop adds risk and time.",
	},
}

func WithLogger(l *log.Logger) Option {
	return func(c *Comparator) {
		c.l = l
	}
}

func WithLoader(ld *laps.Loader) Option {
	return func(c *Comparator) {
		c.loader = ld
	}
}

// WithTotalLaps sets the race length. Without it the highest lap of the
// table is used.
func WithTotalLaps(total int) Option {
	return func(c *Comparator) {
		c.totalLaps = total
	}
}

func NewComparator(opts ...Option) *Comparator {
	ret := &Comparator{
		l:          log.Default().Named("strategy"),
		loader:     laps.NewLoader(),
		calculator: degradation.NewCalculator(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Compare uses the default settings
func Compare(file string, currentLap int) *model.StrategyComparison {
	return NewComparator().Compare(file, currentLap)
}

// Compare loads the telemetry in file and compares a one stop with a two stop
// strategy for the remainder of the race.
func (c *Comparator) Compare(file string, currentLap int) *model.StrategyComparison {
	table, err := c.loader.Load(file)
	if err != nil {
		return failure(err)
	}
	return c.CompareTable(table, currentLap)
}

// CompareTable is like Compare for an already loaded table.
func (c *Comparator) CompareTable(table *model.LapTable, currentLap int) *model.StrategyComparison {
	if table.IsEmpty() {
		return failure(ErrNoData)
	}
	if !table.HasDegradation() {
		table = c.calculator.Calculate(table)
	}

	avgDeg := FallbackDegradation
	if table.HasDegradation() && table.Len() >= 2 {
		avgDeg = lo.MeanBy(table.Degradation,
			func(d model.DegradationEntry) float64 { return d.Degradation })
	}
	baseTime := FallbackLapTime
	if idx := table.IndexOfLap(currentLap); idx >= 0 {
		baseTime = table.Records[idx].LapTime
	}
	total := c.totalLaps
	if total <= 0 {
		total = table.MaxLap()
	}
	remaining := max(0, total-currentLap)
	c.l.Debug("comparing strategies",
		log.Float64("avgDeg", avgDeg),
		log.Float64("baseTime", baseTime),
		log.Int("remaining", remaining))

	strategies := make([]model.StrategyOption, 0, len(options))
	for _, o := range options {
		rem := float64(remaining)
		finish := baseTime*rem + PitLoss*float64(o.stops) + avgDeg*rem*o.factor
		pits := pitLaps(currentLap, total, o.stops)
		s := model.StrategyOption{
			Name:       o.name,
			PitLaps:    pits,
			FinishTime: decimal.NewFromFloat(finish).Round(2).InexactFloat64(),
			Pros:       o.pros,
			Cons:       o.cons,
		}
		if res, err := racestints.NewPitLapCalc(&racestints.PitLapCalcParams{
			FromLap:   currentLap,
			TotalLaps: total,
			PitLaps:   pits,
			PitTime:   seconds(PitLoss),
			AvgLap:    seconds(baseTime),
			DegPerLap: seconds(max(0, avgDeg*o.factor)),
		}).Calc(); err == nil {
			s.Stints = res.StintInfos()
		}
		strategies = append(strategies, s)
	}

	best := lo.MinBy(strategies, func(a, b model.StrategyOption) bool {
		return a.FinishTime < b.FinishTime
	})
	return &model.StrategyComparison{
		Status:      model.StatusSuccess,
		Strategies:  strategies,
		Recommended: best.Name,
	}
}

// pitLaps spreads stops evenly over the remaining laps.
// Pit laps are distinct and before the final lap, so close to the end
// fewer laps than stops may be returned.
func pitLaps(currentLap, total, stops int) []int {
	remaining := max(0, total-currentLap)
	ret := make([]int, 0, stops)
	for i := range stops {
		lap := currentLap + max(i+1, remaining*(i+1)/(stops+1))
		if n := len(ret); n > 0 {
			lap = max(lap, ret[n-1]+1)
		}
		if lap >= total {
			break
		}
		ret = append(ret, lap)
	}
	return ret
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func failure(err error) *model.StrategyComparison {
	return &model.StrategyComparison{
		Status:   model.StatusError,
		Error:    err.Error(),
		Category: model.CategoryNoData,
	}
}
