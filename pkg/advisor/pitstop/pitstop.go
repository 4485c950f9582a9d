package pitstop

import (
	"fmt"
	"slices"

	"github.com/aarondl/opt/null"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

const DefaultThreshold = 2.0

// DefaultClampNegative controls whether predicted speed-ups count as zero
// degradation. This is a tunable policy.
const DefaultClampNegative = true

const NoPredictions = "No predictions provided."

type (
	Advisor struct {
		l             *log.Logger
		threshold     float64
		clampNegative bool
	}
	Option func(*Advisor)
)

func WithLogger(l *log.Logger) Option {
	return func(a *Advisor) {
		a.l = l
	}
}

// WithThreshold sets the lap time loss (seconds) which triggers a pit stop
func WithThreshold(threshold float64) Option {
	return func(a *Advisor) {
		a.threshold = threshold
	}
}

func WithClampNegative(clamp bool) Option {
	return func(a *Advisor) {
		a.clampNegative = clamp
	}
}

func NewAdvisor(opts ...Option) *Advisor {
	ret := &Advisor{
		l:             log.Default().Named("pitstop"),
		threshold:     DefaultThreshold,
		clampNegative: DefaultClampNegative,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Recommend uses threshold and the default settings otherwise
func Recommend(predictions []model.PredictionEntry, threshold float64) *model.PitRecommendation {
	return NewAdvisor(WithThreshold(threshold)).Recommend(predictions)
}

// Recommend picks the first lap whose loss against the first predicted lap
// reaches the threshold. If no lap does, the last predicted lap is used.
// The input is not modified.
func (a *Advisor) Recommend(predictions []model.PredictionEntry) *model.PitRecommendation {
	if len(predictions) == 0 {
		return &model.PitRecommendation{Reasoning: NoPredictions}
	}
	sorted := slices.Clone(predictions)
	slices.SortStableFunc(sorted, func(x, y model.PredictionEntry) int { return x.Lap - y.Lap })

	baseline := sorted[0].PredictedTime
	minLap, maxLap := sorted[0].Lap, sorted[len(sorted)-1].Lap

	loss := 0.0
	for _, p := range sorted {
		loss = p.PredictedTime - baseline
		if a.clampNegative {
			loss = max(0, loss)
		}
		if loss >= a.threshold {
			a.l.Debug("threshold exceeded",
				log.Int("lap", p.Lap), log.Float64("loss", loss))
			return a.result(p.Lap, minLap, maxLap, loss, true,
				fmt.Sprintf("Lap time degraded by %.2fs compared to baseline "+
					"(threshold %.2fs).", loss, a.threshold))
		}
	}
	return a.result(maxLap, minLap, maxLap, loss, false,
		fmt.Sprintf("Threshold of %.2fs never reached within the prediction horizon; "+
			"tire degradation within safe limits, extend current stint "+
			"(%.2fs lost by lap %d).", a.threshold, loss, maxLap))
}

//nolint:whitespace // editor/linter issue
func (a *Advisor) result(
	lap, minLap, maxLap int, loss float64, reached bool, reasoning string,
) *model.PitRecommendation {
	return &model.PitRecommendation{
		RecommendedLap: null.From(lap),
		Window: null.From(model.PitWindow{
			Start: max(minLap, lap-1),
			End:   min(maxLap, lap+1),
		}),
		Reasoning:        reasoning,
		TimeLost:         decimal.NewFromFloat(max(0, loss)).Round(3).InexactFloat64(),
		ThresholdReached: reached,
	}
}
