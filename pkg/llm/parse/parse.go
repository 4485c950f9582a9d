package parse

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

// NoReasoning replaces a missing or invalid reasoning
const NoReasoning = "No reasoning provided."

var (
	ErrEmptyInput = errors.New("empty response")
	ErrFormat     = errors.New("AI output format invalid")
)

var (
	predictionsPath = jp.R().C("predictions")
	reasoningPath   = jp.R().C("reasoning")
)

type (
	// Forecast is the validated content of a model response
	Forecast struct {
		Predictions []model.PredictionEntry
		Reasoning   string
		Dropped     int    // entries removed during validation
		Strategy    string // name of the strategy that produced the candidate
	}

	// LapFilter decides if an entry is kept.
	LapFilter func(lap int) bool

	Parser struct {
		l          *log.Logger
		strategies []Strategy
		filter     LapFilter
	}
	Option func(*Parser)
)

func WithLogger(l *log.Logger) Option {
	return func(p *Parser) {
		p.l = l
	}
}

func WithStrategies(s ...Strategy) Option {
	return func(p *Parser) {
		p.strategies = s
	}
}

// WithLapRange drops entries with lap not in (after, last]
func WithLapRange(after, last int) Option {
	return func(p *Parser) {
		p.filter = func(lap int) bool { return lap > after && lap <= last }
	}
}

func NewParser(opts ...Option) *Parser {
	ret := &Parser{
		l:          log.Default().Named("parse"),
		strategies: DefaultStrategies,
		filter:     func(int) bool { return true },
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Parse extracts a forecast from text using default settings.
func Parse(text string) (*Forecast, error) {
	return NewParser().Parse(text)
}

// Parse runs the strategies in order. The first candidate passing validation
// is returned. If no candidate is valid the error wraps ErrFormat.
func (p *Parser) Parse(text string) (*Forecast, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	var lastErr error
	for _, s := range p.strategies {
		for _, candidate := range s.Extract(text) {
			f, err := p.validate(candidate)
			if err != nil {
				p.l.Debug("candidate rejected",
					log.String("strategy", s.Name), log.ErrorField(err))
				lastErr = err
				continue
			}
			f.Strategy = s.Name
			if f.Dropped > 0 {
				p.l.Warn("dropped invalid prediction entries",
					log.Int("dropped", f.Dropped),
					log.Int("kept", len(f.Predictions)))
			}
			return f, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no JSON object found")
	}
	p.l.Error("failed to parse model response", log.ErrorField(lastErr))
	return nil, fmt.Errorf("%w: %w", ErrFormat, lastErr)
}

func (p *Parser) validate(candidate any) (*Forecast, error) {
	if _, ok := candidate.(map[string]any); !ok {
		return nil, errors.New("not an object")
	}
	found := predictionsPath.Get(candidate)
	if len(found) == 0 {
		return nil, errors.New("missing predictions")
	}
	items, ok := found[0].([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New("predictions is not a non-empty list")
	}

	reasoning := NoReasoning
	if r := reasoningPath.First(candidate); r != nil {
		if s, ok := r.(string); ok && strings.TrimSpace(s) != "" {
			reasoning = s
		}
	}

	type acc struct {
		entries []model.PredictionEntry
		dropped int
	}
	res := lo.Reduce(items, func(a acc, item any, _ int) acc {
		e, ok := coerceEntry(item)
		if !ok || !p.filter(e.Lap) {
			a.dropped++
			return a
		}
		a.entries = append(a.entries, e)
		return a
	}, acc{})

	slices.SortStableFunc(res.entries, func(a, b model.PredictionEntry) int {
		return a.Lap - b.Lap
	})
	unique := lo.UniqBy(res.entries, func(e model.PredictionEntry) int { return e.Lap })
	res.dropped += len(res.entries) - len(unique)
	if len(unique) == 0 {
		return nil, errors.New("no valid prediction entries")
	}
	return &Forecast{Predictions: unique, Reasoning: reasoning, Dropped: res.dropped}, nil
}

func coerceEntry(item any) (model.PredictionEntry, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return model.PredictionEntry{}, false
	}
	lap, ok := toInt(m["lap"])
	if !ok {
		return model.PredictionEntry{}, false
	}
	t, ok := toFloat(m["predicted_time"])
	if !ok {
		return model.PredictionEntry{}, false
	}
	c, ok := toFloat(m["confidence"])
	if !ok {
		return model.PredictionEntry{}, false
	}
	return model.PredictionEntry{
		Lap:           lap,
		PredictedTime: decimal.NewFromFloat(t).Round(3).InexactFloat64(),
		Confidence:    math.Min(1, math.Max(0, c)),
	}, true
}

// toInt accepts integral numbers, floats (truncated) and integer strings
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case int:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
