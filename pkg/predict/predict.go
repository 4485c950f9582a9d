// Package predict runs the tire degradation prediction pipeline.
package predict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/advisor/pitstop"
	"github.com/mpapenbr/tirecast/pkg/advisor/strategy"
	"github.com/mpapenbr/tirecast/pkg/catalog"
	"github.com/mpapenbr/tirecast/pkg/laps"
	"github.com/mpapenbr/tirecast/pkg/llm"
	"github.com/mpapenbr/tirecast/pkg/llm/parse"
	"github.com/mpapenbr/tirecast/pkg/metrics"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/processing/degradation"
	"github.com/mpapenbr/tirecast/pkg/processing/racecontext"
	"github.com/mpapenbr/tirecast/pkg/publish"
	"github.com/mpapenbr/tirecast/pkg/utils/cache"
	"github.com/mpapenbr/tirecast/pkg/utils/cache/loadercache"
)

const DefaultTargetLaps = 15

var ErrInvalidRequest = errors.New("invalid request")

var tracer = otel.Tracer("predict")

type (
	Request struct {
		Track      string
		CurrentLap int
		TargetLaps int
		Threshold  float64 // pit threshold in seconds, 0 selects the default
		Strategy   bool    // include the strategy comparison
	}

	TableCache = cache.Cache[string, model.LapTable]

	Predictor struct {
		l          *log.Logger
		requester  *llm.Requester
		catalog    *catalog.Catalog
		tables     TableCache
		calculator *degradation.Calculator
		formatter  *racecontext.Formatter
		metrics    *metrics.Metrics
		publisher  publish.Publisher
		threshold  float64
		target     int
		now        func() time.Time
		newID      func() string
	}
	Option func(*Predictor)
)

func WithLogger(l *log.Logger) Option {
	return func(p *Predictor) {
		p.l = l
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(p *Predictor) {
		p.catalog = c
	}
}

// WithTableCache sets the cache used to share loaded telemetry tables.
// Tables are never modified after loading.
func WithTableCache(c TableCache) Option {
	return func(p *Predictor) {
		p.tables = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Predictor) {
		p.metrics = m
	}
}

func WithPublisher(pub publish.Publisher) Option {
	return func(p *Predictor) {
		p.publisher = pub
	}
}

func WithThreshold(threshold float64) Option {
	return func(p *Predictor) {
		if threshold > 0 {
			p.threshold = threshold
		}
	}
}

func WithDefaultTarget(laps int) Option {
	return func(p *Predictor) {
		if laps > 0 {
			p.target = laps
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		p.now = now
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(p *Predictor) {
		p.newID = gen
	}
}

func NewPredictor(requester *llm.Requester, opts ...Option) *Predictor {
	ret := &Predictor{
		l:          log.Default().Named("predict"),
		requester:  requester,
		calculator: degradation.NewCalculator(),
		formatter:  racecontext.NewFormatter(),
		publisher:  publish.Noop(),
		threshold:  pitstop.DefaultThreshold,
		target:     DefaultTargetLaps,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.catalog == nil {
		ret.catalog = catalog.Default()
	}
	if ret.metrics == nil {
		ret.metrics = metrics.Default()
	}
	if ret.tables == nil {
		ret.tables = NewTableCache(laps.NewLoader(), ret.metrics, time.Minute)
	}
	return ret
}

// NewTableCache returns a cache loading telemetry files with ld.
// Failed loads are not cached.
//
//nolint:whitespace // editor/linter issue
func NewTableCache(
	ld *laps.Loader, m *metrics.Metrics, expiration time.Duration,
) TableCache {
	return loadercache.New(
		loadercache.WithLoader(func(_ context.Context, file string) (*model.LapTable, error) {
			m.CacheLoads.Inc()
			return ld.Load(file)
		}),
		loadercache.WithExpiration[string, model.LapTable](expiration),
		loadercache.WithLogger[string, model.LapTable](log.Default().Named("predict.cache")),
	)
}

// AttemptMetrics records failed backend attempts
func AttemptMetrics(m *metrics.Metrics) llm.AttemptObserver {
	return func(a llm.Attempt) {
		m.BackendAttempts.WithLabelValues(a.Kind.String()).Inc()
		if a.Delay > 0 {
			m.BackendRetries.Inc()
		}
	}
}

func (p *Predictor) Catalog() *catalog.Catalog {
	return p.catalog
}

// Predict is the pipeline entry point used by the dashboard.
//
//nolint:whitespace // editor/linter issue
func (p *Predictor) Predict(
	ctx context.Context, track string, currentLap, targetLaps int,
) *model.ForecastResult {
	return p.Run(ctx, Request{Track: track, CurrentLap: currentLap, TargetLaps: targetLaps}, nil).Forecast
}

// Strategy compares pit strategies for track from currentLap on
//
//nolint:whitespace // editor/linter issue
func (p *Predictor) Strategy(
	ctx context.Context, track string, currentLap int,
) *model.StrategyComparison {
	info, table, err := p.load(ctx, track)
	if err != nil {
		return &model.StrategyComparison{
			Status:   model.StatusError,
			Error:    err.Error(),
			Category: model.CategoryNoData,
		}
	}
	return p.compare(info, table, currentLap)
}

// Run executes the full pipeline. It never returns nil; failures are
// reported in the Forecast of the returned report.
//
//nolint:funlen // sequential pipeline stages
func (p *Predictor) Run(ctx context.Context, req Request, progress ProgressFunc) *Report {
	start := p.now()
	report := &Report{RequestID: p.newID(), CurrentLap: req.CurrentLap}
	l := p.l.With(log.String("requestId", report.RequestID))
	ctx = log.AddToContext(ctx, l)
	ctx, span := tracer.Start(ctx, "predict",
		trace.WithAttributes(
			attribute.String("track", req.Track),
			attribute.Int("currentLap", req.CurrentLap),
			attribute.Int("targetLaps", req.TargetLaps)))
	defer span.End()

	emit := func(s Stage) {
		if progress != nil {
			progress(progressOf(s))
		}
	}
	fail := func(err error) *Report {
		category := Categorize(err)
		report.Forecast = model.ForecastFailure(category, err)
		report.Message = MessageFor(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		l.Warn("prediction failed",
			log.String("category", string(category)), log.ErrorField(err))
		return p.finish(report, start)
	}

	if req.CurrentLap < 1 {
		return fail(fmt.Errorf("%w: current lap must be positive", ErrInvalidRequest))
	}
	target := req.TargetLaps
	if target == 0 {
		target = p.target
	}
	if target < 0 {
		return fail(fmt.Errorf("%w: target laps must be positive", ErrInvalidRequest))
	}

	emit(StageLoading)
	_, loadSpan := tracer.Start(ctx, "load telemetry")
	info, table, err := p.load(ctx, req.Track)
	loadSpan.End()
	report.Track = info
	if err != nil {
		return fail(err)
	}

	emit(StageAnalyzing)
	_, analyzeSpan := tracer.Start(ctx, "analyze degradation")
	table = p.calculator.Calculate(table)
	total := info.TotalLaps
	if total <= 0 {
		total = table.MaxLap()
	}
	report.TotalLaps = total
	horizon := min(target, total-req.CurrentLap)
	raceContext, err := p.formatter.Format(table, req.CurrentLap)
	analyzeSpan.End()
	if horizon <= 0 {
		return fail(fmt.Errorf("%w: no laps left to predict after lap %d of %d",
			ErrInvalidRequest, req.CurrentLap, total))
	}
	if err != nil {
		return fail(err)
	}
	report.Horizon = horizon

	emit(StageRequesting)
	reqCtx, reqSpan := tracer.Start(ctx, "request forecast")
	text, err := p.requester.Request(reqCtx, raceContext, llm.Horizon{
		CurrentLap: req.CurrentLap,
		Laps:       horizon,
		TotalLaps:  total,
	})
	reqSpan.End()
	if err != nil {
		return fail(err)
	}
	p.metrics.BackendAttempts.WithLabelValues("success").Inc()

	forecast, err := parse.NewParser(
		parse.WithLogger(p.l.Named("parse")),
		parse.WithLapRange(req.CurrentLap, total),
	).Parse(text)
	if err != nil {
		return fail(err)
	}
	p.metrics.ParseStrategyHits.WithLabelValues(forecast.Strategy).Inc()
	p.metrics.DroppedEntries.Add(float64(forecast.Dropped))
	report.Forecast = model.ForecastSuccess(forecast.Predictions, forecast.Reasoning)

	emit(StageAdvising)
	_, adviseSpan := tracer.Start(ctx, "advise")
	threshold := p.threshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}
	report.Pit = pitstop.NewAdvisor(
		pitstop.WithLogger(p.l.Named("pitstop")),
		pitstop.WithThreshold(threshold),
	).Recommend(forecast.Predictions)
	if lap := report.Pit.RecommendedLap; lap.IsValue() {
		report.Urgency = UrgencyFor(lap.GetOr(0), req.CurrentLap)
	}
	if req.Strategy {
		report.Strategy = p.compare(info, table, req.CurrentLap)
	}
	report.Chart = model.ChartPoints(forecast.Predictions)
	report.Metrics = MetricsFor(forecast.Predictions, req.CurrentLap)
	adviseSpan.End()

	emit(StageComplete)
	l.Info("prediction finished",
		log.String("track", info.ID),
		log.Int("currentLap", req.CurrentLap),
		log.Int("predicted", len(forecast.Predictions)),
		log.String("strategy", forecast.Strategy))
	p.finish(report, start)
	p.publish(ctx, report)
	return report
}

//nolint:whitespace // editor/linter issue
func (p *Predictor) load(
	ctx context.Context, track string,
) (model.TrackInfo, *model.LapTable, error) {
	info, err := p.catalog.Lookup(track)
	if err != nil {
		return model.TrackInfo{ID: track, Name: track}, nil, err
	}
	file, err := p.catalog.DataFile(track)
	if err != nil {
		return info, nil, err
	}
	table, err := p.tables.Get(ctx, file)
	if err != nil {
		return info, nil, err
	}
	if table.IsEmpty() {
		return info, nil, racecontext.ErrNoData
	}
	return info, table, nil
}

//nolint:whitespace // editor/linter issue
func (p *Predictor) compare(
	info model.TrackInfo, table *model.LapTable, currentLap int,
) *model.StrategyComparison {
	return strategy.NewComparator(
		strategy.WithLogger(p.l.Named("strategy")),
		strategy.WithTotalLaps(info.TotalLaps),
	).CompareTable(table, currentLap)
}

func (p *Predictor) finish(report *Report, start time.Time) *Report {
	end := p.now()
	report.GeneratedAt = end
	report.Duration = end.Sub(start).Seconds()
	status := string(report.Forecast.Status)
	p.metrics.PipelineRuns.WithLabelValues(status, string(report.Forecast.Category)).Inc()
	p.metrics.PipelineDuration.WithLabelValues(status).Observe(report.Duration)
	return report
}

func (p *Predictor) publish(ctx context.Context, report *Report) {
	err := p.publisher.Publish(ctx, publish.Message{
		Track:     report.Track.ID,
		RequestID: report.RequestID,
		Payload:   report,
	})
	if err != nil {
		p.metrics.ReportsPublished.WithLabelValues("error").Inc()
		p.l.Warn("could not publish report", log.ErrorField(err))
		return
	}
	p.metrics.ReportsPublished.WithLabelValues("ok").Inc()
}
