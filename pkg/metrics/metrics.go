// Package metrics holds the Prometheus collectors of the prediction pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PipelineRuns      *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	BackendAttempts   *prometheus.CounterVec
	BackendRetries    prometheus.Counter
	ParseStrategyHits *prometheus.CounterVec
	DroppedEntries    prometheus.Counter
	CacheLoads        prometheus.Counter
	ReportsPublished  *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// Default returns the metrics registered with the default registry
func Default() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = New(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// New registers a fresh set of collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirecast_pipeline_runs_total",
				Help: "Prediction pipeline runs by status and error category",
			},
			[]string{"status", "category"},
		),
		PipelineDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tirecast_pipeline_duration_seconds",
				Help:    "Duration of prediction pipeline runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"status"},
		),
		BackendAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirecast_backend_attempts_total",
				Help: "Model backend calls by outcome",
			},
			[]string{"outcome"},
		),
		BackendRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "tirecast_backend_retries_total",
			Help: "Retry delays taken before another backend attempt",
		}),
		ParseStrategyHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirecast_parse_strategy_hits_total",
				Help: "Extraction strategy which produced the accepted forecast",
			},
			[]string{"strategy"},
		),
		DroppedEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "tirecast_dropped_prediction_entries_total",
			Help: "Prediction entries removed during validation",
		}),
		CacheLoads: f.NewCounter(prometheus.CounterOpts{
			Name: "tirecast_telemetry_loads_total",
			Help: "Telemetry files read from disk",
		}),
		ReportsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirecast_reports_published_total",
				Help: "Reports handed to the publisher by result",
			},
			[]string{"result"},
		),
	}
}
