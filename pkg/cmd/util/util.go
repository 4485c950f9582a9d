// Package util holds setup code shared by the commands
package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/catalog"
	"github.com/mpapenbr/tirecast/pkg/config"
	"github.com/mpapenbr/tirecast/pkg/laps"
	"github.com/mpapenbr/tirecast/pkg/llm"
	"github.com/mpapenbr/tirecast/pkg/llm/gemini"
	"github.com/mpapenbr/tirecast/pkg/metrics"
	"github.com/mpapenbr/tirecast/pkg/predict"
	"github.com/mpapenbr/tirecast/pkg/publish"
)

// FallbackAPIKeyEnv is consulted when no key was configured
const FallbackAPIKeyEnv = "GEMINI_API_KEY"

type Setup struct {
	Predictor *predict.Predictor
	Catalog   *catalog.Catalog
	Tables    predict.TableCache
	Metrics   *metrics.Metrics
}

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger installs the default logger according to config.
// A log config file takes precedence over level and format flags.
func SetupLogger() *log.Logger {
	var logger *log.Logger
	if config.LogConfig != "" {
		l, err := loggerFromFile(config.LogConfig)
		if err == nil {
			log.ResetDefault(l)
			return l
		}
		fmt.Fprintf(os.Stderr, "Could not use log config %s: %v\n", config.LogConfig, err)
	}
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)
	return logger
}

func loggerFromFile(path string) (*log.Logger, error) {
	cfg, err := log.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return log.FromConfig(os.Stderr, cfg,
		ParseLogLevel(config.LogLevel, log.InfoLevel), config.LogFormat,
		log.WithCaller(true),
		log.AddCallerSkip(1))
}

// Credential resolves the model API key from config or FallbackAPIKeyEnv
func Credential() llm.Credential {
	key := config.GeminiAPIKey
	if key == "" {
		key = os.Getenv(FallbackAPIKeyEnv)
	}
	return llm.NewCredential(key)
}

func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("Invalid duration value. Using default",
			log.String("value", s),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

// NewSetup wires the prediction pipeline from config values
func NewSetup(pub publish.Publisher) (*Setup, error) {
	cat, err := catalog.New(
		catalog.WithFile(config.CatalogFile),
		catalog.WithDataDir(config.DataDir))
	if err != nil {
		return nil, err
	}
	m := metrics.Default()
	tables := predict.NewTableCache(laps.NewLoader(), m,
		ParseDuration(config.CacheExpiration, 5*time.Minute))

	cred := Credential()
	log.Debug("Config:",
		log.String("model", config.Model),
		log.String("credential", cred.String()),
		log.String("catalog", config.CatalogFile),
		log.String("dataDir", cat.DataDir()),
	)
	requester := llm.NewRequester(cred,
		gemini.Factory(
			gemini.WithModel(config.Model),
			gemini.WithTemperature(float32(config.Temperature))),
		llm.WithMaxAttempts(config.MaxAttempts),
		llm.WithRetryDelay(ParseDuration(config.RetryDelay, llm.DefaultRetryDelay)),
		llm.WithAttemptObserver(predict.AttemptMetrics(m)),
	)
	if pub == nil {
		pub = publish.Noop()
	}
	p := predict.NewPredictor(requester,
		predict.WithCatalog(cat),
		predict.WithTableCache(tables),
		predict.WithMetrics(m),
		predict.WithPublisher(pub),
		predict.WithThreshold(config.PitThreshold),
		predict.WithDefaultTarget(config.TargetLaps),
	)
	return &Setup{Predictor: p, Catalog: cat, Tables: tables, Metrics: m}, nil
}

// InvalidateOnChange drops cached tables when the catalog or a telemetry
// file changes.
func (s *Setup) InvalidateOnChange(ctx context.Context) {
	s.Catalog.OnChange(func(path string) {
		if filepath.Ext(path) == ".csv" {
			log.Info("telemetry file changed", log.String("file", path))
			s.Tables.Invalidate(ctx, path)
			return
		}
		log.Info("catalog changed, dropping cached tables", log.String("file", path))
		s.Tables.InvalidateAll(ctx)
	})
}
