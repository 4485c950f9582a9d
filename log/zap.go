package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type (
	Level  = zapcore.Level
	Field  = zap.Field
	Option = zap.Option
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip
	AddStacktrace = zap.AddStacktrace
)

// New creates a logger writing json formatted entries to w.
func New(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return newLogger(zapcore.NewJSONEncoder(cfg), w, level, "", opts...)
}

// DevLogger creates a logger writing human readable entries to w.
func DevLogger(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(zapcore.NewConsoleEncoder(cfg), w, level, "", opts...)
}

// NewWithRules is like New/DevLogger but filters entries by zapfilter rules
// (example: "debug:predict.* info:*"). An empty rule set falls back to level.
//
//nolint:whitespace // editor/linter issue
func NewWithRules(
	w io.Writer, level Level, format, rules string, opts ...Option,
) (*Logger, error) {
	var enc zapcore.Encoder
	if format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	if rules == "" {
		return newLogger(enc, w, level, "", opts...), nil
	}
	if _, err := zapfilter.ParseRules(rules); err != nil {
		return nil, err
	}
	return newLogger(enc, w, DebugLevel, rules, opts...), nil
}

//nolint:whitespace // editor/linter issue
func newLogger(
	enc zapcore.Encoder, w io.Writer, level Level, rules string, opts ...Option,
) *Logger {
	atomic := zap.NewAtomicLevelAt(level)
	var core zapcore.Core = zapcore.NewCore(enc, zapcore.AddSync(w), atomic)
	if rules != "" {
		core = zapfilter.NewFilteringCore(core, zapfilter.MustParseRules(rules))
	}
	return &Logger{l: zap.New(core, opts...), level: atomic}
}
