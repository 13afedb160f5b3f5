// Package log provides structured logging for EconML estimator operations.
//
// The package wraps rs/zerolog behind a minimal interface so that estimators
// can emit structured fit/predict diagnostics without forcing an output
// destination on library users. Logging is disabled by default; applications
// opt in by installing a logger:
//
//	log.SetLogger(log.NewLogger(os.Stderr, log.LevelDebug))
//
// Estimators attach domain attributes using the shared keys defined in
// attributes.go, e.g.:
//
//	logger := log.GetLogger().With(log.ModelNameKey, "RLearner")
//	logger.Debug("fold residuals computed", log.FoldKey, 1, log.SamplesKey, 50)
package log

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's levels for the subset the library uses.
type Level int8

// Logging levels, ordered from most to least verbose.
const (
	LevelDebug    Level = Level(zerolog.DebugLevel)
	LevelInfo     Level = Level(zerolog.InfoLevel)
	LevelWarn     Level = Level(zerolog.WarnLevel)
	LevelError    Level = Level(zerolog.ErrorLevel)
	LevelDisabled Level = Level(zerolog.Disabled)
)

// Logger is the structured logging interface used throughout the library.
// Fields are alternating key/value pairs, as in log/slog.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger that includes the given fields on every message.
	With(fields ...any) Logger
}

var (
	loggerMu      sync.RWMutex
	defaultLogger Logger = &zerologLogger{logger: zerolog.Nop()}
)

// SetLogger installs the package-wide logger used by estimators.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = l
}

// GetLogger returns the package-wide logger. A no-op logger is returned
// until SetLogger is called.
func GetLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// NewLogger creates a zerolog-backed Logger writing to w at the given level.
func NewLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(zerolog.Level(level)).With().Timestamp().Logger()
	return &zerologLogger{logger: zl}
}

type zerologLogger struct {
	logger zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.logger.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.logger.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.logger.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.logger.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger()}
}

func (l *zerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			event = event.Object(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}
