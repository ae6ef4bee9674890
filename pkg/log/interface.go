// Package log provides a structured logging interface for unipls estimators.
//
// The interface is slog-compatible so callers can plug in their own backend;
// the default implementation writes JSON through zerolog (see zerolog.go).
//
// Example usage:
//
//	logger := log.GetLoggerWithName("cross_decomposition.mbpls").With(
//	    log.ModelNameKey, "MBPLS",
//	    log.EstimatorIDKey, id,
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 40,
//	    log.BlocksKey, 2,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Implementations must be safe for
// concurrent use.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-component
	// progress of a fit.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs potentially problematic situations that do not stop the
	// operation.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error value
	// (an odd number of fields), it is logged under ErrAttrKey and its stack
	// trace, when one was recorded, under StacktraceAttrKey.
	//
	//   logger.Error("Fit failed", err, log.OperationKey, log.OperationFit)
	Error(msg string, fields ...any)

	// With returns a Logger that includes the given fields in every record.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Estimators obtain their default logger
// from the process-wide provider installed with SetProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
