package daemon

import (
	"log/slog"
	"os"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog.Logger with daemon-specific functionality
type Logger struct {
	*slog.Logger
	component string
}

// NewLogger creates a new structured logger for daemon components
func NewLogger(component string, level LogLevel) *Logger {
	var slogLevel slog.Level
	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelInfo:
		slogLevel = slog.LevelInfo
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})

	logger := slog.New(handler)

	return &Logger{
		Logger:    logger,
		component: component,
	}
}

// WithComponent creates a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// WithRequest creates a logger with request context
func (l *Logger) WithRequest(requestID string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("request_id", requestID),
		component: l.component,
	}
}

// Debug logs a debug message with component context
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

// Info logs an info message with component context
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

// Warn logs a warning message with component context
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

// Error logs an error message with component context
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

// LogDaemonStart logs daemon startup information
func (l *Logger) LogDaemonStart(port int, version string) {
	l.Info("daemon starting",
		"port", port,
		"version", version,
		"pid", os.Getpid())
}

// LogRequestEnqueued logs a session request entering the queue
func (l *Logger) LogRequestEnqueued(requestID string, queueDepth int) {
	l.Info("session request enqueued",
		"request_id", requestID,
		"queue_depth", queueDepth)
}

// LogRequestResolved logs a session request leaving the queue
func (l *Logger) LogRequestResolved(requestID string, outcome string, waitedMs int64) {
	l.Info("session request resolved",
		"request_id", requestID,
		"outcome", outcome,
		"waited_ms", waitedMs)
}

// LogBatchClaimed logs a distributor poll handing out requests
func (l *Logger) LogBatchClaimed(claimed int, queueDepth int) {
	l.Info("batch claimed",
		"claimed", claimed,
		"queue_depth", queueDepth)
}

// LogError logs error events with context
func (l *Logger) LogError(operation string, err error, context ...any) {
	args := append([]any{"operation", operation, "error", err.Error()}, context...)
	l.Error("operation failed", args...)
}
