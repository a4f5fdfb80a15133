package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// WithName returns a logger whose entries carry the given component
	// name, typically the guarded dependency.
	WithName(name string) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// structuredLogger is a JSON structured logger implementation.
type structuredLogger struct {
	level  LogLevel
	writer io.Writer
	mu     *sync.Mutex
	name   string
}

// NewLogger creates a structured JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a structured JSON logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:  ParseLogLevel(level),
		writer: w,
		mu:     &sync.Mutex{},
	}
}

func (l *structuredLogger) WithName(name string) Logger {
	return &structuredLogger{
		level:  l.level,
		writer: l.writer,
		mu:     l.mu,
		name:   name,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

func (l *structuredLogger) log(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(fields)+4)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.name != "" {
		entry["name"] = l.name
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // drop malformed entries
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (l *noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) WithName(name string) Logger                            { return l }

// LogObserver logs resilience events through a Logger. Attempts log at
// debug (warn on error), operations at info (warn on failure), and state
// transitions at warn.
type LogObserver struct {
	logger Logger
}

// NewLogObserver creates an observer that writes events to logger.
func NewLogObserver(logger Logger) *LogObserver {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnAttempt(ctx context.Context, ev AttemptEvent) {
	fields := []Field{
		{Key: "attempt", Value: ev.Attempt},
		{Key: "mode", Value: ev.Mode},
		{Key: "duration_ms", Value: float64(ev.Elapsed.Milliseconds())},
	}
	logger := o.logger.WithName(ev.Name)
	if ev.Err != nil {
		fields = append(fields, Field{Key: "error", Value: ev.Err.Error()})
		logger.Warn(ctx, "attempt failed", fields...)
		return
	}
	logger.Debug(ctx, "attempt succeeded", fields...)
}

func (o *LogObserver) OnStateTransition(ctx context.Context, ev StateTransition) {
	o.logger.WithName(ev.Name).Warn(ctx, "circuit state changed",
		Field{Key: "from", Value: ev.From},
		Field{Key: "to", Value: ev.To},
	)
}

func (o *LogObserver) OnOperation(ctx context.Context, ev OperationEvent) {
	fields := []Field{
		{Key: "mode", Value: ev.Mode},
		{Key: "attempts", Value: ev.Attempts},
		{Key: "duration_ms", Value: float64(ev.Elapsed.Milliseconds())},
	}
	logger := o.logger.WithName(ev.Name)
	switch {
	case ev.Rejected:
		logger.Warn(ctx, "operation rejected by circuit breaker", fields...)
	case ev.Err != nil:
		fields = append(fields, Field{Key: "error", Value: ev.Err.Error()})
		logger.Warn(ctx, "operation failed", fields...)
	default:
		logger.Info(ctx, "operation succeeded", fields...)
	}
}

var _ Observer = (*LogObserver)(nil)
