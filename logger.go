package logpp

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// loggerCore is shared by a named logger and every child derived with With
type loggerCore struct {
	name  string
	level atomic.Int32
	reg   *Registry
}

// Logger is a named handle into a registry. Its level check is a single
// atomic load, so calls below the threshold cost no formatting or allocation.
// Loggers are safe for concurrent use.
type Logger struct {
	core   *loggerCore
	fields []Field // Bound by With, never modified after creation
}

func newLogger(r *Registry, name string, level Level) *Logger {
	core := &loggerCore{name: name, reg: r}
	core.level.Store(int32(level))
	return &Logger{core: core}
}

// Name returns the dotted logger name
func (l *Logger) Name() string {
	return l.core.name
}

// Level returns the current threshold
func (l *Logger) Level() Level {
	return Level(l.core.level.Load())
}

// SetLevel changes the threshold of this logger and its children until the next reload
func (l *Logger) SetLevel(level Level) {
	l.core.level.Store(int32(level))
}

// Enabled reports whether a record at level would be emitted
func (l *Logger) Enabled(level Level) bool {
	return level >= Level(l.core.level.Load()) && level < LevelOff
}

// Named returns the registry logger for "<name>.<sub>"
func (l *Logger) Named(sub string) *Logger {
	if l.core.name == "" {
		return l.core.reg.Logger(sub)
	}
	return l.core.reg.Logger(l.core.name + "." + sub)
}

// With returns a child logger that attaches fields to every record.
// The child shares the parent's name and level.
func (l *Logger) With(fields ...Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{core: l.core, fields: merged}
}

// WithContext returns a child logger carrying trace_id and span_id of the span
// in ctx, or l itself when ctx has no valid span
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		String("trace_id", sc.TraceID().String()),
		String("span_id", sc.SpanID().String()),
	)
}

// Flush waits until records logged so far are written and sinks are flushed
func (l *Logger) Flush(timeout time.Duration) error {
	return l.core.reg.Flush(timeout)
}

// Registry returns the registry the logger belongs to
func (l *Logger) Registry() *Registry {
	return l.core.reg
}
