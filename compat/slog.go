package compat

import (
	"context"
	"log/slog"

	"github.com/lixenwraith/logpp"
)

var _ slog.Handler = (*SlogHandler)(nil)

// SlogHandler is a slog.Handler writing through a logpp.Logger.
// Groups are flattened into dotted keys; a span in the record context adds
// trace_id and span_id.
type SlogHandler struct {
	logger *logpp.Logger
	prefix string // Dotted group path, with trailing dot
}

// NewSlogHandler creates a handler writing through logger
func NewSlogHandler(logger *logpp.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// NewSlogLogger returns a *slog.Logger backed by logger
func NewSlogLogger(logger *logpp.Logger) *slog.Logger {
	return slog.New(NewSlogHandler(logger))
}

// Enabled reports whether the logpp logger admits the level
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(fromSlogLevel(level))
}

// Handle converts the record attributes and logs the message
func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make([]logpp.Field, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})

	logger := h.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	logger.LogFields(fromSlogLevel(r.Level), r.Message, fields...)
	return nil
}

// WithAttrs returns a handler that attaches attrs to every record
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	fields := make([]logpp.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = appendAttr(fields, h.prefix, a)
	}
	return &SlogHandler{logger: h.logger.With(fields...), prefix: h.prefix}
}

// WithGroup returns a handler that nests later attributes under name
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

// fromSlogLevel maps slog levels, with custom levels rounded down to the nearest named one
func fromSlogLevel(level slog.Level) logpp.Level {
	switch {
	case level < slog.LevelDebug:
		return logpp.LevelTrace
	case level < slog.LevelInfo:
		return logpp.LevelDebug
	case level < slog.LevelWarn:
		return logpp.LevelInfo
	case level < slog.LevelError:
		return logpp.LevelWarn
	case level < slog.LevelError+4:
		return logpp.LevelError
	default:
		return logpp.LevelCritical
	}
}

func appendAttr(fields []logpp.Field, prefix string, a slog.Attr) []logpp.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	key := prefix + a.Key

	switch a.Value.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, groupPrefix, ga)
		}
		return fields
	case slog.KindString:
		return append(fields, logpp.String(key, a.Value.String()))
	case slog.KindInt64:
		return append(fields, logpp.Int64(key, a.Value.Int64()))
	case slog.KindUint64:
		return append(fields, logpp.Uint64(key, a.Value.Uint64()))
	case slog.KindFloat64:
		return append(fields, logpp.Float64(key, a.Value.Float64()))
	case slog.KindBool:
		return append(fields, logpp.Bool(key, a.Value.Bool()))
	case slog.KindDuration:
		return append(fields, logpp.Duration(key, a.Value.Duration()))
	case slog.KindTime:
		return append(fields, logpp.Time(key, a.Value.Time()))
	default:
		if err, ok := a.Value.Any().(error); ok {
			return append(fields, logpp.NamedErr(key, err))
		}
		return append(fields, logpp.Any(key, a.Value.Any()))
	}
}
