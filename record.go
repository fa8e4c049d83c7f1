package logpp

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

// log builds a record from a ready message and enqueues it. A negative
// traceDepth takes the configured trace_depth.
func (l *Logger) log(level Level, msg string, fields []Field, traceDepth int) {
	if level < Level(l.core.level.Load()) || level >= LevelOff {
		return
	}

	rec := Record{
		Time:    time.Now(),
		Level:   level,
		Logger:  l.core.name,
		Message: msg,
	}
	cfg := l.core.reg.getConfig()
	if traceDepth < 0 {
		traceDepth = cfg.TraceDepth
	}
	if cfg.Caller || traceDepth > 0 {
		var chain string
		rec.Caller, chain = callSite(callerSkip, cfg.Caller, traceDepth)
		fields = appendTrace(fields, chain)
	}
	rec.Fields = l.mergeFields(fields)
	l.core.reg.enqueue(&rec)
}

// logf renders template on the caller's goroutine and enqueues the record.
// A template that fails to render is logged raw with a format_error field.
func (l *Logger) logf(level Level, template string, args []any) {
	if level < Level(l.core.level.Load()) || level >= LevelOff {
		return
	}

	buf := bytebufferpool.Get()
	var extra []Field
	var msg string
	b, err := AppendFormat(buf.B[:0], template, args...)
	if err != nil {
		l.core.reg.state.FormatErrors.Add(1)
		msg = template
		extra = []Field{NamedErr("format_error", err)}
	} else {
		msg = string(b)
	}
	buf.B = b
	bytebufferpool.Put(buf)

	rec := Record{
		Time:    time.Now(),
		Level:   level,
		Logger:  l.core.name,
		Message: msg,
	}
	if cfg := l.core.reg.getConfig(); cfg.Caller || cfg.TraceDepth > 0 {
		var chain string
		rec.Caller, chain = callSite(callerSkip, cfg.Caller, cfg.TraceDepth)
		extra = appendTrace(extra, chain)
	}
	rec.Fields = l.mergeFields(extra)
	l.core.reg.enqueue(&rec)
}

// appendTrace adds a trace field without writing into the caller's backing array
func appendTrace(fields []Field, chain string) []Field {
	if chain == "" {
		return fields
	}
	return append(fields[:len(fields):len(fields)], String("trace", chain))
}

// mergeFields combines bound and call-site fields. Call-site slices are
// copied because the caller may reuse them after the call returns.
func (l *Logger) mergeFields(fields []Field) []Field {
	switch {
	case len(fields) == 0:
		return l.fields
	case len(l.fields) == 0:
		return append([]Field(nil), fields...)
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	return append(merged, fields...)
}

// enqueue pushes rec into the active pipeline. A pipeline retired by a
// concurrent reload is retried against its replacement; failures are counted.
func (r *Registry) enqueue(rec *Record) {
	for {
		p := r.active.Load()
		if p == nil {
			r.state.DroppedInactive.Add(1)
			return
		}

		p.inflight.Add(1)
		if p.closed.Load() {
			p.inflight.Add(-1)
			if r.active.Load() != p {
				continue
			}
			r.state.DroppedInactive.Add(1)
			return
		}
		p.queue.Enqueue(rec)
		p.inflight.Add(-1)
		return
	}
}
