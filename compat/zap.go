package compat

import (
	"sort"
	"time"

	"github.com/lixenwraith/logpp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapSyncTimeout bounds how long Sync waits for the pipeline to flush
const zapSyncTimeout = time.Second

var _ zapcore.Core = (*ZapCore)(nil)

// ZapCore is a zapcore.Core that forwards entries to a logpp.Logger.
// Level checks use the logpp logger's threshold, not a zap level enabler.
type ZapCore struct {
	logger *logpp.Logger
}

// NewZapCore creates a core writing through logger
func NewZapCore(logger *logpp.Logger) *ZapCore {
	return &ZapCore{logger: logger}
}

// NewZapLogger returns a *zap.Logger backed by logger
func NewZapLogger(logger *logpp.Logger, opts ...zap.Option) *zap.Logger {
	return zap.New(NewZapCore(logger), opts...)
}

// Enabled implements zapcore.LevelEnabler
func (c *ZapCore) Enabled(lvl zapcore.Level) bool {
	return c.logger.Enabled(fromZapLevel(lvl))
}

// With returns a core that attaches fields to every entry
func (c *ZapCore) With(fields []zapcore.Field) zapcore.Core {
	if len(fields) == 0 {
		return c
	}
	return &ZapCore{logger: c.logger.With(convertZapFields(fields)...)}
}

// Check adds the core to ce when the entry level is enabled
func (c *ZapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write forwards the entry; the zap logger name is kept as a field
func (c *ZapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	converted := convertZapFields(fields)
	if ent.LoggerName != "" {
		converted = append(converted, logpp.String("zap_logger", ent.LoggerName))
	}
	c.logger.LogFields(fromZapLevel(ent.Level), ent.Message, converted...)
	return nil
}

// Sync flushes the logpp pipeline
func (c *ZapCore) Sync() error {
	return c.logger.Flush(zapSyncTimeout)
}

// fromZapLevel maps zap levels; the panic and fatal levels become critical
func fromZapLevel(lvl zapcore.Level) logpp.Level {
	switch {
	case lvl < zapcore.DebugLevel:
		return logpp.LevelTrace
	case lvl == zapcore.DebugLevel:
		return logpp.LevelDebug
	case lvl == zapcore.InfoLevel:
		return logpp.LevelInfo
	case lvl == zapcore.WarnLevel:
		return logpp.LevelWarn
	case lvl == zapcore.ErrorLevel:
		return logpp.LevelError
	default:
		return logpp.LevelCritical
	}
}

// convertZapFields maps scalar zap fields directly and renders the rest
// through a map object encoder
func convertZapFields(fields []zapcore.Field) []logpp.Field {
	out := make([]logpp.Field, 0, len(fields))
	for _, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			out = append(out, logpp.String(f.Key, f.String))
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
			out = append(out, logpp.Int64(f.Key, f.Integer))
		case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
			out = append(out, logpp.Uint64(f.Key, uint64(f.Integer)))
		case zapcore.BoolType:
			out = append(out, logpp.Bool(f.Key, f.Integer == 1))
		case zapcore.DurationType:
			out = append(out, logpp.Duration(f.Key, time.Duration(f.Integer)))
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				out = append(out, logpp.NamedErr(f.Key, err))
			}
		case zapcore.SkipType:
		default:
			enc := zapcore.NewMapObjectEncoder()
			f.AddTo(enc)
			keys := make([]string, 0, len(enc.Fields))
			for k := range enc.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = append(out, logpp.Any(k, enc.Fields[k]))
			}
		}
	}
	return out
}
