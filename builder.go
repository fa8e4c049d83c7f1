package logpp

import (
	"time"
)

// Builder provides a fluent API for building registry configurations.
// It wraps a Config instance and provides chainable methods for setting values.
// The first error is kept and returned by Build; later calls become no-ops.
type Builder struct {
	cfg      *Config
	opts     []Option
	err      error // Accumulate errors for deferred handling
	hasSinks bool  // The default console sink is dropped once any sink is added
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Registry with the specified configuration.
func (b *Builder) Build() (*Registry, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return NewRegistry(cfg, b.opts...)
}

// Config returns the validated configuration without starting a registry.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := b.cfg.Clone()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level sets the global level.
func (b *Builder) Level(level Level) *Builder {
	b.cfg.Level = level
	return b
}

// LevelString sets the global level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = lvl
	return b
}

// LoggerLevel sets the level override for a dotted logger prefix.
func (b *Builder) LoggerLevel(prefix, level string) *Builder {
	if b.err != nil {
		return b
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		b.err = configErrorf(loggerPath(prefix), "invalid level '%s'", level)
		return b
	}
	b.cfg.Loggers[prefix] = lvl
	return b
}

// QueueCapacity sets the queue capacity.
func (b *Builder) QueueCapacity(capacity int) *Builder {
	b.cfg.QueueCapacity = capacity
	return b
}

// OverflowPolicy sets the policy applied when the queue is full.
func (b *Builder) OverflowPolicy(policy string) *Builder {
	b.cfg.OverflowPolicy = policy
	return b
}

// BlockTimeout sets how long a producer waits under the block policy.
func (b *Builder) BlockTimeout(timeout time.Duration) *Builder {
	b.cfg.BlockTimeout = timeout
	return b
}

// BatchSize sets the maximum number of records dispatched at once.
func (b *Builder) BatchSize(size int) *Builder {
	b.cfg.BatchSize = size
	return b
}

// Writers sets the number of writer groups.
func (b *Builder) Writers(n int) *Builder {
	b.cfg.Writers = n
	return b
}

// FlushInterval sets the periodic sink flush interval.
func (b *Builder) FlushInterval(interval time.Duration) *Builder {
	b.cfg.FlushInterval = interval
	return b
}

// ShutdownTimeout sets the default drain deadline.
func (b *Builder) ShutdownTimeout(timeout time.Duration) *Builder {
	b.cfg.ShutdownTimeout = timeout
	return b
}

// Heartbeat enables the stats heartbeat at the given interval.
func (b *Builder) Heartbeat(interval time.Duration) *Builder {
	b.cfg.HeartbeatInterval = interval
	return b
}

// InternalErrorsToStderr toggles internal diagnostics on stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// SinkFallback toggles replacing unopenable sinks with null sinks.
func (b *Builder) SinkFallback(enable bool) *Builder {
	b.cfg.SinkFallback = enable
	return b
}

// Caller toggles file:line capture for every record.
func (b *Builder) Caller(enable bool) *Builder {
	b.cfg.Caller = enable
	return b
}

// TraceDepth sets how many call chain frames are attached to every record.
func (b *Builder) TraceDepth(depth int) *Builder {
	b.cfg.TraceDepth = depth
	return b
}

// Sink appends a sink entry. The first added sink replaces the default console sink.
func (b *Builder) Sink(sc SinkConfig) *Builder {
	if !b.hasSinks {
		b.cfg.Sinks = b.cfg.Sinks[:0]
		b.hasSinks = true
	}
	b.cfg.Sinks = append(b.cfg.Sinks, sc)
	return b
}

// Console adds a console sink writing to target.
func (b *Builder) Console(target string) *Builder {
	sc := DefaultSinkConfig(SinkConsole)
	sc.Target = target
	sc.Name = ""
	return b.Sink(sc)
}

// File adds a file sink appending to path.
func (b *Builder) File(path string) *Builder {
	sc := DefaultSinkConfig(SinkFile)
	sc.Target = path
	sc.Name = ""
	return b.Sink(sc)
}

// RollingFile adds a rolling file sink with a size ("10MB") and/or interval ("day") threshold.
func (b *Builder) RollingFile(path, maxSize, interval string) *Builder {
	if b.err != nil {
		return b
	}
	sc := DefaultSinkConfig(SinkRollingFile)
	sc.Target = path
	sc.Name = ""
	sc.Interval = interval
	if maxSize != "" {
		size, err := parseSize(maxSize)
		if err != nil {
			idx := 0
			if b.hasSinks {
				idx = len(b.cfg.Sinks)
			}
			b.err = configErrorf(sinkPath(idx)+".max_size", "%v", err)
			return b
		}
		sc.MaxSize = size
	}
	return b.Sink(sc)
}

// Null adds a sink that discards everything.
func (b *Builder) Null() *Builder {
	sc := DefaultSinkConfig(SinkNull)
	sc.Name = ""
	return b.Sink(sc)
}

// Option adds a registry option applied by Build.
func (b *Builder) Option(opt Option) *Builder {
	b.opts = append(b.opts, opt)
	return b
}
