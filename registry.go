package logpp

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry owns one logging pipeline: the logger cache, the queue, the
// dispatcher and the sinks built from a Config. It replaces process-wide state
// with an explicit object; the package-level functions use a default instance.
type Registry struct {
	state  State
	initMu sync.Mutex // Serializes Reload and Shutdown

	config atomic.Pointer[Config]
	active atomic.Pointer[pipeline]

	loggersMu sync.RWMutex
	loggers   map[string]*Logger

	// Pipelines being drained after a reload, and totals of stopped ones
	statsMu  sync.Mutex
	draining []*pipeline
	retired  pipelineTotals

	custom []customSink
	diagMu sync.Mutex
	diag   io.Writer

	sinkErrMu sync.Mutex
	sinkErrs  []error

	stopWatch func()
}

// customSink is a caller supplied sink that survives reloads
type customSink struct {
	name    string
	sink    Sink
	level   Level
	loggers []string
}

// Option configures a registry at construction
type Option func(*Registry)

// WithSink attaches a caller owned sink in addition to the configured sink table.
// The sink is kept across reloads and closed by Shutdown. An optional list of
// logger name prefixes restricts which records reach it.
func WithSink(name string, sink Sink, level Level, loggers ...string) Option {
	return func(r *Registry) {
		r.custom = append(r.custom, customSink{name: name, sink: sink, level: level, loggers: loggers})
	}
}

// WithDiagnostics redirects internal diagnostics to w regardless of internal_errors_to_stderr
func WithDiagnostics(w io.Writer) Option {
	return func(r *Registry) {
		r.diag = w
	}
}

// NewRegistry validates cfg, opens its sinks and starts the dispatcher.
// With sink_fallback enabled a sink that cannot be opened is replaced by a null
// sink and reported through SinkErrors; otherwise the open error is returned.
func NewRegistry(cfg *Config, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, fmtErrorf("configuration cannot be nil")
	}
	cfg = cfg.Clone()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		loggers: make(map[string]*Logger),
	}
	r.state.StartTime = time.Now()
	for _, opt := range opts {
		opt(r)
	}
	r.config.Store(cfg)

	p, err := r.newPipeline(cfg, 0)
	if err != nil {
		return nil, err
	}
	r.active.Store(p)
	p.start()
	return r, nil
}

func (r *Registry) getConfig() *Config {
	return r.config.Load()
}

// Config returns a copy of the current configuration
func (r *Registry) Config() *Config {
	return r.getConfig().Clone()
}

// Logger returns the logger for a dotted name, creating and caching it on first use.
// Its level starts at the effective level of the current configuration.
func (r *Registry) Logger(name string) *Logger {
	r.loggersMu.RLock()
	l, ok := r.loggers[name]
	r.loggersMu.RUnlock()
	if ok {
		return l
	}

	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	if l, ok = r.loggers[name]; ok {
		return l
	}
	l = newLogger(r, name, r.getConfig().EffectiveLevel(name))
	r.loggers[name] = l
	return l
}

// EffectiveLevel returns the threshold the current configuration assigns to name
func (r *Registry) EffectiveLevel(name string) Level {
	return r.getConfig().EffectiveLevel(name)
}

// Levels returns the current level of every cached logger
func (r *Registry) Levels() map[string]Level {
	r.loggersMu.RLock()
	defer r.loggersMu.RUnlock()
	levels := make(map[string]Level, len(r.loggers))
	for name, l := range r.loggers {
		levels[name] = l.Level()
	}
	return levels
}

// SinkErrors returns the open failures of the active sink table that were
// replaced by null sinks
func (r *Registry) SinkErrors() []error {
	r.sinkErrMu.Lock()
	defer r.sinkErrMu.Unlock()
	return append([]error(nil), r.sinkErrs...)
}

// Reload validates cfg, builds a new pipeline and installs it atomically.
// Producers that already acquired the old pipeline finish their enqueue; the
// old pipeline is then drained and shut down within its shutdown_timeout
// before the new one starts dispatching. Logger levels are recomputed for
// every cached logger.
func (r *Registry) Reload(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	cfg = cfg.Clone()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.initMu.Lock()
	defer r.initMu.Unlock()
	if r.state.ShutdownCalled.Load() {
		return fmtErrorf("cannot reload: %w", ErrShutdown)
	}

	old := r.active.Load()
	var base uint64
	if old != nil {
		// Leave room for producers still finishing on the old queue
		base = old.queue.position() + uint64(old.queue.Cap())
	}
	p, err := r.newPipeline(cfg, base)
	if err != nil {
		return err
	}

	r.statsMu.Lock()
	if old != nil {
		r.draining = append(r.draining, old)
	}
	r.active.Store(p)
	r.statsMu.Unlock()

	r.applyLevels(cfg)

	// New records queue up until the old pipeline has drained, so sinks shared
	// by both pipelines see records in order and from one goroutine at a time
	if old != nil {
		if err := r.retire(old, time.Now().Add(old.cfg.ShutdownTimeout)); err != nil {
			r.internalLog("error while retiring previous pipeline: %v\n", err)
		}
	}
	p.start()
	r.state.Reloads.Add(1)
	return nil
}

// ApplyOverride reloads the registry with "key=value" overrides applied to a
// copy of the current configuration
func (r *Registry) ApplyOverride(overrides ...string) error {
	cfg := r.getConfig().Clone()
	if err := cfg.ApplyOverride(overrides...); err != nil {
		return err
	}
	return r.Reload(cfg)
}

// SetLevels applies only the global level, logger overrides and call site
// options of cfg, leaving the pipeline untouched
func (r *Registry) SetLevels(cfg *Config) error {
	next := r.getConfig().Clone()
	next.Level = cfg.Level
	next.Caller = cfg.Caller
	next.TraceDepth = cfg.TraceDepth
	next.Loggers = make(map[string]Level, len(cfg.Loggers))
	for k, v := range cfg.Loggers {
		next.Loggers[k] = v
	}
	if err := next.Validate(); err != nil {
		return err
	}
	r.applyLevels(next)
	return nil
}

// applyLevels stores cfg and recomputes cached logger levels under the cache lock
// so a logger created concurrently sees either the old or the new configuration
func (r *Registry) applyLevels(cfg *Config) {
	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	r.config.Store(cfg)
	for name, l := range r.loggers {
		l.SetLevel(cfg.EffectiveLevel(name))
	}
}

// retire waits for in-flight producers, stops p and folds its counters into the totals
func (r *Registry) retire(p *pipeline, deadline time.Time) error {
	p.closed.Store(true)
	for p.inflight.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	err := p.stop(deadline)

	r.statsMu.Lock()
	for i, d := range r.draining {
		if d == p {
			r.draining = append(r.draining[:i], r.draining[i+1:]...)
			break
		}
	}
	if p.exited() {
		r.retired.add(p.totals())
	} else {
		// Still flushing past the grace period, keep it visible in Stats
		r.draining = append(r.draining, p)
	}
	r.statsMu.Unlock()
	return err
}

// newPipeline opens the sinks of cfg plus the custom sinks and wires them to writer groups
func (r *Registry) newPipeline(cfg *Config, base uint64) (*pipeline, error) {
	var bindings []*sinkBinding
	var openErrs []error

	for i := range cfg.Sinks {
		sc := &cfg.Sinks[i]
		s, err := newSink(sc)
		if err != nil {
			openErr := &SinkWriteError{Sink: sc.Name, Op: "open", Err: err}
			if !cfg.SinkFallback {
				for _, b := range bindings {
					_ = b.sink.Close()
				}
				return nil, openErr
			}
			r.internalLog("sink '%s' open failed: %v, replaced by a null sink\n", sc.Name, err)
			openErrs = append(openErrs, openErr)
			s = NullSink{}
		}
		bindings = append(bindings, &sinkBinding{
			name:    sc.Name,
			kind:    sc.Type,
			target:  sc.Target,
			sink:    s,
			level:   sc.Level,
			loggers: sc.Loggers,
			group:   assignGroup(sc.Writer, i, cfg.Writers),
			owned:   true,
			stats:   &sinkStats{},
		})
	}

	for j, cs := range r.custom {
		idx := len(cfg.Sinks) + j
		bindings = append(bindings, &sinkBinding{
			name:    cs.name,
			kind:    "custom",
			sink:    cs.sink,
			level:   cs.level,
			loggers: cs.loggers,
			group:   assignGroup(0, idx, cfg.Writers),
			stats:   &sinkStats{},
		})
	}

	r.sinkErrMu.Lock()
	r.sinkErrs = openErrs
	r.sinkErrMu.Unlock()

	return newPipeline(r, cfg, bindings, base), nil
}

// assignGroup maps a sink to a writer group: an explicit 1-based writer wins,
// otherwise sinks are spread by index
func assignGroup(writer, index, writers int) int {
	if writer > 0 && writer <= writers {
		return writer - 1
	}
	return index % writers
}

// internalLog handles writing internal diagnostics to the diagnostics writer,
// or stderr if enabled
func (r *Registry) internalLog(format string, args ...any) {
	w := r.diag
	if w == nil {
		if cfg := r.getConfig(); cfg == nil || !cfg.InternalErrorsToStderr {
			return
		}
		w = os.Stderr
	}

	// Ensure consistent "logpp: " prefix
	if !strings.HasPrefix(format, "logpp: ") {
		format = "logpp: " + format
	}

	r.diagMu.Lock()
	fmt.Fprintf(w, format, args...)
	r.diagMu.Unlock()
}
