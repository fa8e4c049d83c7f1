package logpp

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// memorySink keeps copies of every record it receives
type memorySink struct {
	mu       sync.Mutex
	records  []Record
	flushes  int
	closed   bool
	writeErr error
	gate     chan struct{} // When set, Write waits for it to close
}

func (s *memorySink) Write(records []Record) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	for _, r := range records {
		r.Fields = append([]Field(nil), r.Fields...)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *memorySink) Flush() error {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memorySink) snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *memorySink) messages() []string {
	var msgs []string
	for _, r := range s.snapshot() {
		msgs = append(msgs, r.Message)
	}
	return msgs
}

func (s *memorySink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// lockedBuffer collects diagnostics written from pipeline goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// testConfig returns a quiet configuration without configured sinks
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sinks = nil
	cfg.InternalErrorsToStderr = false
	cfg.FlushInterval = 10 * time.Millisecond
	return cfg
}

// createTestRegistry starts a registry whose records land in a memory sink
func createTestRegistry(t *testing.T, mutate func(cfg *Config), opts ...Option) (*Registry, *memorySink) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	sink := &memorySink{}
	opts = append([]Option{WithSink("memory", sink, LevelTrace)}, opts...)
	reg, err := NewRegistry(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Shutdown(time.Second) })
	return reg, sink
}

func TestLoggerLevelFilter(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("app")

	assert.Equal(t, LevelInfo, l.Level())
	assert.False(t, l.Enabled(LevelDebug))
	assert.True(t, l.Enabled(LevelCritical))
	assert.False(t, l.Enabled(LevelOff))

	l.Trace("trace")
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
	l.Critical("critical")
	l.LogFields(LevelOff, "never")
	require.NoError(t, reg.Flush(time.Second))

	assert.Equal(t, []string{"info", "warn", "error", "critical"}, sink.messages())

	l.SetLevel(LevelTrace)
	l.Trace("now visible")
	require.NoError(t, reg.Flush(time.Second))
	assert.Contains(t, sink.messages(), "now visible")
}

func TestLoggerEffectiveLevels(t *testing.T) {
	reg, _ := createTestRegistry(t, func(cfg *Config) {
		cfg.Level = LevelWarn
		cfg.Loggers = map[string]Level{"app": LevelInfo, "app.db": LevelTrace}
	})

	assert.Equal(t, LevelWarn, reg.Logger("web").Level())
	assert.Equal(t, LevelInfo, reg.Logger("app").Level())
	assert.Equal(t, LevelInfo, reg.Logger("app.http").Level())
	assert.Equal(t, LevelTrace, reg.Logger("app.db.pool").Level())
	assert.Equal(t, LevelWarn, reg.Logger("application").Level())

	levels := reg.Levels()
	assert.Equal(t, LevelTrace, levels["app.db.pool"])
	assert.Len(t, levels, 5)
}

func TestLoggerNamed(t *testing.T) {
	reg, _ := createTestRegistry(t, nil)

	app := reg.Logger("app")
	assert.Same(t, app, reg.Logger("app"))
	assert.Same(t, reg.Logger("app.db"), app.Named("db"))
	assert.Equal(t, "app.db", app.Named("db").Name())
	assert.Equal(t, "db", reg.Logger("").Named("db").Name())
	assert.Same(t, reg, app.Registry())
}

func TestLoggerWith(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	parent := reg.Logger("svc")
	child := parent.With(String("request_id", "r1"))
	grandchild := child.With(Int("attempt", 2))

	assert.Same(t, parent, parent.With())
	assert.Equal(t, "svc", child.Name())

	parent.Info("parent")
	child.Info("child", Bool("ok", true))
	grandchild.Info("grandchild")

	// Children share the level of their parent
	parent.SetLevel(LevelError)
	assert.Equal(t, LevelError, grandchild.Level())
	child.Info("suppressed")
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 3)
	assert.Empty(t, records[0].Fields)

	require.Len(t, records[1].Fields, 2)
	assert.Equal(t, "request_id", records[1].Fields[0].Key)
	assert.Equal(t, "ok", records[1].Fields[1].Key)

	require.Len(t, records[2].Fields, 2)
	assert.Equal(t, "r1", records[2].Fields[0].Value())
	assert.Equal(t, "2", records[2].Fields[1].Value())
}

func TestLoggerCallSiteFieldsCopied(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("svc")

	fields := []Field{String("k", "before")}
	l.Info("msg", fields...)
	fields[0] = String("k", "after")
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "before", records[0].Fields[0].Value())
}

func TestLoggerFormatted(t *testing.T) {
	reg, sink := createTestRegistry(t, func(cfg *Config) { cfg.Level = LevelTrace })
	l := reg.Logger("fmt")

	l.Tracef("t {}", 1)
	l.Debugf("d {}", 2)
	l.Infof("user {} logged in from {}", "bob", "10.0.0.1")
	l.Warnf("w {}", 3.5)
	l.Errorf("e {}", false)
	l.Criticalf("c {}", "x")
	l.Log(LevelInfo, "{{literal}} {}", "braces")
	require.NoError(t, reg.Flush(time.Second))

	assert.Equal(t, []string{
		"t 1", "d 2", "user bob logged in from 10.0.0.1", "w 3.5", "e false", "c x", "{literal} braces",
	}, sink.messages())
	assert.Zero(t, reg.Stats().FormatErrors)
}

func TestLoggerFormatError(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("fmt")

	l.Infof("{} and {}", "only one")
	l.Warnf("unbalanced { brace", 1)
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, "{} and {}", records[0].Message)
	assert.Equal(t, LevelInfo, records[0].Level)
	f, ok := records[0].Field("format_error")
	require.True(t, ok)
	assert.Contains(t, f.Value(), "2 placeholders but 1 arguments")

	assert.Equal(t, "unbalanced { brace", records[1].Message)
	assert.Equal(t, uint64(2), reg.Stats().FormatErrors)
}

func TestLoggerSurvivesPanickingMethods(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("panics")
	var missing *labelStringer

	require.NotPanics(t, func() {
		l.Infof("value {}", missing)
		l.Info("field", Any("v", missing), Stringer("s", explodingStringer{}))
		l.Warnf("value {}", explodingStringer{})
		l.Error("failed", Err(explodingError{}))
	})
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 4)
	assert.Equal(t, "value <nil>", records[0].Message)

	v, _ := records[1].Field("v")
	assert.Equal(t, "<nil>", v.Value())
	s, _ := records[1].Field("s")
	assert.Equal(t, "PANIC=String method: boom", s.Value())

	assert.Equal(t, "value {}", records[2].Message)
	fe, ok := records[2].Field("format_error")
	require.True(t, ok)
	assert.Contains(t, fe.Value(), "panicked in String method: boom")

	e, _ := records[3].Field("error")
	assert.Equal(t, "PANIC=Error method: kaput", e.Value())
	assert.Equal(t, uint64(1), reg.Stats().FormatErrors)
}

func TestLoggerCaller(t *testing.T) {
	reg, sink := createTestRegistry(t, func(cfg *Config) { cfg.Caller = true })
	l := reg.Logger("calls")

	_, _, line, ok := runtime.Caller(0)
	require.True(t, ok)
	l.Info("plain")
	l.Infof("formatted {}", 1)
	l.With(String("k", "v")).Warn("child")
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, "logger_test.go:"+strconv.Itoa(line+1+i), rec.Caller, rec.Message)
		_, ok := rec.Field("trace")
		assert.False(t, ok)
	}

	// Level updates also carry the option
	next := reg.Config()
	next.Caller = false
	require.NoError(t, reg.SetLevels(next))
	l.Info("quiet")
	require.NoError(t, reg.Flush(time.Second))
	records = sink.snapshot()
	require.Len(t, records, 4)
	assert.Empty(t, records[3].Caller)
}

func TestLoggerTraceMethods(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("trace")

	fields := make([]Field, 1, 4)
	fields[0] = Int("n", 1)
	l.InfoTrace(1, "one", fields...)
	l.WarnTrace(2, "two")
	l.DebugTrace(0, "none")
	l.ErrorTrace(99, "clamped")
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 4)

	tr, ok := records[0].Field("trace")
	require.True(t, ok)
	assert.Equal(t, "TestLoggerTraceMethods", tr.Value())
	assert.Len(t, records[0].Fields, 2)
	assert.Empty(t, fields[:2][1].Key, "caller's backing array is untouched")
	assert.Empty(t, records[0].Caller)

	tr, _ = records[1].Field("trace")
	assert.Equal(t, "tRunner -> TestLoggerTraceMethods", tr.Value())

	_, ok = records[2].Field("trace")
	assert.False(t, ok)

	tr, _ = records[3].Field("trace")
	assert.True(t, strings.HasSuffix(tr.Value(), "tRunner -> TestLoggerTraceMethods"), tr.Value())
	assert.LessOrEqual(t, len(strings.Split(tr.Value(), " -> ")), maxTraceDepth)
}

func TestLoggerTraceDepthOption(t *testing.T) {
	reg, sink := createTestRegistry(t, func(cfg *Config) { cfg.TraceDepth = 1 })
	l := reg.Logger("trace")

	l.Info("plain")
	l.Infof("formatted {}", 2)
	func() {
		l.Warn("closure")
	}()
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 3)
	for _, rec := range records[:2] {
		tr, ok := rec.Field("trace")
		require.True(t, ok, rec.Message)
		assert.Equal(t, "TestLoggerTraceDepthOption", tr.Value())
	}
	tr, _ := records[2].Field("trace")
	assert.Equal(t, "(anonymous in logpp.TestLoggerTraceDepthOption)", tr.Value())
}

func TestFunctionName(t *testing.T) {
	assert.Equal(t, "Handle", functionName("github.com/acme/svc/http.(*Server).Handle"))
	assert.Equal(t, "(anonymous in svc.run)", functionName("github.com/acme/svc.run.func2"))
	assert.Equal(t, "funcName", functionName("main.funcName"))
	assert.Equal(t, "main", functionName("main.main"))
}

type countingStringer struct{ calls *atomic.Int32 }

func (c countingStringer) String() string {
	c.calls.Add(1)
	return "counted"
}

func TestLoggerDisabledLevelSkipsFormatting(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("lazy")
	calls := &atomic.Int32{}
	arg := countingStringer{calls: calls}

	l.Debugf("value {}", arg)
	l.Tracef("value {}", arg)
	assert.Zero(t, calls.Load())

	l.Infof("value {}", arg)
	require.NoError(t, reg.Flush(time.Second))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"value counted"}, sink.messages())

	allocs := testing.AllocsPerRun(100, func() {
		l.Debug("disabled")
	})
	assert.Zero(t, allocs)
}

func TestLoggerWithContext(t *testing.T) {
	reg, sink := createTestRegistry(t, nil)
	l := reg.Logger("traced")

	assert.Same(t, l, l.WithContext(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.WithContext(ctx).Info("in span")
	require.NoError(t, reg.Flush(time.Second))

	records := sink.snapshot()
	require.Len(t, records, 1)
	traceID, ok := records[0].Field("trace_id")
	require.True(t, ok)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", traceID.Value())
	spanID, ok := records[0].Field("span_id")
	require.True(t, ok)
	assert.Equal(t, "a1a2a3a4a5a6a7a8", spanID.Value())
}

func TestLoggerConcurrentProducers(t *testing.T) {
	reg, sink := createTestRegistry(t, func(cfg *Config) {
		cfg.QueueCapacity = 256
		cfg.BlockTimeout = 0
	})

	const producers, perProducer = 8, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			l := reg.Logger("producer").With(Int("p", p))
			for i := 0; i < perProducer; i++ {
				l.Info("tick", Int("i", i))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, reg.Flush(5*time.Second))

	records := sink.snapshot()
	require.Len(t, records, producers*perProducer)

	next := make(map[string]int)
	var lastSeq uint64
	for idx, r := range records {
		p, _ := r.Field("p")
		i, _ := r.Field("i")
		require.Equal(t, next[p.Value()], atoiOrFail(t, i.Value()), "producer %s out of order", p.Value())
		next[p.Value()]++
		if idx > 0 {
			require.Greater(t, r.Seq, lastSeq)
		}
		lastSeq = r.Seq
	}

	s := reg.Stats()
	assert.Equal(t, uint64(producers*perProducer), s.Enqueued)
	assert.Equal(t, uint64(producers*perProducer), s.Dispatched)
	assert.Zero(t, s.Dropped())
}

func atoiOrFail(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
