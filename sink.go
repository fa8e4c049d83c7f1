package logpp

import (
	"io"
	"os"
	"sync/atomic"
)

// Sink consumes batches of records. Each sink is driven by exactly one writer
// group, so implementations need no locking against concurrent Write calls.
// A sink must not retain the records or their fields after Write returns.
type Sink interface {
	Write(records []Record) error
	Flush() error
	Close() error
}

// rotator is implemented by sinks that count rotation events
type rotator interface {
	Rotations() uint64
}

// reopener is implemented by sinks holding a path that another pipeline
// generation may have rotated away while this one was waiting to start
type reopener interface {
	reopen() error
}

// sinkStats are written by the owning writer group and read by Stats
type sinkStats struct {
	written atomic.Uint64
	errors  atomic.Uint64
	lastErr atomic.Pointer[SinkWriteError]
}

// sinkBinding attaches routing rules and statistics to a sink instance
type sinkBinding struct {
	name     string
	kind     string
	target   string
	sink     Sink
	level    Level
	loggers  []string
	group    int
	owned    bool // Closed when its pipeline shuts down
	failing  bool // Inside an error streak, touched only by the owning group
	stats    *sinkStats
	filtered []Record
}

// admits reports whether the record passes the sink's level and logger filters
func (b *sinkBinding) admits(r *Record) bool {
	if r.Level < b.level {
		return false
	}
	if len(b.loggers) == 0 {
		return true
	}
	for _, prefix := range b.loggers {
		if matchesPrefix(r.Logger, prefix) {
			return true
		}
	}
	return false
}

// selectRecords returns the admitted subset, reusing the binding's scratch slice
func (b *sinkBinding) selectRecords(records []Record) []Record {
	all := true
	for i := range records {
		if !b.admits(&records[i]) {
			all = false
			break
		}
	}
	if all {
		return records
	}

	b.filtered = b.filtered[:0]
	for i := range records {
		if b.admits(&records[i]) {
			b.filtered = append(b.filtered, records[i])
		}
	}
	return b.filtered
}

// release drops references held by the scratch slice
func (b *sinkBinding) release() {
	clear(b.filtered)
	b.filtered = b.filtered[:0]
}

// newSink opens the sink described by sc
func newSink(sc *SinkConfig) (Sink, error) {
	switch sc.Type {
	case SinkConsole:
		return newConsoleSink(sc, os.Stdout, os.Stderr)
	case SinkFile:
		return newFileSink(sc)
	case SinkRollingFile:
		return newRollingFileSink(sc)
	case SinkNull:
		return NullSink{}, nil
	default:
		return nil, fmtErrorf("unknown sink type '%s'", sc.Type)
	}
}

// WriterSink adapts an io.Writer into a sink using the given encoder.
// It is meant for custom destinations registered with WithSink.
type WriterSink struct {
	w   io.Writer
	enc Encoder
	buf []byte
}

// NewWriterSink creates a sink writing encoded records to w; a nil encoder uses the default pattern
func NewWriterSink(w io.Writer, enc Encoder) *WriterSink {
	if enc == nil {
		enc, _ = compilePattern(defaultPattern)
	}
	return &WriterSink{w: w, enc: enc}
}

func (s *WriterSink) Write(records []Record) error {
	s.buf = s.buf[:0]
	for i := range records {
		s.buf = s.enc.AppendRecord(s.buf, &records[i])
	}
	_, err := s.w.Write(s.buf)
	return err
}

func (s *WriterSink) Flush() error {
	if f, ok := s.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (s *WriterSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewEncoder returns the encoder for a format name, with pattern used by the pattern format
func NewEncoder(format, pattern string) (Encoder, error) {
	return newEncoder(format, pattern)
}
