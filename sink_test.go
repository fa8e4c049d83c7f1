package logpp

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageRecords(n int, level Level, at time.Time) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Time:    at,
			Level:   level,
			Logger:  "test",
			Message: fmt.Sprintf("record-%02d", i),
			Seq:     uint64(i),
		}
	}
	return records
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func rollingConfig(path string) *SinkConfig {
	sc := DefaultSinkConfig(SinkRollingFile)
	sc.Target = path
	sc.Pattern = "%v"
	return &sc
}

func TestFileSinkWrite(t *testing.T) {
	for _, flush := range []string{FlushBatch, FlushRecord} {
		t.Run(flush, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "app.log")
			sc := DefaultSinkConfig(SinkFile)
			sc.Target = path
			sc.Pattern = "%v"
			sc.Flush = flush

			s, err := newFileSink(&sc)
			require.NoError(t, err)

			require.NoError(t, s.Write(messageRecords(3, LevelInfo, time.Now())))
			// Both policies hand each batch to the OS before returning
			assert.Equal(t, "record-00\nrecord-01\nrecord-02\n", readFile(t, path))
			assert.Equal(t, int64(30), s.Size())

			require.NoError(t, s.Close())
			require.NoError(t, s.Close())
			assert.Error(t, s.Write(messageRecords(1, LevelInfo, time.Now())))
		})
	}
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "existing\n")

	sc := DefaultSinkConfig(SinkFile)
	sc.Target = path
	sc.Pattern = "%v"
	s, err := newFileSink(&sc)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, int64(9), s.Size())
	require.NoError(t, s.Write(messageRecords(1, LevelInfo, time.Now())))
	assert.Equal(t, "existing\nrecord-00\n", readFile(t, path))
}

func TestFileSinkReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	sc := DefaultSinkConfig(SinkFile)
	sc.Target = path
	sc.Pattern = "%v"
	s, err := newFileSink(&sc)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(messageRecords(1, LevelInfo, time.Now())))
	require.NoError(t, s.reopen(), "reopen of an unchanged file is a no-op")

	moved := filepath.Join(dir, "moved.log")
	require.NoError(t, os.Rename(path, moved))
	require.NoError(t, s.reopen())
	require.NoError(t, s.Write(messageRecords(2, LevelInfo, time.Now())[1:]))

	assert.Equal(t, "record-00\n", readFile(t, moved))
	assert.Equal(t, "record-01\n", readFile(t, path))
}

func TestRollingFileSinkSizeRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sc := rollingConfig(path)
	sc.MaxSize = 50 // Five 10-byte records per file

	s, err := newRollingFileSink(sc)
	require.NoError(t, err)
	defer s.Close()

	records := messageRecords(8, LevelInfo, time.Now())
	require.NoError(t, s.Write(records))

	assert.Equal(t, uint64(1), s.Rotations())
	assert.Equal(t, path+".0", s.lastArchive)

	archived := lines(readFile(t, path+".0"))
	current := lines(readFile(t, path))
	assert.Equal(t, []string{"record-00", "record-01", "record-02", "record-03", "record-04"}, archived)
	assert.Equal(t, []string{"record-05", "record-06", "record-07"}, current)
}

func TestRollingFileSinkTotalSizeGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sc := rollingConfig(path)
	sc.MaxSize = 50
	sc.MaxTotalSize = 120

	s, err := newRollingFileSink(sc)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(messageRecords(20, LevelInfo, time.Now())))
	assert.Equal(t, uint64(3), s.Rotations())

	// The third rotation pushes archives to 150 bytes, dropping the oldest
	assert.Equal(t, []string{"record-10", "record-11", "record-12", "record-13", "record-14"}, lines(readFile(t, path+".0")))
	assert.Equal(t, []string{"record-05", "record-06", "record-07", "record-08", "record-09"}, lines(readFile(t, path+".1")))
	assert.NoFileExists(t, path+".2")
	assert.Equal(t, []string{"record-15", "record-16", "record-17", "record-18", "record-19"}, lines(readFile(t, path)))
}

func TestRollingFileSinkOversizedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sc := rollingConfig(path)
	sc.MaxSize = 5

	s, err := newRollingFileSink(sc)
	require.NoError(t, err)
	defer s.Close()

	// A record larger than max_size lands in a fresh file whole
	require.NoError(t, s.Write(messageRecords(2, LevelInfo, time.Now())))
	assert.Equal(t, uint64(1), s.Rotations())
	assert.Equal(t, "record-00\n", readFile(t, path+".0"))
	assert.Equal(t, "record-01\n", readFile(t, path))
}

func TestRollingFileSinkIntervalRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sc := rollingConfig(path)
	sc.Interval = "hour"
	sc.Compress = CompressGzip

	s, err := newRollingFileSink(sc)
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Write(messageRecords(2, LevelInfo, now)))
	assert.Zero(t, s.Rotations())

	later := messageRecords(1, LevelInfo, now.Add(2*time.Hour))
	require.NoError(t, s.Write(later))
	assert.Equal(t, uint64(1), s.Rotations())
	assert.Equal(t, path+".0.gz", s.lastArchive)
	assert.Equal(t, "record-00\n", readFile(t, path))

	// The boundary moved past the rotating record
	require.NoError(t, s.Write(messageRecords(1, LevelInfo, now.Add(2*time.Hour))))
	assert.Equal(t, uint64(1), s.Rotations())
}

func TestRotationInterval(t *testing.T) {
	at := time.Date(2024, 1, 31, 13, 45, 30, 0, time.UTC)
	tests := []struct {
		interval string
		want     time.Time
	}{
		{"minute", time.Date(2024, 1, 31, 13, 46, 0, 0, time.UTC)},
		{"hour", time.Date(2024, 1, 31, 14, 0, 0, 0, time.UTC)},
		{"day", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"15m", time.Date(2024, 1, 31, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			ri, err := parseInterval(tt.interval)
			require.NoError(t, err)
			assert.True(t, ri.enabled())
			assert.Equal(t, tt.want, ri.next(at))
		})
	}

	ri, err := parseInterval("")
	require.NoError(t, err)
	assert.False(t, ri.enabled())

	for _, bad := range []string{"fortnight", "-1h", "0s"} {
		_, err := parseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func newTestConsole(t *testing.T, mutate func(sc *SinkConfig)) (*ConsoleSink, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	sc := DefaultSinkConfig(SinkConsole)
	sc.Pattern = "[%l] %v"
	if mutate != nil {
		mutate(&sc)
	}
	var stdout, stderr bytes.Buffer
	s, err := newConsoleSink(&sc, &stdout, &stderr)
	require.NoError(t, err)
	return s, &stdout, &stderr
}

func TestConsoleSinkTargets(t *testing.T) {
	batch := []Record{
		{Level: LevelDebug, Message: "d"},
		{Level: LevelInfo, Message: "i"},
		{Level: LevelWarn, Message: "w"},
		{Level: LevelCritical, Message: "c"},
	}

	tests := []struct {
		target  string
		wantOut string
		wantErr string
	}{
		{TargetSplit, "[debug] d\n[info] i\n", "[warn] w\n[critical] c\n"},
		{TargetStdout, "[debug] d\n[info] i\n[warn] w\n[critical] c\n", ""},
		{TargetStderr, "", "[debug] d\n[info] i\n[warn] w\n[critical] c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			s, stdout, stderr := newTestConsole(t, func(sc *SinkConfig) { sc.Target = tt.target })
			require.NoError(t, s.Write(batch))
			assert.Equal(t, tt.wantOut, stdout.String())
			assert.Equal(t, tt.wantErr, stderr.String())
		})
	}
}

func TestConsoleSinkColor(t *testing.T) {
	batch := []Record{{Level: LevelInfo, Message: "i"}, {Level: LevelError, Message: "e"}}

	s, stdout, stderr := newTestConsole(t, func(sc *SinkConfig) { sc.Color = ColorAlways })
	require.NoError(t, s.Write(batch))
	assert.Equal(t, "\x1b[36m[info] i\x1b[0m\n", stdout.String())
	assert.Equal(t, "\x1b[31m[error] e\x1b[0m\n", stderr.String())

	s, stdout, _ = newTestConsole(t, func(sc *SinkConfig) {
		sc.Color = ColorAlways
		sc.Theme = map[string]string{"info": "blue"}
	})
	require.NoError(t, s.Write(batch[:1]))
	assert.Equal(t, "\x1b[34m[info] i\x1b[0m\n", stdout.String())

	// Buffers are not terminals, so auto disables color
	s, stdout, _ = newTestConsole(t, func(sc *SinkConfig) { sc.Color = ColorAuto })
	require.NoError(t, s.Write(batch[:1]))
	assert.Equal(t, "[info] i\n", stdout.String())

	s, stdout, _ = newTestConsole(t, func(sc *SinkConfig) { sc.Color = ColorNever })
	require.NoError(t, s.Write(batch[:1]))
	assert.Equal(t, "[info] i\n", stdout.String())
}

func TestConsoleSinkBadTheme(t *testing.T) {
	for _, theme := range []map[string]string{{"loud": "red"}, {"info": "chartreuse"}, {"off": "red"}} {
		sc := DefaultSinkConfig(SinkConsole)
		sc.Theme = theme
		_, err := newConsoleSink(&sc, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Error(t, err, "%v", theme)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "plain")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo terminal unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	assert.True(t, isTerminal(tty))
	assert.True(t, resolveColor(ColorAuto, tty))
	assert.False(t, resolveColor(ColorNever, tty))
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, nil)
	require.NoError(t, s.Write([]Record{*sampleRecord()}))
	assert.Equal(t, "2024-01-02 03:04:05 [info] (app.db) query done - table=users rows=3\n", buf.String())
	assert.NoError(t, s.Flush())
	assert.NoError(t, s.Close())

	boom := errors.New("boom")
	s = NewWriterSink(failingWriter{err: boom}, nil)
	assert.ErrorIs(t, s.Write([]Record{*sampleRecord()}), boom)
}

func TestNewSink(t *testing.T) {
	sc := DefaultSinkConfig(SinkNull)
	s, err := newSink(&sc)
	require.NoError(t, err)
	assert.IsType(t, NullSink{}, s)
	assert.NoError(t, s.Write(messageRecords(3, LevelInfo, time.Now())))

	sc = SinkConfig{Type: "carrier-pigeon"}
	_, err = newSink(&sc)
	assert.Error(t, err)
}

func TestSinkBindingSelect(t *testing.T) {
	b := &sinkBinding{level: LevelWarn, loggers: []string{"app.db"}}
	records := []Record{
		{Level: LevelError, Logger: "app.db"},
		{Level: LevelInfo, Logger: "app.db"},
		{Level: LevelError, Logger: "app.dbx"},
		{Level: LevelCritical, Logger: "app.db.pool"},
		{Level: LevelError, Logger: "web"},
	}

	selected := b.selectRecords(records)
	require.Len(t, selected, 2)
	assert.Equal(t, "app.db", selected[0].Logger)
	assert.Equal(t, "app.db.pool", selected[1].Logger)
	b.release()

	all := &sinkBinding{level: LevelTrace}
	assert.Len(t, all.selectRecords(records), len(records))
}
