package logpp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	t.Run("successful build returns configured registry", func(t *testing.T) {
		dir := t.TempDir()
		sink := &memorySink{}

		reg, err := NewBuilder().
			LevelString("debug").
			LoggerLevel("app.db", "warn").
			QueueCapacity(2048).
			OverflowPolicy(PolicyDropOldest).
			BlockTimeout(50 * time.Millisecond).
			BatchSize(64).
			Writers(2).
			FlushInterval(20 * time.Millisecond).
			ShutdownTimeout(time.Second).
			Heartbeat(time.Minute).
			InternalErrorsToStderr(false).
			SinkFallback(false).
			Caller(true).
			TraceDepth(2).
			File(filepath.Join(dir, "app.log")).
			RollingFile(filepath.Join(dir, "roll.log"), "10MB", "day").
			Null().
			Option(WithSink("memory", sink, LevelTrace)).
			Build()
		require.NoError(t, err)
		defer reg.Shutdown()

		cfg := reg.Config()
		assert.Equal(t, LevelDebug, cfg.Level)
		assert.Equal(t, LevelWarn, cfg.Loggers["app.db"])
		assert.Equal(t, 2048, cfg.QueueCapacity)
		assert.Equal(t, PolicyDropOldest, cfg.OverflowPolicy)
		assert.Equal(t, 50*time.Millisecond, cfg.BlockTimeout)
		assert.Equal(t, 64, cfg.BatchSize)
		assert.Equal(t, 2, cfg.Writers)
		assert.Equal(t, 20*time.Millisecond, cfg.FlushInterval)
		assert.Equal(t, time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
		assert.False(t, cfg.InternalErrorsToStderr)
		assert.False(t, cfg.SinkFallback)
		assert.True(t, cfg.Caller)
		assert.Equal(t, 2, cfg.TraceDepth)

		require.Len(t, cfg.Sinks, 3, "the default console sink is replaced")
		assert.Equal(t, "file", cfg.Sinks[0].Name)
		assert.Equal(t, "rolling_file", cfg.Sinks[1].Name)
		assert.Equal(t, int64(10*1024*1024), cfg.Sinks[1].MaxSize)
		assert.Equal(t, "day", cfg.Sinks[1].Interval)
		assert.Equal(t, SinkNull, cfg.Sinks[2].Type)

		reg.Logger("app").Debug("through the builder")
		require.NoError(t, reg.Flush(time.Second))
		assert.Equal(t, []string{"through the builder"}, sink.messages())
	})

	t.Run("default keeps the console sink", func(t *testing.T) {
		cfg, err := NewBuilder().Level(LevelWarn).Config()
		require.NoError(t, err)
		require.Len(t, cfg.Sinks, 1)
		assert.Equal(t, SinkConsole, cfg.Sinks[0].Type)
		assert.Equal(t, LevelWarn, cfg.Level)
	})

	t.Run("duplicate sink types get distinct names", func(t *testing.T) {
		cfg, err := NewBuilder().Console(TargetStdout).Console(TargetStderr).Config()
		require.NoError(t, err)
		require.Len(t, cfg.Sinks, 2)
		assert.Equal(t, "console", cfg.Sinks[0].Name)
		assert.Equal(t, "console-1", cfg.Sinks[1].Name)
		assert.Equal(t, TargetStderr, cfg.Sinks[1].Target)
	})

	t.Run("builder error accumulation", func(t *testing.T) {
		reg, err := NewBuilder().
			LevelString("invalid-level-string").
			LoggerLevel("app", "debug").
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid level name")
		assert.Nil(t, reg)
	})

	t.Run("bad logger level names the key", func(t *testing.T) {
		_, err := NewBuilder().LoggerLevel("app.db", "loud").Config()
		requireConfigError(t, err, `loggers."app.db"`)
	})

	t.Run("bad rolling size names the sink", func(t *testing.T) {
		_, err := NewBuilder().File("/tmp/a.log").RollingFile("/tmp/b.log", "huge", "").Config()
		requireConfigError(t, err, "sinks[1].max_size")

		_, err = NewBuilder().RollingFile("/tmp/b.log", "huge", "").Config()
		requireConfigError(t, err, "sinks[0].max_size")
	})

	t.Run("validation error", func(t *testing.T) {
		reg, err := NewBuilder().Writers(0).Build()
		requireConfigError(t, err, "writers")
		assert.Nil(t, reg)
	})
}
