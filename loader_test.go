package logpp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigMinimal(t *testing.T) {
	cfg, err := ParseConfig([]byte(`level = "debug"`))
	require.NoError(t, err)

	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, 8192, cfg.QueueCapacity)
	require.Len(t, cfg.Sinks, 1, "an omitted sink table keeps the default console sink")
	assert.Equal(t, SinkConsole, cfg.Sinks[0].Type)

	cfg, err = ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, cfg.Level)
}

func TestParseConfigFull(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
level = "warning"
queue_capacity = 1000
overflow_policy = "drop-oldest"
block_timeout = "250ms"
batch_size = 32
writers = 2
flush_interval = 500
shutdown_timeout = "3s"
heartbeat_interval = "1m"
internal_errors_to_stderr = false
sink_fallback = false
caller = true
trace_depth = 2

[loggers]
"app" = "info"
"app.db" = "trace"

[[sinks]]
type = "console"
target = "stderr"
color = "never"
pattern = "%H:%M:%S %v"
level = "error"

[sinks.theme]
error = "magenta"

[[sinks]]
name = "archive"
type = "rolling_file"
target = "/var/log/app/app.log"
format = "json"
max_size = "10MB"
interval = 3600
archive = "timestamp"
archive_layout = "2006-01-02"
max_files = 7
compress = "brotli"
max_age = "168h"
max_total_size = "1GB"
min_disk_free = 524288000
loggers = ["app", "jobs"]
writer = 2
`))
	require.NoError(t, err)

	assert.Equal(t, LevelWarn, cfg.Level)
	assert.Equal(t, map[string]Level{"app": LevelInfo, "app.db": LevelTrace}, cfg.Loggers)
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, PolicyDropOldest, cfg.OverflowPolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.BlockTimeout)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 2, cfg.Writers)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval, "integers are milliseconds")
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
	assert.False(t, cfg.InternalErrorsToStderr)
	assert.False(t, cfg.SinkFallback)
	assert.True(t, cfg.Caller)
	assert.Equal(t, 2, cfg.TraceDepth)

	require.Len(t, cfg.Sinks, 2)
	console := cfg.Sinks[0]
	assert.Equal(t, "console", console.Name)
	assert.Equal(t, TargetStderr, console.Target)
	assert.Equal(t, ColorNever, console.Color)
	assert.Equal(t, FormatPattern, console.Format)
	assert.Equal(t, "%H:%M:%S %v", console.Pattern)
	assert.Equal(t, LevelError, console.Level)
	assert.Equal(t, map[string]string{"error": "magenta"}, console.Theme)

	roll := cfg.Sinks[1]
	assert.Equal(t, "archive", roll.Name)
	assert.Equal(t, SinkRollingFile, roll.Type)
	assert.Equal(t, FormatJSON, roll.Format)
	assert.Equal(t, int64(10*1024*1024), roll.MaxSize)
	assert.Equal(t, "1h0m0s", roll.Interval, "integer intervals are seconds")
	assert.Equal(t, ArchiveTimestamp, roll.Archive)
	assert.Equal(t, "2006-01-02", roll.ArchiveLayout)
	assert.Equal(t, 7, roll.MaxFiles)
	assert.Equal(t, CompressBrotli, roll.Compress)
	assert.Equal(t, 168*time.Hour, roll.MaxAge)
	assert.Equal(t, int64(1024*1024*1024), roll.MaxTotalSize)
	assert.Equal(t, int64(500*1024*1024), roll.MinDiskFree)
	assert.Equal(t, []string{"app", "jobs"}, roll.Loggers)
	assert.Equal(t, 2, roll.Writer)
	assert.Equal(t, LevelTrace, roll.Level, "omitted sink level admits everything")
}

func TestParseConfigEmptySinkTable(t *testing.T) {
	cfg, err := ParseConfig([]byte("sinks = []"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Sinks)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"unknown key", `bogus = 1`, "bogus"},
		{"bad level", `level = "loud"`, "level"},
		{"level not a string", `level = 3`, "level"},
		{"bad logger level", "[loggers]\n\"app.db\" = \"loud\"", `loggers."app.db"`},
		{"bad duration", `block_timeout = "soon"`, "block_timeout"},
		{"bool as string", `sink_fallback = "yes"`, "sink_fallback"},
		{"fractional integer", `batch_size = 1.5`, "batch_size"},
		{"bad policy", `overflow_policy = "pray"`, "overflow_policy"},
		{"zero writers", `writers = 0`, "writers"},
		{"trace depth too deep", `trace_depth = 12`, "trace_depth"},
		{"bogus sink type", "[[sinks]]\ntype = \"carrier-pigeon\"", "sinks[0].type"},
		{"missing sink type", "[[sinks]]\ntarget = \"stdout\"", "sinks[0].type"},
		{"bad size", "[[sinks]]\ntype = \"rolling_file\"\ntarget = \"a.log\"\nmax_size = \"lots\"", "sinks[0].max_size"},
		{"overflowing size", "[[sinks]]\ntype = \"rolling_file\"\ntarget = \"a.log\"\nmax_size = \"17179869185GB\"", "sinks[0].max_size"},
		{"negative disk guard", "[[sinks]]\ntype = \"rolling_file\"\ntarget = \"a.log\"\nmax_size = 10\nmin_disk_free = -1", "sinks[0].min_disk_free"},
		{"bad max age", "[[sinks]]\ntype = \"rolling_file\"\ntarget = \"a.log\"\nmax_size = 10\nmax_age = \"a week\"", "sinks[0].max_age"},
		{"bad sink level", "[[sinks]]\ntype = \"null\"\nlevel = \"loud\"", "sinks[0].level"},
		{"bad logger entry", "[[sinks]]\ntype = \"null\"\nloggers = [1]", "sinks[0].loggers[0]"},
		{"bad pattern", "[[sinks]]\ntype = \"console\"\npattern = \"%Q\"", "sinks[0].pattern"},
		{"missing file target", "[[sinks]]\ntype = \"file\"", "sinks[0].target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			requireConfigError(t, err, tt.path)
		})
	}
}

func TestParseConfigMalformed(t *testing.T) {
	_, err := ParseConfig([]byte(`level = `))
	assert.ErrorIs(t, err, ErrConfig)

	_, err = ParseYAMLConfig([]byte("level: [unclosed"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestParseYAMLConfig(t *testing.T) {
	cfg, err := ParseYAMLConfig([]byte(`
level: debug
queue_capacity: 512
block_timeout: 20
loggers:
  app.db: error
sinks:
  - type: file
    target: /tmp/app.log
    format: logfmt
    flush: record
  - type: rolling_file
    target: /tmp/roll.log
    max_size: 2048
    compress: gzip
    max_age: 3600000
    max_total_size: 64MB
`))
	require.NoError(t, err)

	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, 512, cfg.QueueCapacity)
	assert.Equal(t, 20*time.Millisecond, cfg.BlockTimeout)
	assert.Equal(t, LevelError, cfg.Loggers["app.db"])
	require.Len(t, cfg.Sinks, 2)
	assert.Equal(t, FlushRecord, cfg.Sinks[0].Flush)
	assert.Equal(t, FormatLogfmt, cfg.Sinks[0].Format)
	assert.Equal(t, int64(2048), cfg.Sinks[1].MaxSize)
	assert.Equal(t, CompressGzip, cfg.Sinks[1].Compress)
	assert.Equal(t, ArchiveIncremental, cfg.Sinks[1].Archive)
	assert.Equal(t, time.Hour, cfg.Sinks[1].MaxAge, "integer durations are milliseconds")
	assert.Equal(t, int64(64*1024*1024), cfg.Sinks[1].MaxTotalSize)

	_, err = ParseYAMLConfig([]byte("lvl: debug"))
	assert.ErrorIs(t, err, ErrConfig, "unknown keys are rejected")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "logpp.toml")
	writeFile(t, tomlPath, "level = \"error\"\n")
	cfg, err := LoadConfigFile(tomlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, LevelError, cfg.Level)

	yamlPath := filepath.Join(dir, "logpp.yml")
	writeFile(t, yamlPath, "level: trace\n")
	cfg, err = LoadConfigFile(yamlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, cfg.Level)

	_, err = LoadConfigFile(filepath.Join(dir, "missing.toml"), nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestCLIOverridesRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.BlockTimeout = 0
	cfg.HeartbeatInterval = 2 * time.Second
	cfg.Caller = true
	cfg.TraceDepth = 4

	// Applying the current values back leaves the configuration unchanged
	o := overridesFrom(cfg)
	applied := cfg.Clone()
	require.NoError(t, o.applyTo(applied))
	assert.Equal(t, cfg, applied)

	o.Level = "loud"
	requireConfigError(t, o.applyTo(cfg.Clone()), "level")

	o = overridesFrom(cfg)
	o.FlushInterval = "often"
	requireConfigError(t, o.applyTo(cfg.Clone()), "flush_interval")
}
