package logpp

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config holds the whole pipeline configuration: global queue and dispatcher
// settings, per-logger level overrides and the sink table.
type Config struct {
	// Global threshold for loggers without a matching override
	Level Level `toml:"level"`
	// Level overrides keyed by dotted logger name prefix
	Loggers map[string]Level `toml:"loggers"`

	// Queue
	QueueCapacity  int           `toml:"queue_capacity"`  // Rounded up to a power of two
	OverflowPolicy string        `toml:"overflow_policy"` // "block", "drop-newest" or "drop-oldest"
	BlockTimeout   time.Duration `toml:"block_timeout"`   // 0 waits until space frees or the queue closes

	// Dispatcher
	BatchSize         int           `toml:"batch_size"`
	Writers           int           `toml:"writers"` // Number of writer groups
	FlushInterval     time.Duration `toml:"flush_interval"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"` // 0 disables the stats heartbeat

	// Diagnostics and resource handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
	SinkFallback           bool `toml:"sink_fallback"` // Replace sinks that fail to open with null sinks

	// Call site capture
	Caller     bool `toml:"caller"`      // Record file:line of every call
	TraceDepth int  `toml:"trace_depth"` // Call chain frames attached as a "trace" field, 0 disables

	Sinks []SinkConfig `toml:"sinks"`
}

// SinkConfig describes one entry of the sink table
type SinkConfig struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`   // "console", "file", "rolling_file" or "null"
	Target string `toml:"target"` // Console stream or file path
	Level  Level  `toml:"level"`  // Per sink threshold

	// Encoding
	Format  string `toml:"format"`  // "pattern", "logfmt" or "json"
	Pattern string `toml:"pattern"` // Pattern for the pattern format

	// Console
	Color string            `toml:"color"` // "auto", "always" or "never"
	Theme map[string]string `toml:"theme"` // Level name to color name

	// File
	Flush string `toml:"flush"` // "batch" or "record"

	// Rolling file
	MaxSize       int64  `toml:"max_size"`       // Bytes, 0 disables size rotation
	Interval      string `toml:"interval"`       // minute, hour, day, month, year or a duration
	Archive       string `toml:"archive"`        // "incremental" or "timestamp"
	ArchiveLayout string `toml:"archive_layout"` // Time layout for the timestamp strategy
	MaxFiles      int    `toml:"max_files"`      // Archives kept, 0 keeps all
	Compress      string `toml:"compress"`       // "", "gzip" or "brotli"

	// Disk guards applied to archives after each rotation, 0 disables
	MaxAge       time.Duration `toml:"max_age"`        // Archives older than this are removed
	MaxTotalSize int64         `toml:"max_total_size"` // Bytes for the active file plus archives
	MinDiskFree  int64         `toml:"min_disk_free"`  // Bytes kept free by removing the oldest archives

	// Routing
	Loggers []string `toml:"loggers"` // Logger name prefixes admitted, empty admits all
	Writer  int      `toml:"writer"`  // 1-based writer group, 0 assigns by sink index
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Level:                  LevelInfo,
	QueueCapacity:          8192,
	OverflowPolicy:         PolicyBlock,
	BlockTimeout:           100 * time.Millisecond,
	BatchSize:              256,
	Writers:                1,
	FlushInterval:          time.Second,
	ShutdownTimeout:        5 * time.Second,
	HeartbeatInterval:      0,
	InternalErrorsToStderr: true,
	SinkFallback:           true,
}

// DefaultConfig returns a copy of the default configuration with a single console sink
func DefaultConfig() *Config {
	cfg := defaultConfig
	cfg.Loggers = map[string]Level{}
	cfg.Sinks = []SinkConfig{DefaultSinkConfig(SinkConsole)}
	return &cfg
}

// DefaultSinkConfig returns a sink entry of the given type with its default options
func DefaultSinkConfig(sinkType string) SinkConfig {
	sc := SinkConfig{
		Name:    sinkType,
		Type:    sinkType,
		Level:   LevelTrace,
		Format:  FormatPattern,
		Pattern: defaultPattern,
	}
	switch sinkType {
	case SinkConsole:
		sc.Target = TargetSplit
		sc.Color = ColorAuto
	case SinkFile:
		sc.Flush = FlushBatch
	case SinkRollingFile:
		sc.Flush = FlushBatch
		sc.Archive = ArchiveIncremental
		sc.ArchiveLayout = defaultArchiveLayout
	}
	return sc
}

// Validate checks the configuration, returning a *ConfigError naming the offending key
func (c *Config) Validate() error {
	if !c.Level.valid() {
		return configErrorf("level", "invalid level %d", c.Level)
	}
	for _, prefix := range sortedKeys(c.Loggers) {
		if !c.Loggers[prefix].valid() {
			return configErrorf(loggerPath(prefix), "invalid level %d", c.Loggers[prefix])
		}
		if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
			return configErrorf(loggerPath(prefix), "logger prefix cannot start or end with '.'")
		}
	}

	if c.QueueCapacity <= 0 {
		return configErrorf("queue_capacity", "must be positive: %d", c.QueueCapacity)
	}
	if c.QueueCapacity > maxQueueCapacity {
		return configErrorf("queue_capacity", "cannot exceed %d: %d", maxQueueCapacity, c.QueueCapacity)
	}
	switch c.OverflowPolicy {
	case PolicyBlock, PolicyDropNewest, PolicyDropOldest:
	default:
		return configErrorf("overflow_policy", "unknown policy '%s' (use block, drop-newest, drop-oldest)", c.OverflowPolicy)
	}
	if c.BlockTimeout < 0 {
		return configErrorf("block_timeout", "cannot be negative: %v", c.BlockTimeout)
	}
	if c.BatchSize <= 0 {
		return configErrorf("batch_size", "must be positive: %d", c.BatchSize)
	}
	if c.Writers <= 0 {
		return configErrorf("writers", "must be positive: %d", c.Writers)
	}
	if c.FlushInterval <= 0 {
		return configErrorf("flush_interval", "must be positive: %v", c.FlushInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return configErrorf("shutdown_timeout", "must be positive: %v", c.ShutdownTimeout)
	}
	if c.HeartbeatInterval < 0 {
		return configErrorf("heartbeat_interval", "cannot be negative: %v", c.HeartbeatInterval)
	}
	if c.TraceDepth < 0 || c.TraceDepth > maxTraceDepth {
		return configErrorf("trace_depth", "must be between 0 and %d: %d", maxTraceDepth, c.TraceDepth)
	}

	names := make(map[string]int, len(c.Sinks))
	for i := range c.Sinks {
		sc := &c.Sinks[i]
		if err := sc.validate(sinkPath(i), c.Writers); err != nil {
			return err
		}
		if prev, dup := names[sc.Name]; dup {
			return configErrorf(sinkPath(i)+".name", "duplicate sink name '%s' (also used by sinks[%d])", sc.Name, prev)
		}
		names[sc.Name] = i
	}
	return nil
}

func (sc *SinkConfig) validate(path string, writers int) error {
	switch sc.Type {
	case SinkConsole:
		switch sc.Target {
		case "", TargetStdout, TargetStderr, TargetSplit:
		default:
			return configErrorf(path+".target", "unknown console target '%s' (use stdout, stderr, split)", sc.Target)
		}
		switch sc.Color {
		case "", ColorAuto, ColorAlways, ColorNever:
		default:
			return configErrorf(path+".color", "unknown color mode '%s' (use auto, always, never)", sc.Color)
		}
		for _, lvl := range sortedKeys(sc.Theme) {
			if _, err := ParseLevel(lvl); err != nil {
				return configErrorf(path+".theme."+lvl, "invalid level name")
			}
			if _, ok := ansiColors[strings.ToLower(sc.Theme[lvl])]; !ok {
				return configErrorf(path+".theme."+lvl, "unknown color '%s'", sc.Theme[lvl])
			}
		}
	case SinkFile, SinkRollingFile:
		if strings.TrimSpace(sc.Target) == "" {
			return configErrorf(path+".target", "file path cannot be empty")
		}
		switch sc.Flush {
		case "", FlushBatch, FlushRecord:
		default:
			return configErrorf(path+".flush", "unknown flush policy '%s' (use batch, record)", sc.Flush)
		}
	case SinkNull:
	case "":
		return configErrorf(path+".type", "sink type is required")
	default:
		return configErrorf(path+".type", "unknown sink type '%s' (use console, file, rolling_file, null)", sc.Type)
	}

	if sc.Type == SinkRollingFile {
		if sc.MaxSize < 0 {
			return configErrorf(path+".max_size", "cannot be negative: %d", sc.MaxSize)
		}
		if sc.Interval != "" {
			if _, err := parseInterval(sc.Interval); err != nil {
				return &ConfigError{Path: path + ".interval", Reason: "malformed rotation interval", Err: err}
			}
		}
		if sc.MaxSize == 0 && sc.Interval == "" {
			return configErrorf(path, "rolling_file needs max_size or interval")
		}
		switch sc.Archive {
		case "", ArchiveIncremental, ArchiveTimestamp:
		default:
			return configErrorf(path+".archive", "unknown archive strategy '%s' (use incremental, timestamp)", sc.Archive)
		}
		if sc.MaxFiles < 0 {
			return configErrorf(path+".max_files", "cannot be negative: %d", sc.MaxFiles)
		}
		if sc.MaxAge < 0 {
			return configErrorf(path+".max_age", "cannot be negative: %v", sc.MaxAge)
		}
		if sc.MaxTotalSize < 0 {
			return configErrorf(path+".max_total_size", "cannot be negative: %d", sc.MaxTotalSize)
		}
		if sc.MinDiskFree < 0 {
			return configErrorf(path+".min_disk_free", "cannot be negative: %d", sc.MinDiskFree)
		}
		switch sc.Compress {
		case "", CompressGzip, CompressBrotli:
		default:
			return configErrorf(path+".compress", "unknown compression '%s' (use gzip, brotli)", sc.Compress)
		}
	}

	if !sc.Level.valid() {
		return configErrorf(path+".level", "invalid level %d", sc.Level)
	}
	if _, err := newEncoder(sc.Format, sc.Pattern); err != nil {
		key := ".format"
		if sc.Format == "" || sc.Format == FormatPattern {
			key = ".pattern"
		}
		return &ConfigError{Path: path + key, Reason: "invalid encoder", Err: err}
	}
	if sc.Writer < 0 || sc.Writer > writers {
		return configErrorf(path+".writer", "must be between 1 and writers (%d): %d", writers, sc.Writer)
	}
	for j, prefix := range sc.Loggers {
		if strings.TrimSpace(prefix) == "" {
			return configErrorf(fmt.Sprintf("%s.loggers[%d]", path, j), "logger prefix cannot be empty")
		}
	}
	return nil
}

// normalize fills defaults for omitted sink keys and derives missing sink names
func (c *Config) normalize() {
	if c.Loggers == nil {
		c.Loggers = map[string]Level{}
	}
	used := make(map[string]bool, len(c.Sinks))
	for i := range c.Sinks {
		if c.Sinks[i].Name != "" {
			used[c.Sinks[i].Name] = true
		}
	}
	for i := range c.Sinks {
		sc := &c.Sinks[i]
		def := DefaultSinkConfig(sc.Type)
		if sc.Name == "" {
			name := sc.Type
			if used[name] {
				name = fmt.Sprintf("%s-%d", sc.Type, i)
			}
			sc.Name = name
			used[name] = true
		}
		if sc.Format == "" {
			sc.Format = def.Format
		}
		if sc.Format == FormatPattern && sc.Pattern == "" {
			sc.Pattern = def.Pattern
		}
		if sc.Target == "" {
			sc.Target = def.Target
		}
		if sc.Color == "" {
			sc.Color = def.Color
		}
		if sc.Flush == "" {
			sc.Flush = def.Flush
		}
		if sc.Archive == "" {
			sc.Archive = def.Archive
		}
		if sc.ArchiveLayout == "" {
			sc.ArchiveLayout = def.ArchiveLayout
		}
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copied := *c
	copied.Loggers = make(map[string]Level, len(c.Loggers))
	for k, v := range c.Loggers {
		copied.Loggers[k] = v
	}
	copied.Sinks = make([]SinkConfig, len(c.Sinks))
	for i, sc := range c.Sinks {
		if sc.Theme != nil {
			theme := make(map[string]string, len(sc.Theme))
			for k, v := range sc.Theme {
				theme[k] = v
			}
			sc.Theme = theme
		}
		if sc.Loggers != nil {
			sc.Loggers = append([]string(nil), sc.Loggers...)
		}
		copied.Sinks[i] = sc
	}
	return &copied
}

// EffectiveLevel resolves the threshold for a logger name: the longest
// matching dotted prefix in Loggers wins, otherwise the global Level applies.
func (c *Config) EffectiveLevel(name string) Level {
	level := c.Level
	best := -1
	for prefix, lvl := range c.Loggers {
		if len(prefix) > best && matchesPrefix(name, prefix) {
			level = lvl
			best = len(prefix)
		}
	}
	return level
}

func sinkPath(i int) string {
	return fmt.Sprintf("sinks[%d]", i)
}

func loggerPath(prefix string) string {
	return fmt.Sprintf("loggers.%q", prefix)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
