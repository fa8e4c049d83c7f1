package logpp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lixenwraith/config"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// rawConfig is the document as decoded, before type conversion.
// Scalars stay untyped so conversion errors can name the offending key.
type rawConfig struct {
	Level                  any            `toml:"level" yaml:"level"`
	Loggers                map[string]any `toml:"loggers" yaml:"loggers"`
	QueueCapacity          any            `toml:"queue_capacity" yaml:"queue_capacity"`
	OverflowPolicy         any            `toml:"overflow_policy" yaml:"overflow_policy"`
	BlockTimeout           any            `toml:"block_timeout" yaml:"block_timeout"`
	BatchSize              any            `toml:"batch_size" yaml:"batch_size"`
	Writers                any            `toml:"writers" yaml:"writers"`
	FlushInterval          any            `toml:"flush_interval" yaml:"flush_interval"`
	ShutdownTimeout        any            `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	HeartbeatInterval      any            `toml:"heartbeat_interval" yaml:"heartbeat_interval"`
	InternalErrorsToStderr any            `toml:"internal_errors_to_stderr" yaml:"internal_errors_to_stderr"`
	SinkFallback           any            `toml:"sink_fallback" yaml:"sink_fallback"`
	Caller                 any            `toml:"caller" yaml:"caller"`
	TraceDepth             any            `toml:"trace_depth" yaml:"trace_depth"`
	Sinks                  []rawSink      `toml:"sinks" yaml:"sinks"`
}

type rawSink struct {
	Name          any            `toml:"name" yaml:"name"`
	Type          any            `toml:"type" yaml:"type"`
	Target        any            `toml:"target" yaml:"target"`
	Level         any            `toml:"level" yaml:"level"`
	Format        any            `toml:"format" yaml:"format"`
	Pattern       any            `toml:"pattern" yaml:"pattern"`
	Color         any            `toml:"color" yaml:"color"`
	Theme         map[string]any `toml:"theme" yaml:"theme"`
	Flush         any            `toml:"flush" yaml:"flush"`
	MaxSize       any            `toml:"max_size" yaml:"max_size"`
	Interval      any            `toml:"interval" yaml:"interval"`
	Archive       any            `toml:"archive" yaml:"archive"`
	ArchiveLayout any            `toml:"archive_layout" yaml:"archive_layout"`
	MaxFiles      any            `toml:"max_files" yaml:"max_files"`
	Compress      any            `toml:"compress" yaml:"compress"`
	MaxAge        any            `toml:"max_age" yaml:"max_age"`
	MaxTotalSize  any            `toml:"max_total_size" yaml:"max_total_size"`
	MinDiskFree   any            `toml:"min_disk_free" yaml:"min_disk_free"`
	Loggers       []any          `toml:"loggers" yaml:"loggers"`
	Writer        any            `toml:"writer" yaml:"writer"`
}

// ParseConfig parses a TOML document into a validated Config.
// Omitted keys keep their defaults; an omitted sink table keeps the default console sink.
func ParseConfig(data []byte) (*Config, error) {
	var raw rawConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, &ConfigError{Reason: "malformed TOML document", Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, configErrorf(undecoded[0].String(), "unknown key")
	}
	return raw.toConfig()
}

// ParseYAMLConfig parses a YAML document with the same shape as the TOML one
func ParseYAMLConfig(data []byte) (*Config, error) {
	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Reason: "malformed YAML document", Err: err}
	}
	return raw.toConfig()
}

// LoadConfigFile reads a TOML or YAML (by extension) configuration file and applies
// command line overrides of the global keys given as --logpp.<key>=<value>
func LoadConfigFile(path string, args []string) (*Config, error) {
	cfg, err := parseConfigFile(path)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		if err := applyArgs(cfg, args); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// parseConfigFile reads path and parses it as YAML or TOML by extension
func parseConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot read configuration file '%s'", path), Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLConfig(data)
	default:
		return ParseConfig(data)
	}
}

func (raw *rawConfig) toConfig() (*Config, error) {
	cfg := DefaultConfig()
	var err error

	if raw.Level != nil {
		if cfg.Level, err = asLevel("level", raw.Level); err != nil {
			return nil, err
		}
	}
	for _, prefix := range sortedKeys(raw.Loggers) {
		lvl, err := asLevel(loggerPath(prefix), raw.Loggers[prefix])
		if err != nil {
			return nil, err
		}
		cfg.Loggers[prefix] = lvl
	}
	if raw.QueueCapacity != nil {
		if cfg.QueueCapacity, err = asInt("queue_capacity", raw.QueueCapacity); err != nil {
			return nil, err
		}
	}
	if raw.OverflowPolicy != nil {
		if cfg.OverflowPolicy, err = asString("overflow_policy", raw.OverflowPolicy); err != nil {
			return nil, err
		}
	}
	if raw.BlockTimeout != nil {
		if cfg.BlockTimeout, err = asDuration("block_timeout", raw.BlockTimeout); err != nil {
			return nil, err
		}
	}
	if raw.BatchSize != nil {
		if cfg.BatchSize, err = asInt("batch_size", raw.BatchSize); err != nil {
			return nil, err
		}
	}
	if raw.Writers != nil {
		if cfg.Writers, err = asInt("writers", raw.Writers); err != nil {
			return nil, err
		}
	}
	if raw.FlushInterval != nil {
		if cfg.FlushInterval, err = asDuration("flush_interval", raw.FlushInterval); err != nil {
			return nil, err
		}
	}
	if raw.ShutdownTimeout != nil {
		if cfg.ShutdownTimeout, err = asDuration("shutdown_timeout", raw.ShutdownTimeout); err != nil {
			return nil, err
		}
	}
	if raw.HeartbeatInterval != nil {
		if cfg.HeartbeatInterval, err = asDuration("heartbeat_interval", raw.HeartbeatInterval); err != nil {
			return nil, err
		}
	}
	if raw.InternalErrorsToStderr != nil {
		if cfg.InternalErrorsToStderr, err = asBool("internal_errors_to_stderr", raw.InternalErrorsToStderr); err != nil {
			return nil, err
		}
	}
	if raw.SinkFallback != nil {
		if cfg.SinkFallback, err = asBool("sink_fallback", raw.SinkFallback); err != nil {
			return nil, err
		}
	}
	if raw.Caller != nil {
		if cfg.Caller, err = asBool("caller", raw.Caller); err != nil {
			return nil, err
		}
	}
	if raw.TraceDepth != nil {
		if cfg.TraceDepth, err = asInt("trace_depth", raw.TraceDepth); err != nil {
			return nil, err
		}
	}

	if raw.Sinks != nil {
		cfg.Sinks = make([]SinkConfig, 0, len(raw.Sinks))
		for i := range raw.Sinks {
			sc, err := raw.Sinks[i].toSinkConfig(sinkPath(i))
			if err != nil {
				return nil, err
			}
			cfg.Sinks = append(cfg.Sinks, sc)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (rs *rawSink) toSinkConfig(path string) (SinkConfig, error) {
	var sc SinkConfig
	var err error

	strs := []struct {
		key string
		val any
		dst *string
	}{
		{"name", rs.Name, &sc.Name},
		{"type", rs.Type, &sc.Type},
		{"target", rs.Target, &sc.Target},
		{"format", rs.Format, &sc.Format},
		{"pattern", rs.Pattern, &sc.Pattern},
		{"color", rs.Color, &sc.Color},
		{"flush", rs.Flush, &sc.Flush},
		{"archive", rs.Archive, &sc.Archive},
		{"archive_layout", rs.ArchiveLayout, &sc.ArchiveLayout},
		{"compress", rs.Compress, &sc.Compress},
	}
	for _, s := range strs {
		if s.val == nil {
			continue
		}
		if *s.dst, err = asString(path+"."+s.key, s.val); err != nil {
			return sc, err
		}
	}

	if rs.Level != nil {
		if sc.Level, err = asLevel(path+".level", rs.Level); err != nil {
			return sc, err
		}
	}
	if rs.MaxSize != nil {
		if sc.MaxSize, err = asSize(path+".max_size", rs.MaxSize); err != nil {
			return sc, err
		}
	}
	if rs.MaxTotalSize != nil {
		if sc.MaxTotalSize, err = asSize(path+".max_total_size", rs.MaxTotalSize); err != nil {
			return sc, err
		}
	}
	if rs.MinDiskFree != nil {
		if sc.MinDiskFree, err = asSize(path+".min_disk_free", rs.MinDiskFree); err != nil {
			return sc, err
		}
	}
	if rs.MaxAge != nil {
		if sc.MaxAge, err = asDuration(path+".max_age", rs.MaxAge); err != nil {
			return sc, err
		}
	}
	if rs.Interval != nil {
		switch v := rs.Interval.(type) {
		case string:
			sc.Interval = v
		default:
			secs, err := asInt(path+".interval", v)
			if err != nil {
				return sc, err
			}
			sc.Interval = (time.Duration(secs) * time.Second).String()
		}
	}
	if rs.MaxFiles != nil {
		if sc.MaxFiles, err = asInt(path+".max_files", rs.MaxFiles); err != nil {
			return sc, err
		}
	}
	if rs.Writer != nil {
		if sc.Writer, err = asInt(path+".writer", rs.Writer); err != nil {
			return sc, err
		}
	}
	if rs.Theme != nil {
		sc.Theme = make(map[string]string, len(rs.Theme))
		for _, lvl := range sortedKeys(rs.Theme) {
			color, err := asString(path+".theme."+lvl, rs.Theme[lvl])
			if err != nil {
				return sc, err
			}
			sc.Theme[lvl] = color
		}
	}
	for j, v := range rs.Loggers {
		prefix, err := asString(fmt.Sprintf("%s.loggers[%d]", path, j), v)
		if err != nil {
			return sc, err
		}
		sc.Loggers = append(sc.Loggers, prefix)
	}
	return sc, nil
}

func asString(path string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", configErrorf(path, "expected string, got %T", v)
	}
	return s, nil
}

func asBool(path string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, configErrorf(path, "expected boolean, got %T", v)
	}
	return b, nil
}

func asInt(path string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, configErrorf(path, "value out of range: %d", n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, configErrorf(path, "value out of range: %d", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, configErrorf(path, "expected integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, configErrorf(path, "expected integer, got %T", v)
	}
}

func asLevel(path string, v any) (Level, error) {
	s, err := asString(path, v)
	if err != nil {
		return LevelOff, err
	}
	lvl, err := ParseLevel(s)
	if err != nil {
		return LevelOff, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid level '%s'", s), Err: err}
	}
	return lvl, nil
}

// asDuration accepts Go duration strings or integer milliseconds
func asDuration(path string, v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return 0, &ConfigError{Path: path, Reason: fmt.Sprintf("malformed duration '%s'", s), Err: err}
		}
		return d, nil
	}
	ms, err := asInt(path, v)
	if err != nil {
		return 0, configErrorf(path, "expected duration string or integer milliseconds, got %T", v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// asSize accepts integer bytes or size strings such as "512KB" and "10MB"
func asSize(path string, v any) (int64, error) {
	switch n := v.(type) {
	case string:
		size, err := parseSize(n)
		if err != nil {
			return 0, &ConfigError{Path: path, Reason: fmt.Sprintf("malformed size '%s'", n), Err: err}
		}
		return size, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, configErrorf(path, "value out of range: %d", n)
		}
		return int64(n), nil
	default:
		return 0, configErrorf(path, "expected size, got %T", v)
	}
}

// cliOverrides mirrors the global keys accepted on the command line
type cliOverrides struct {
	Level                  string `toml:"level"`
	QueueCapacity          int64  `toml:"queue_capacity"`
	OverflowPolicy         string `toml:"overflow_policy"`
	BlockTimeout           string `toml:"block_timeout"`
	BatchSize              int64  `toml:"batch_size"`
	Writers                int64  `toml:"writers"`
	FlushInterval          string `toml:"flush_interval"`
	ShutdownTimeout        string `toml:"shutdown_timeout"`
	HeartbeatInterval      string `toml:"heartbeat_interval"`
	InternalErrorsToStderr bool   `toml:"internal_errors_to_stderr"`
	SinkFallback           bool   `toml:"sink_fallback"`
	Caller                 bool   `toml:"caller"`
	TraceDepth             int64  `toml:"trace_depth"`
}

var cliKeys = []string{
	"level", "queue_capacity", "overflow_policy", "block_timeout", "batch_size", "writers",
	"flush_interval", "shutdown_timeout", "heartbeat_interval", "internal_errors_to_stderr", "sink_fallback",
	"caller", "trace_depth",
}

func overridesFrom(cfg *Config) cliOverrides {
	return cliOverrides{
		Level:                  cfg.Level.String(),
		QueueCapacity:          int64(cfg.QueueCapacity),
		OverflowPolicy:         cfg.OverflowPolicy,
		BlockTimeout:           cfg.BlockTimeout.String(),
		BatchSize:              int64(cfg.BatchSize),
		Writers:                int64(cfg.Writers),
		FlushInterval:          cfg.FlushInterval.String(),
		ShutdownTimeout:        cfg.ShutdownTimeout.String(),
		HeartbeatInterval:      cfg.HeartbeatInterval.String(),
		InternalErrorsToStderr: cfg.InternalErrorsToStderr,
		SinkFallback:           cfg.SinkFallback,
		Caller:                 cfg.Caller,
		TraceDepth:             int64(cfg.TraceDepth),
	}
}

// applyArgs merges --logpp.<key>=<value> arguments into the global keys of cfg
func applyArgs(cfg *Config, args []string) error {
	current := overridesFrom(cfg)

	// Use lixenwraith/config as the command line loader
	loader := config.New()
	if err := loader.RegisterStruct("logpp.", current); err != nil {
		return fmtErrorf("failed to register override keys: %w", err)
	}
	if err := loader.Load("", args); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return &ConfigError{Reason: "malformed command line overrides", Err: err}
	}

	values := make(map[string]any, len(cliKeys))
	for _, key := range cliKeys {
		if val, found := loader.Get("logpp." + key); found {
			values[key] = val
		}
	}

	merged := current
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "toml",
		WeaklyTypedInput: true,
		Result:           &merged,
	})
	if err != nil {
		return fmtErrorf("failed to create override decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return &ConfigError{Reason: "invalid command line override", Err: err}
	}

	return merged.applyTo(cfg)
}

func (o cliOverrides) applyTo(cfg *Config) error {
	lvl, err := asLevel("level", o.Level)
	if err != nil {
		return err
	}
	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"block_timeout", o.BlockTimeout, &cfg.BlockTimeout},
		{"flush_interval", o.FlushInterval, &cfg.FlushInterval},
		{"shutdown_timeout", o.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"heartbeat_interval", o.HeartbeatInterval, &cfg.HeartbeatInterval},
	}
	for _, d := range durations {
		if *d.dst, err = asDuration(d.key, d.val); err != nil {
			return err
		}
	}
	cfg.Level = lvl
	cfg.QueueCapacity = int(o.QueueCapacity)
	cfg.OverflowPolicy = o.OverflowPolicy
	cfg.BatchSize = int(o.BatchSize)
	cfg.Writers = int(o.Writers)
	cfg.InternalErrorsToStderr = o.InternalErrorsToStderr
	cfg.SinkFallback = o.SinkFallback
	cfg.Caller = o.Caller
	cfg.TraceDepth = int(o.TraceDepth)
	return nil
}
