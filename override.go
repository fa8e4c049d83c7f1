package logpp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApplyOverride applies "key=value" overrides to the configuration in place and
// validates the result. Global keys use their document names; "loggers.<prefix>"
// sets a logger level override and "sinks.<name>.level" a sink threshold.
//
// Example:
//
//	cfg := logpp.DefaultConfig()
//	err := cfg.ApplyOverride(
//	    "level=debug",
//	    "overflow_policy=drop-newest",
//	    "loggers.app.db=trace",
//	)
func (c *Config) ApplyOverride(overrides ...string) error {
	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(c, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return combineConfigErrors(errors)
	}

	c.normalize()
	return c.Validate()
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("logpp: multiple configuration errors:")
	for i, err := range errors {
		// Remove "logpp: " prefix from individual errors to avoid duplication
		errMsg := strings.TrimPrefix(err.Error(), "logpp: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return &ConfigError{Reason: sb.String()[len("logpp: "):], Err: errors[0]}
}

// applyConfigField applies a single key-value override to a Config.
// This is the core field mapping logic for string overrides.
func applyConfigField(cfg *Config, key, value string) error {
	if prefix, ok := strings.CutPrefix(key, "loggers."); ok {
		lvl, err := ParseLevel(value)
		if err != nil {
			return configErrorf(loggerPath(prefix), "invalid level '%s'", value)
		}
		if cfg.Loggers == nil {
			cfg.Loggers = map[string]Level{}
		}
		cfg.Loggers[prefix] = lvl
		return nil
	}
	if rest, ok := strings.CutPrefix(key, "sinks."); ok {
		return applySinkField(cfg, rest, value)
	}

	switch key {
	case "level":
		lvl, err := ParseLevel(value)
		if err != nil {
			return configErrorf(key, "invalid level '%s'", value)
		}
		cfg.Level = lvl

	// Queue
	case "queue_capacity":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return configErrorf(key, "invalid integer value '%s'", value)
		}
		cfg.QueueCapacity = intVal
	case "overflow_policy":
		cfg.OverflowPolicy = value
	case "block_timeout":
		return setDuration(&cfg.BlockTimeout, key, value)

	// Dispatcher
	case "batch_size":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return configErrorf(key, "invalid integer value '%s'", value)
		}
		cfg.BatchSize = intVal
	case "writers":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return configErrorf(key, "invalid integer value '%s'", value)
		}
		cfg.Writers = intVal
	case "flush_interval":
		return setDuration(&cfg.FlushInterval, key, value)
	case "shutdown_timeout":
		return setDuration(&cfg.ShutdownTimeout, key, value)
	case "heartbeat_interval":
		return setDuration(&cfg.HeartbeatInterval, key, value)

	// Internal error handling
	case "internal_errors_to_stderr":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return configErrorf(key, "invalid boolean value '%s'", value)
		}
		cfg.InternalErrorsToStderr = boolVal
	case "sink_fallback":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return configErrorf(key, "invalid boolean value '%s'", value)
		}
		cfg.SinkFallback = boolVal

	// Call site
	case "caller":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return configErrorf(key, "invalid boolean value '%s'", value)
		}
		cfg.Caller = boolVal
	case "trace_depth":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return configErrorf(key, "invalid integer value '%s'", value)
		}
		cfg.TraceDepth = intVal

	default:
		return configErrorf(key, "unknown configuration key")
	}

	return nil
}

// applySinkField handles "<name>.level" for a sink of the table
func applySinkField(cfg *Config, rest, value string) error {
	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 {
		return configErrorf("sinks."+rest, "expected sinks.<name>.<key>")
	}
	name, field := rest[:dot], rest[dot+1:]
	for i := range cfg.Sinks {
		if cfg.Sinks[i].Name != name {
			continue
		}
		path := sinkPath(i) + "." + field
		switch field {
		case "level":
			lvl, err := ParseLevel(value)
			if err != nil {
				return configErrorf(path, "invalid level '%s'", value)
			}
			cfg.Sinks[i].Level = lvl
		default:
			return configErrorf(path, "key cannot be overridden")
		}
		return nil
	}
	return configErrorf("sinks."+rest, "no sink named '%s'", name)
}

// setDuration accepts Go durations and plain integers as milliseconds
func setDuration(dst *time.Duration, key, value string) error {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return configErrorf(key, "invalid duration '%s'", value)
	}
	*dst = d
	return nil
}
