package logpp

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching
var (
	ErrFormat    = errors.New("logpp: format error")
	ErrConfig    = errors.New("logpp: configuration error")
	ErrSinkWrite = errors.New("logpp: sink write error")
	ErrShutdown  = errors.New("logpp: registry is shut down")
)

// FormatError reports a template that cannot be rendered with the given arguments
type FormatError struct {
	Template string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("logpp: cannot format %q: %s", e.Template, e.Reason)
}

// Is matches ErrFormat
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ConfigError names the offending key path of a malformed configuration
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "logpp: invalid configuration"
	if e.Path != "" {
		msg += " at '" + e.Path + "'"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// SinkWriteError wraps an I/O failure of a single sink.
// It is recorded in the sink's statistics and never reaches producers.
type SinkWriteError struct {
	Sink string
	Op   string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("logpp: sink '%s' %s failed: %v", e.Sink, e.Op, e.Err)
}

// Is matches ErrSinkWrite
func (e *SinkWriteError) Is(target error) bool {
	return target == ErrSinkWrite
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}
