package compat

import (
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/logpp"
	"github.com/panjf2000/gnet/v2/pkg/logging"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// GnetAdapter wraps a logpp.Logger to implement the gnet logging.Logger interface
type GnetAdapter struct {
	logger       *logpp.Logger
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger *logpp.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger.With(logpp.String("source", "gnet")),
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting
func (a *GnetAdapter) Debugf(format string, args ...any) {
	if a.logger.Enabled(logpp.LevelDebug) {
		a.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// Infof logs at info level with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	if a.logger.Enabled(logpp.LevelInfo) {
		a.logger.Info(fmt.Sprintf(format, args...))
	}
}

// Warnf logs at warn level with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	if a.logger.Enabled(logpp.LevelWarn) {
		a.logger.Warn(fmt.Sprintf(format, args...))
	}
}

// Errorf logs at error level with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	if a.logger.Enabled(logpp.LevelError) {
		a.logger.Error(fmt.Sprintf(format, args...))
	}
}

// Fatalf logs at critical level and triggers the fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Critical(msg, logpp.Bool("fatal", true))

	// Ensure log is flushed before exit
	_ = a.logger.Flush(100 * time.Millisecond)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
