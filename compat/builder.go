package compat

import (
	"fmt"
	"log/slog"

	"github.com/lixenwraith/logpp"
	"go.uber.org/zap"
)

// Builder provides a flexible way to create configured logger adapters.
// It can use an existing *logpp.Logger or create a registry from a *logpp.Config.
type Builder struct {
	logger   *logpp.Logger
	registry *logpp.Registry
	logCfg   *logpp.Config
	name     string
	err      error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger specifies an existing logger to use for the adapters.
// Recommended for applications that already have a central registry.
// If this is set WithConfig and WithName are ignored.
func (b *Builder) WithLogger(l *logpp.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("logpp/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new registry.
// If neither WithLogger nor WithConfig is used, a registry with the default
// configuration is created.
func (b *Builder) WithConfig(cfg *logpp.Config) *Builder {
	b.logCfg = cfg
	return b
}

// WithName sets the logger name used when the builder creates the registry
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// getLogger resolves the logger to be used, creating a registry if necessary
func (b *Builder) getLogger() (*logpp.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	// An existing logger was provided, so we use it
	if b.logger != nil {
		return b.logger, nil
	}

	cfg := b.logCfg
	if cfg == nil {
		cfg = logpp.DefaultConfig()
	}
	r, err := logpp.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	// Cache the newly created logger for subsequent builds with this builder
	b.registry = r
	b.logger = r.Logger(b.name)
	return b.logger, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildStructuredGnet creates a gnet adapter that extracts structured fields
// from printf-style messages
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) (*StructuredGnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewStructuredGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// BuildZap creates a *zap.Logger writing through the logpp pipeline
func (b *Builder) BuildZap(opts ...zap.Option) (*zap.Logger, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l, opts...), nil
}

// BuildSlog creates a *slog.Logger writing through the logpp pipeline
func (b *Builder) BuildSlog() (*slog.Logger, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewSlogLogger(l), nil
}

// GetLogger returns the underlying *logpp.Logger instance.
// If a logger has not been provided or created yet, it will be initialized.
func (b *Builder) GetLogger() (*logpp.Logger, error) {
	return b.getLogger()
}

// Registry returns the registry created by the builder, nil when WithLogger was used.
// The caller owns it and must shut it down.
func (b *Builder) Registry() *logpp.Registry {
	return b.registry
}

// --- Example Usage ---
//
//	// 1. Create the application's registry
//	reg, err := logpp.NewBuilder().LevelString("debug").Console("split").Build()
//	if err != nil { /* handle error */ }
//	defer reg.Shutdown()
//
//	// 2. Create a builder and provide a logger of that registry
//	builder := compat.NewBuilder().WithLogger(reg.Logger("net"))
//
//	// 3. Build the required adapters
//	gnetLogger, _ := builder.BuildGnet()
//	fasthttpLogger, _ := builder.BuildFastHTTP()
//	zapLogger, _ := builder.BuildZap()
//
//	// 4. Configure your servers with the adapters
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
