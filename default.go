package logpp

import (
	"sync"
	"time"
)

// Default registry for package-level functions
var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Init builds the default registry from cfg, or reloads it if one is running
func Init(cfg *Config, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry != nil && !defaultRegistry.state.ShutdownCalled.Load() {
		return defaultRegistry.Reload(cfg)
	}
	r, err := NewRegistry(cfg, opts...)
	if err != nil {
		return err
	}
	defaultRegistry = r
	return nil
}

// InitFromFile loads a TOML or YAML configuration file with optional
// --logpp.<key>=<value> command line overrides and initializes the default registry
func InitFromFile(path string, args []string, opts ...Option) error {
	cfg, err := LoadConfigFile(path, args)
	if err != nil {
		return err
	}
	return Init(cfg, opts...)
}

// Default returns the default registry, creating it with DefaultConfig on first use
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry == nil {
		r, err := NewRegistry(DefaultConfig())
		if err != nil {
			// The default configuration only opens console streams
			panic(err)
		}
		defaultRegistry = r
	}
	return defaultRegistry
}

// Get returns a logger of the default registry
func Get(name string) *Logger {
	return Default().Logger(name)
}

// Shutdown stops the default registry, draining queued records
func Shutdown(timeout ...time.Duration) error {
	defaultMu.Lock()
	r := defaultRegistry
	defaultMu.Unlock()
	if r == nil {
		return nil
	}
	return r.Shutdown(timeout...)
}

// Flush waits until records logged to the default registry are written and flushed
func Flush(timeout time.Duration) error {
	return Default().Flush(timeout)
}
