package logpp

import (
	"context"
	"os"
	"time"
)

// WatchConfig polls the configuration file at path and, when its modification
// time or size changes, re-parses it and applies the level settings only.
// Parse errors are reported to diagnostics and leave the levels unchanged.
// The watch ends when ctx is done or the registry shuts down.
func (r *Registry) WatchConfig(ctx context.Context, path string, interval time.Duration) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ConfigError{Reason: "cannot watch configuration file '" + path + "'", Err: err}
	}
	if interval < minWaitTime {
		interval = minWaitTime
	}

	ctx, cancel := context.WithCancel(ctx)
	r.initMu.Lock()
	if r.state.ShutdownCalled.Load() {
		r.initMu.Unlock()
		cancel()
		return fmtErrorf("cannot watch: %w", ErrShutdown)
	}
	prevStop := r.stopWatch
	r.stopWatch = func() {
		if prevStop != nil {
			prevStop()
		}
		cancel()
	}
	r.initMu.Unlock()

	go r.watchLoop(ctx, path, interval, info.ModTime(), info.Size())
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, path string, interval time.Duration, modTime time.Time, size int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			// Editors may replace the file non-atomically; retry on the next tick
			continue
		}
		if info.ModTime().Equal(modTime) && info.Size() == size {
			continue
		}
		modTime, size = info.ModTime(), info.Size()

		if err := r.reloadLevels(path); err != nil {
			r.internalLog("error reading configuration file '%s': %v\n", path, err)
			continue
		}
		r.internalLog("configuration '%s' has been reloaded\n", path)
	}
}

// reloadLevels parses the file at path and applies its level settings
func (r *Registry) reloadLevels(path string) error {
	cfg, err := parseConfigFile(path)
	if err != nil {
		return err
	}
	return r.SetLevels(cfg)
}
