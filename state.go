package logpp

import (
	"sync"
	"sync/atomic"
	"time"
)

// State encapsulates the runtime state of a registry that outlives its pipelines
type State struct {
	ShutdownCalled atomic.Bool
	StartTime      time.Time

	flushMutex sync.Mutex // Protect concurrent Flush calls

	shutdownOnce sync.Once
	shutdownErr  error // Result of the first Shutdown, returned to every caller

	FormatErrors      atomic.Uint64 // Templates that failed to render on the hot path
	DroppedInactive   atomic.Uint64 // Records logged after shutdown
	Reloads           atomic.Uint64 // Successful pipeline replacements
	HeartbeatSequence atomic.Uint64 // Counter for heartbeat sequence numbers
}

// Shutdown stops the pipeline, draining queued records until the deadline.
// Records still queued when the deadline passes are counted as dropped on shutdown.
// If no timeout is provided, the configured shutdown_timeout applies.
// Concurrent and later calls wait for the first one to finish and return its result.
func (r *Registry) Shutdown(timeout ...time.Duration) error {
	r.state.shutdownOnce.Do(func() {
		r.state.shutdownErr = r.shutdown(timeout...)
	})
	return r.state.shutdownErr
}

func (r *Registry) shutdown(timeout ...time.Duration) error {
	r.state.ShutdownCalled.Store(true)

	r.initMu.Lock()
	defer r.initMu.Unlock()

	effectiveTimeout := r.getConfig().ShutdownTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		effectiveTimeout = timeout[0]
	}

	var finalErr error
	r.statsMu.Lock()
	p := r.active.Load()
	if p != nil {
		r.draining = append(r.draining, p)
		r.active.Store(nil)
	}
	r.statsMu.Unlock()

	if p != nil {
		finalErr = r.retire(p, time.Now().Add(effectiveTimeout))
	}

	// Custom sinks live across reloads and are only closed here
	for _, cs := range r.custom {
		if err := cs.sink.Close(); err != nil {
			finalErr = combineErrors(finalErr, &SinkWriteError{Sink: cs.name, Op: "close", Err: err})
		}
	}

	if r.stopWatch != nil {
		r.stopWatch()
	}
	return finalErr
}

// Flush drains records queued before the call into their sinks, flushes every
// sink and waits for completion or timeout
func (r *Registry) Flush(timeout time.Duration) error {
	r.state.flushMutex.Lock()
	defer r.state.flushMutex.Unlock()

	if r.state.ShutdownCalled.Load() {
		return fmtErrorf("registry already shut down: %w", ErrShutdown)
	}
	p := r.active.Load()
	if p == nil {
		return fmtErrorf("no active pipeline: %w", ErrShutdown)
	}

	// Create a channel to wait for confirmation from the processor
	confirmChan := make(chan struct{})

	select {
	case p.flushRequestChan <- confirmChan:
	case <-p.done:
		return nil
	case <-time.After(flushRequestTimeout):
		return fmtErrorf("failed to send flush request to processor (possible deadlock or high load)")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-confirmChan:
		return nil
	case <-p.done:
		// A pipeline retired by a concurrent reload flushes everything on exit
		return nil
	case <-timer.C:
		return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
	}
}
