package logpp

import (
	"time"
)

// Stats is a point-in-time view of registry counters.
// Queue and drop counters accumulate across reloads; per-sink counters
// describe the sinks of the active pipeline.
//
// Every record passed to an enabled logger ends in exactly one of:
// Dispatched, one of the Dropped counters, or the queue (QueueLen).
type Stats struct {
	Uptime time.Duration

	QueueCapacity int
	QueueLen      int

	Enqueued   uint64 // Records accepted by a queue
	Dispatched uint64 // Records handed to writer groups

	DroppedNewest     uint64 // Rejected by a full queue under drop-newest, or drop-oldest giving up
	DroppedOldest     uint64 // Evicted from a full queue under drop-oldest
	DroppedTimeout    uint64 // Block policy timeout
	DroppedClosed     uint64 // Enqueue on a queue closed by reload or shutdown
	DroppedOnShutdown uint64 // Still queued when the drain deadline passed
	DroppedInactive   uint64 // Logged after shutdown

	FormatErrors uint64
	Reloads      uint64
	Heartbeats   uint64

	Sinks []SinkStats
}

// SinkStats are the counters of one sink binding
type SinkStats struct {
	Name      string
	Type      string
	Group     int // 1-based writer group
	Written   uint64
	Errors    uint64
	Rotations uint64
	LastError error
}

// Dropped returns the sum of all drop counters
func (s Stats) Dropped() uint64 {
	return s.DroppedNewest + s.DroppedOldest + s.DroppedTimeout + s.DroppedClosed +
		s.DroppedOnShutdown + s.DroppedInactive
}

// pipelineTotals are the counters a pipeline contributes to Stats
type pipelineTotals struct {
	enqueued          uint64
	dispatched        uint64
	droppedNewest     uint64
	droppedOldest     uint64
	droppedTimeout    uint64
	droppedClosed     uint64
	droppedOnShutdown uint64
}

func (t *pipelineTotals) add(o pipelineTotals) {
	t.enqueued += o.enqueued
	t.dispatched += o.dispatched
	t.droppedNewest += o.droppedNewest
	t.droppedOldest += o.droppedOldest
	t.droppedTimeout += o.droppedTimeout
	t.droppedClosed += o.droppedClosed
	t.droppedOnShutdown += o.droppedOnShutdown
}

func (p *pipeline) totals() pipelineTotals {
	qs := p.queue.Stats()
	return pipelineTotals{
		enqueued:          qs.Enqueued,
		dispatched:        p.dispatched.Load(),
		droppedNewest:     qs.DroppedNewest,
		droppedOldest:     qs.DroppedOldest,
		droppedTimeout:    qs.DroppedTimeout,
		droppedClosed:     qs.DroppedClosed,
		droppedOnShutdown: p.droppedOnShutdown.Load(),
	}
}

// Stats returns the current counters
func (r *Registry) Stats() Stats {
	r.statsMu.Lock()
	totals := r.retired
	for _, p := range r.draining {
		totals.add(p.totals())
	}
	p := r.active.Load()
	if p != nil {
		totals.add(p.totals())
	}
	r.statsMu.Unlock()

	s := Stats{
		Uptime:            time.Since(r.state.StartTime),
		Enqueued:          totals.enqueued,
		Dispatched:        totals.dispatched,
		DroppedNewest:     totals.droppedNewest,
		DroppedOldest:     totals.droppedOldest,
		DroppedTimeout:    totals.droppedTimeout,
		DroppedClosed:     totals.droppedClosed,
		DroppedOnShutdown: totals.droppedOnShutdown,
		DroppedInactive:   r.state.DroppedInactive.Load(),
		FormatErrors:      r.state.FormatErrors.Load(),
		Reloads:           r.state.Reloads.Load(),
		Heartbeats:        r.state.HeartbeatSequence.Load(),
	}
	if p != nil {
		s.QueueCapacity = p.queue.Cap()
		s.QueueLen = p.queue.Len()
		s.Sinks = p.sinkStats()
	}
	return s
}

func (p *pipeline) sinkStats() []SinkStats {
	out := make([]SinkStats, 0, len(p.bindings))
	for _, b := range p.bindings {
		ss := SinkStats{
			Name:    b.name,
			Type:    b.kind,
			Group:   b.group + 1,
			Written: b.stats.written.Load(),
			Errors:  b.stats.errors.Load(),
		}
		if rot, ok := b.sink.(rotator); ok {
			ss.Rotations = rot.Rotations()
		}
		if lastErr := b.stats.lastErr.Load(); lastErr != nil {
			ss.LastError = lastErr
		}
		out = append(out, ss)
	}
	return out
}
