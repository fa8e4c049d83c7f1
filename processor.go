package logpp

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// pipeline is one generation of queue, dispatcher and writer groups.
// Reload replaces the whole pipeline; loggers reach the active one through the registry.
type pipeline struct {
	reg      *Registry
	cfg      *Config
	queue    *Queue
	groups   []*writerGroup
	bindings []*sinkBinding

	inflight atomic.Int64 // Producers between acquiring the pipeline and finishing their enqueue
	closed   atomic.Bool

	flushRequestChan chan chan struct{}
	stopCh           chan struct{}
	done             chan struct{}
	startOnce        sync.Once
	stopOnce         sync.Once
	deadline         time.Time // Set before stopCh is closed
	stopErr          error     // Valid once done is closed

	dispatched        atomic.Uint64
	droppedOnShutdown atomic.Uint64
}

// batch is a dequeued run of records shared by all writer groups.
// The last group to finish with it returns it to the pool.
type batch struct {
	records []Record
	refs    atomic.Int32
}

var batchPool = sync.Pool{
	New: func() any { return &batch{} },
}

func (b *batch) release() {
	if b.refs.Add(-1) == 0 {
		clear(b.records)
		b.records = b.records[:0]
		batchPool.Put(b)
	}
}

// groupOp is a unit of work for a writer group: a batch to write, a flush, or both
type groupOp struct {
	batch *batch
	flush bool
	ack   *sync.WaitGroup
}

// writerGroup owns a set of sinks and writes to them from a single goroutine
type writerGroup struct {
	id       int
	p        *pipeline
	bindings []*sinkBinding
	work     chan groupOp
	closeErr error
}

func newPipeline(r *Registry, cfg *Config, bindings []*sinkBinding, base uint64) *pipeline {
	p := &pipeline{
		reg:              r,
		cfg:              cfg,
		queue:            newQueueAt(cfg.QueueCapacity, cfg.OverflowPolicy, cfg.BlockTimeout, base),
		bindings:         bindings,
		flushRequestChan: make(chan chan struct{}, 1),
		stopCh:           make(chan struct{}),
		done:             make(chan struct{}),
	}
	p.groups = make([]*writerGroup, cfg.Writers)
	for i := range p.groups {
		p.groups[i] = &writerGroup{id: i, p: p, work: make(chan groupOp, 4)}
	}
	for _, b := range bindings {
		g := p.groups[b.group]
		g.bindings = append(g.bindings, b)
	}
	return p
}

// start launches the writer groups and the processor goroutine
func (p *pipeline) start() {
	p.startOnce.Do(func() {
		for _, b := range p.bindings {
			if ro, ok := b.sink.(reopener); ok {
				if err := ro.reopen(); err != nil {
					p.sinkFailed(b, "open", err)
				}
			}
		}

		var eg errgroup.Group
		for _, g := range p.groups {
			eg.Go(g.run)
		}
		go p.processLogs(&eg)
	})
}

// stop closes the queue, signals the processor and waits for it to drain,
// flush and close the sinks. The drain stops at deadline; sinks get a short
// grace period past it to finish their in-flight writes.
func (p *pipeline) stop(deadline time.Time) error {
	p.stopOnce.Do(func() {
		p.start()
		p.deadline = deadline
		p.queue.Close()
		close(p.stopCh)
	})

	timer := time.NewTimer(time.Until(deadline) + shutdownGrace)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.stopErr
	case <-timer.C:
		return fmtErrorf("pipeline did not stop within timeout (%v past deadline)", shutdownGrace)
	}
}

// exited reports whether the processor and all writer groups have returned
func (p *pipeline) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// processLogs is the main dispatch loop running in a separate goroutine
func (p *pipeline) processLogs(eg *errgroup.Group) {
	timers := p.setupProcessingTimers()
	defer p.closeProcessingTimers(timers)

	for {
		if b := p.nextBatch(p.cfg.BatchSize); b != nil {
			p.dispatch(b)

			// Keep timers and requests serviced under sustained load
			select {
			case <-timers.flushTicker.C:
				p.handleFlushTick()
			case confirmChan := <-p.flushRequestChan:
				p.handleFlushRequest(confirmChan)
			case <-timers.heartbeatChan:
				p.handleHeartbeat()
			case <-p.stopCh:
				p.shutdown(eg)
				return
			default:
			}
			continue
		}

		if !p.queue.Park() {
			// A producer claimed a slot but has not finished writing it
			runtime.Gosched()
			continue
		}

		select {
		case <-p.queue.Ready():
		case <-timers.flushTicker.C:
			p.handleFlushTick()
		case confirmChan := <-p.flushRequestChan:
			p.handleFlushRequest(confirmChan)
		case <-timers.heartbeatChan:
			p.handleHeartbeat()
		case <-p.stopCh:
			p.queue.Unpark()
			p.shutdown(eg)
			return
		}
		p.queue.Unpark()
	}
}

// nextBatch dequeues up to max records into a pooled batch, nil if none are ready
func (p *pipeline) nextBatch(max int) *batch {
	b := batchPool.Get().(*batch)
	b.records = p.queue.DequeueBatch(b.records[:0], max)
	if len(b.records) == 0 {
		batchPool.Put(b)
		return nil
	}
	return b
}

// dispatch hands a batch of queued records to the writer groups
func (p *pipeline) dispatch(b *batch) {
	p.dispatched.Add(uint64(len(b.records)))
	p.fanOut(b)
}

// fanOut hands the batch to every writer group that has sinks
func (p *pipeline) fanOut(b *batch) {
	n := 0
	for _, g := range p.groups {
		if len(g.bindings) > 0 {
			n++
		}
	}
	if n == 0 {
		b.refs.Store(1)
		b.release()
		return
	}

	b.refs.Store(int32(n))
	for _, g := range p.groups {
		if len(g.bindings) > 0 {
			g.work <- groupOp{batch: b}
		}
	}
}

// flushGroups asks every group to flush its sinks, optionally waiting for completion
func (p *pipeline) flushGroups(wait bool) {
	var ack *sync.WaitGroup
	if wait {
		ack = &sync.WaitGroup{}
		ack.Add(len(p.groups))
	}
	for _, g := range p.groups {
		g.work <- groupOp{flush: true, ack: ack}
	}
	if ack != nil {
		ack.Wait()
	}
}

// handleFlushTick handles the periodic flush timer tick
func (p *pipeline) handleFlushTick() {
	p.flushGroups(false)
}

// handleFlushRequest dispatches every record queued before the request,
// flushes all sinks and signals completion back to the Flush caller
func (p *pipeline) handleFlushRequest(confirmChan chan struct{}) {
	pending := p.queue.Len()
	for pending > 0 {
		b := p.nextBatch(p.cfg.BatchSize)
		if b == nil {
			if p.queue.Len() == 0 {
				break
			}
			runtime.Gosched()
			continue
		}
		pending -= len(b.records)
		p.dispatch(b)
	}
	p.flushGroups(true)
	close(confirmChan)
}

// shutdown drains the queue until empty or the deadline, counts what is left,
// then flushes and closes the sinks
func (p *pipeline) shutdown(eg *errgroup.Group) {
	defer close(p.done)

	for {
		if b := p.nextBatch(p.cfg.BatchSize); b != nil {
			p.dispatch(b)
			if !time.Now().Before(p.deadline) {
				break
			}
			continue
		}
		if p.queue.Len() == 0 || !time.Now().Before(p.deadline) {
			break
		}
		runtime.Gosched()
	}

	if n := p.queue.Discard(); n > 0 {
		p.droppedOnShutdown.Add(uint64(n))
		p.reg.internalLog("warning - %d records dropped at shutdown deadline\n", n)
	}

	// Answer a flush request that raced with the stop signal
	select {
	case confirmChan := <-p.flushRequestChan:
		p.flushGroups(true)
		close(confirmChan)
	default:
	}

	for _, g := range p.groups {
		close(g.work)
	}
	_ = eg.Wait()

	var finalErr error
	for _, g := range p.groups {
		finalErr = combineErrors(finalErr, g.closeErr)
	}
	p.stopErr = finalErr
}

// run processes work until the channel is closed, then flushes and closes the group's sinks
func (g *writerGroup) run() error {
	for op := range g.work {
		if op.batch != nil {
			g.write(op.batch.records)
			op.batch.release()
		}
		if op.flush {
			g.flush()
		}
		if op.ack != nil {
			op.ack.Done()
		}
	}
	g.closeErr = g.close()
	return g.closeErr
}

func (g *writerGroup) write(records []Record) {
	for _, b := range g.bindings {
		selected := b.selectRecords(records)
		if len(selected) == 0 {
			continue
		}
		err := b.sink.Write(selected)
		b.release()
		if err != nil {
			g.p.sinkFailed(b, "write", err)
			continue
		}
		b.stats.written.Add(uint64(len(selected)))
		g.p.sinkRecovered(b)
	}
}

func (g *writerGroup) flush() {
	for _, b := range g.bindings {
		if err := b.sink.Flush(); err != nil {
			g.p.sinkFailed(b, "flush", err)
		}
	}
}

// close flushes every sink and closes the ones owned by the pipeline
func (g *writerGroup) close() error {
	var finalErr error
	for _, b := range g.bindings {
		if err := b.sink.Flush(); err != nil {
			finalErr = combineErrors(finalErr, &SinkWriteError{Sink: b.name, Op: "flush", Err: err})
		}
		if !b.owned {
			continue
		}
		if err := b.sink.Close(); err != nil {
			finalErr = combineErrors(finalErr, &SinkWriteError{Sink: b.name, Op: "close", Err: err})
		}
	}
	return finalErr
}

// sinkFailed records a sink error and reports it once per failure streak
func (p *pipeline) sinkFailed(b *sinkBinding, op string, err error) {
	sinkErr := &SinkWriteError{Sink: b.name, Op: op, Err: err}
	b.stats.errors.Add(1)
	b.stats.lastErr.Store(sinkErr)
	if !b.failing {
		b.failing = true
		p.reg.internalLog("sink '%s' %s failed: %v\n", b.name, op, err)
	}
}

func (p *pipeline) sinkRecovered(b *sinkBinding) {
	if b.failing {
		b.failing = false
		p.reg.internalLog("sink '%s' recovered after %d errors\n", b.name, b.stats.errors.Load())
	}
}
