package logpp

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

type cacheLinePad struct{ _ [64]byte }

// slot is one ring buffer cell. Relative to a claim position pos, seq encodes
// the slot state: seq == pos means free, a head past pos with seq still at pos
// means being written, seq == pos+1 means filled, a tail past pos with
// seq still at pos+1 means being read, and seq == pos+capacity frees the slot
// for the next lap.
type slot struct {
	seq atomic.Uint64
	rec Record
}

// Queue is a bounded multi-producer multi-consumer ring buffer of records.
// Producers claim slots by advancing head with a CAS, consumers by advancing
// tail; no lock is taken on either path. The overflow policy decides what
// happens when a producer finds the buffer full.
type Queue struct {
	_    cacheLinePad
	head atomic.Uint64 // next position to claim for enqueue
	_    cacheLinePad
	tail atomic.Uint64 // next position to claim for dequeue
	_    cacheLinePad

	mask    uint64
	slots   []slot
	policy  string
	timeout time.Duration
	closed  atomic.Bool

	// Blocked producers wait on spaceCh, replaced and closed on every signal
	spaceMu sync.Mutex
	spaceCh chan struct{}
	waiters atomic.Int32

	// The consumer parks on ready when the queue is empty
	parked atomic.Bool
	ready  chan struct{}

	enqueued       atomic.Uint64
	droppedNewest  atomic.Uint64
	droppedOldest  atomic.Uint64
	droppedTimeout atomic.Uint64
	droppedClosed  atomic.Uint64
}

// QueueStats is a point-in-time view of queue counters
type QueueStats struct {
	Capacity       int
	Len            int
	Enqueued       uint64
	DroppedNewest  uint64
	DroppedOldest  uint64
	DroppedTimeout uint64
	DroppedClosed  uint64
}

// NewQueue creates a queue holding at least capacity records.
// Capacity is rounded up to a power of two so positions map to slots by masking.
func NewQueue(capacity int, policy string, blockTimeout time.Duration) *Queue {
	return newQueueAt(capacity, policy, blockTimeout, 0)
}

// newQueueAt creates a queue whose first claim position is base rounded up to
// a multiple of the capacity, so record sequence numbers keep growing across
// queue replacements.
func newQueueAt(capacity int, policy string, blockTimeout time.Duration, base uint64) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > maxQueueCapacity {
		capacity = maxQueueCapacity
	}
	n := nextPowerOfTwo(capacity)

	q := &Queue{
		mask:    uint64(n - 1),
		slots:   make([]slot, n),
		policy:  policy,
		timeout: blockTimeout,
		spaceCh: make(chan struct{}),
		ready:   make(chan struct{}, 1),
	}
	if rem := base & q.mask; rem != 0 {
		base += uint64(n) - rem
	}
	q.head.Store(base)
	q.tail.Store(base)
	for i := range q.slots {
		q.slots[i].seq.Store(base + uint64(i))
	}
	return q
}

// Cap returns the number of slots
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Len returns the number of claimed, not yet dequeued slots
func (q *Queue) Len() int {
	tail := q.tail.Load()
	head := q.head.Load()
	n := int(head - tail)
	if n < 0 {
		return 0
	}
	if n > len(q.slots) {
		return len(q.slots)
	}
	return n
}

// Enqueue copies rec into the queue, applying the overflow policy when full.
// It reports whether the record was accepted; a rejected record has already
// been counted in exactly one drop counter.
func (q *Queue) Enqueue(rec *Record) bool {
	if q.closed.Load() {
		q.droppedClosed.Add(1)
		return false
	}

	if q.tryEnqueue(rec) {
		q.accepted()
		return true
	}

	switch q.policy {
	case PolicyDropNewest:
		q.droppedNewest.Add(1)
		return false

	case PolicyDropOldest:
		// Under contention the evicted record is only approximately the oldest
		var evicted Record
		for i := 0; i < dropOldestRetries; i++ {
			if q.tryDequeue(&evicted) {
				q.droppedOldest.Add(1)
			}
			if q.tryEnqueue(rec) {
				q.accepted()
				return true
			}
			runtime.Gosched()
		}
		q.droppedNewest.Add(1)
		return false

	default:
		return q.enqueueBlocking(rec)
	}
}

// enqueueBlocking waits for free space, bounded by the configured timeout
func (q *Queue) enqueueBlocking(rec *Record) bool {
	var timeoutC <-chan time.Time
	if q.timeout > 0 {
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	q.waiters.Add(1)
	defer q.waiters.Add(-1)

	for {
		// Load the wait channel before retrying so a signal in between is not lost
		ch := q.spaceChan()
		if q.tryEnqueue(rec) {
			q.accepted()
			return true
		}
		if q.closed.Load() {
			q.droppedClosed.Add(1)
			return false
		}
		q.wakeConsumer()

		select {
		case <-ch:
		case <-timeoutC:
			if q.tryEnqueue(rec) {
				q.accepted()
				return true
			}
			q.droppedTimeout.Add(1)
			return false
		}
	}
}

// tryEnqueue claims the next slot if one is free
func (q *Queue) tryEnqueue(rec *Record) bool {
	pos := q.head.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		dif := int64(seq - pos)
		switch {
		case dif == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.rec = *rec
				s.rec.Seq = pos
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.head.Load()
		case dif < 0:
			// Slot still holds a record from the previous lap
			return false
		default:
			pos = q.head.Load()
		}
	}
}

// tryDequeue claims the oldest filled slot and moves its record into out
func (q *Queue) tryDequeue(out *Record) bool {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		dif := int64(seq - (pos + 1))
		switch {
		case dif == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				*out = s.rec
				s.rec = Record{}
				s.seq.Store(pos + q.mask + 1)
				return true
			}
			pos = q.tail.Load()
		case dif < 0:
			// Empty, or the producer of this slot has not finished writing
			return false
		default:
			pos = q.tail.Load()
		}
	}
}

// DequeueBatch appends up to max records to dst in claim order
func (q *Queue) DequeueBatch(dst []Record, max int) []Record {
	start := len(dst)
	for len(dst)-start < max {
		dst = append(dst, Record{})
		if !q.tryDequeue(&dst[len(dst)-1]) {
			dst = dst[:len(dst)-1]
			break
		}
	}
	if len(dst) > start && q.waiters.Load() > 0 {
		q.signalSpace()
	}
	return dst
}

// Discard dequeues and drops every remaining record, returning the count
func (q *Queue) Discard() int {
	var r Record
	n := 0
	for q.tryDequeue(&r) {
		n++
	}
	if n > 0 {
		q.signalSpace()
	}
	return n
}

// Close rejects further enqueues and releases blocked producers.
// Records already in the queue stay available to consumers.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		q.signalSpace()
		q.wakeConsumer()
	}
}

// Closed reports whether Close was called
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

// Ready returns the channel the consumer parks on
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Park marks the consumer as waiting and reports whether it may block.
// A false return means records arrived and the consumer should drain again.
func (q *Queue) Park() bool {
	q.parked.Store(true)
	if q.Len() > 0 {
		q.parked.Store(false)
		return false
	}
	return true
}

// Unpark clears the parked flag after a wake-up
func (q *Queue) Unpark() {
	q.parked.Store(false)
}

// position returns the next claim position
func (q *Queue) position() uint64 {
	return q.head.Load()
}

// Stats returns the current counters
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Capacity:       len(q.slots),
		Len:            q.Len(),
		Enqueued:       q.enqueued.Load(),
		DroppedNewest:  q.droppedNewest.Load(),
		DroppedOldest:  q.droppedOldest.Load(),
		DroppedTimeout: q.droppedTimeout.Load(),
		DroppedClosed:  q.droppedClosed.Load(),
	}
}

func (q *Queue) accepted() {
	q.enqueued.Add(1)
	if q.parked.Load() {
		q.wakeConsumer()
	}
}

func (q *Queue) wakeConsumer() {
	q.parked.Store(false)
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) spaceChan() chan struct{} {
	q.spaceMu.Lock()
	ch := q.spaceCh
	q.spaceMu.Unlock()
	return ch
}

func (q *Queue) signalSpace() {
	q.spaceMu.Lock()
	close(q.spaceCh)
	q.spaceCh = make(chan struct{})
	q.spaceMu.Unlock()
}
