package logpp

import (
	"time"
)

// Record is a single log entry. It is immutable once built: the queue slot
// holding it owns it until a writer dequeues it, and a sink only borrows it for
// the duration of one Write call.
type Record struct {
	// Time carries both wall clock and monotonic readings
	Time    time.Time
	Level   Level
	Logger  string
	Message string
	Fields  []Field
	// Caller is the file:line of the logging call when caller capture is on
	Caller string
	// Seq is the queue slot claim position, assigned on enqueue
	Seq uint64
}

// Field returns the value of the first field with the given key
func (r *Record) Field(key string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// TimerSet holds all timers used by the processor loop
type TimerSet struct {
	flushTicker     *time.Ticker
	heartbeatTicker *time.Ticker
	heartbeatChan   <-chan time.Time
}
