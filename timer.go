package logpp

import (
	"time"
)

// setupProcessingTimers creates and configures all necessary timers for the processor
func (p *pipeline) setupProcessingTimers() *TimerSet {
	timers := &TimerSet{}

	// Set up flush timer
	flushInterval := p.cfg.FlushInterval
	if flushInterval < minWaitTime {
		flushInterval = minWaitTime
	}
	timers.flushTicker = time.NewTicker(flushInterval)

	// Set up heartbeat timer
	timers.heartbeatChan = p.setupHeartbeatTimer(timers)

	return timers
}

// setupHeartbeatTimer configures the heartbeat timer if heartbeats are enabled
func (p *pipeline) setupHeartbeatTimer(timers *TimerSet) <-chan time.Time {
	if p.cfg.HeartbeatInterval <= 0 {
		return nil
	}
	interval := p.cfg.HeartbeatInterval
	if interval < minWaitTime {
		interval = minWaitTime
	}
	timers.heartbeatTicker = time.NewTicker(interval)
	return timers.heartbeatTicker.C
}

// closeProcessingTimers stops all active timers
func (p *pipeline) closeProcessingTimers(timers *TimerSet) {
	timers.flushTicker.Stop()
	if timers.heartbeatTicker != nil {
		timers.heartbeatTicker.Stop()
	}
}
