package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/logpp"
)

// Simulate rapid reconfiguration while a producer keeps logging
func main() {
	var count atomic.Int64

	// Initialize the registry with a null sink so only the pipeline is exercised
	reg, err := logpp.NewBuilder().
		LevelString("debug").
		Null().
		Build()
	if err != nil {
		fmt.Printf("Initial Init error: %v\n", err)
		return
	}
	logger := reg.Logger("reconfig")

	// Log something constantly
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			logger.Info("Test log", logpp.Int("i", i))
			count.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	// Trigger multiple reconfigurations rapidly
	for i := 0; i < 10; i++ {
		// Use different queue capacities to force a new pipeline each time
		capacity := fmt.Sprintf("queue_capacity=%d", 128*(i+1))
		if err := reg.ApplyOverride(capacity, "overflow_policy=drop-oldest"); err != nil {
			fmt.Printf("Reload error: %v\n", err)
		}
		// Minimal delay between reconfigurations
		time.Sleep(10 * time.Millisecond)
	}

	close(stop)
	<-done

	// Gracefully shut down the registry
	if err := reg.Shutdown(time.Second); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}

	// Every attempted record is either dispatched or counted as dropped
	stats := reg.Stats()
	fmt.Printf("Total logs attempted: %d\n", count.Load())
	fmt.Printf("Reloads: %d  Dispatched: %d  Dropped: %d  Queued: %d\n",
		stats.Reloads, stats.Dispatched, stats.Dropped(), stats.QueueLen)
	if accounted := stats.Dispatched + stats.Dropped() + uint64(stats.QueueLen); accounted != uint64(count.Load()) {
		fmt.Printf("Inconsistency: %d records accounted for\n", accounted)
		os.Exit(1)
	}
}
