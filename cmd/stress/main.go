package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lixenwraith/logpp"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 10000
	numWorkers     = 500
)

const configFile = "stress_config.toml"
const logsDir = "./logs"

// Example TOML content for stress test
var tomlContent = `
# Example stress_config.toml
level = "debug"
queue_capacity = 4096
overflow_policy = "drop-oldest"
batch_size = 512
writers = 2
flush_interval = "50ms"
shutdown_timeout = "10s"
heartbeat_interval = "2s"

[[sinks]]
name = "rolling"
type = "rolling_file"
target = "./logs/stress.log"
format = "logfmt"
max_size = "1MB"     # Force frequent rotation
max_files = 20       # Keep the directory bounded
compress = "gzip"
writer = 1

[[sinks]]
name = "errors"
type = "file"
target = "./logs/errors.log"
format = "json"
level = "error"
writer = 2
`

var levels = []logpp.Level{
	logpp.LevelDebug,
	logpp.LevelInfo,
	logpp.LevelWarn,
	logpp.LevelError,
}

var (
	logger *logpp.Logger
	logged atomic.Uint64
)

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(burstID int) {
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msgSize := rand.Intn(maxMessageSize) + 10
		logger.LogFields(level, generateRandomMessage(msgSize),
			logpp.Int("wkr", burstID%numWorkers),
			logpp.Int("bst", burstID),
			logpp.Int("seq", i),
			logpp.Int64("rnd", rand.Int63()),
		)
		if level >= logger.Level() {
			logged.Add(1)
		}
	}
}

// worker goroutine function
func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func main() {
	fmt.Println("--- Logger Stress Test ---")

	// --- Setup Config ---
	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created example config file: %s\n", configFile)
	_ = os.RemoveAll(logsDir) // Clean previous run's LOGS directory before starting

	cfg, err := logpp.LoadConfigFile(configFile, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// --- Initialize Logger ---
	reg, err := logpp.NewRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = reg.Logger("stress")
	fmt.Printf("Logger initialized. Logs will be written to: %s\n", logsDir)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Check log directory size and file rotation.")
	fmt.Println("Press Ctrl+C to stop early.")

	// --- Setup Workers and Signal Handling ---
	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	// --- Run Test ---
	startTime := time.Now()
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			goto endLoop
		}
	}
endLoop:
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	// Per-sink counters belong to the active pipeline, read them before shutdown
	if err := reg.Flush(5 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Flush error: %v\n", err)
	}
	for _, s := range reg.Stats().Sinks {
		fmt.Printf("Sink %-8s group=%d written=%d errors=%d rotations=%d\n", s.Name, s.Group, s.Written, s.Errors, s.Rotations)
	}

	// --- Shutdown Logger ---
	fmt.Println("Shutting down logger...")
	if err := reg.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	stats := reg.Stats()
	fmt.Printf("Enqueued: %d  Dispatched: %d  Dropped oldest: %d  Dropped newest: %d  Dropped on shutdown: %d\n",
		stats.Enqueued, stats.Dispatched, stats.DroppedOldest, stats.DroppedNewest, stats.DroppedOnShutdown)
	accounted := stats.Dispatched + stats.Dropped()
	fmt.Printf("Logged: %d  Accounted: %d  Heartbeats: %d\n", logged.Load(), accounted, stats.Heartbeats)
	if accounted != logged.Load() {
		fmt.Fprintln(os.Stderr, "Record counts do not reconcile")
		os.Exit(1)
	}

	fmt.Printf("Check log files in '%s' and the config '%s'.\n", logsDir, configFile)
}
