package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/logpp"
)

func main() {
	// Create test log directory if it doesn't exist
	if err := os.MkdirAll("./logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create test logs directory: %v\n", err)
		os.Exit(1)
	}

	// Test cycle: disabled -> fast -> slow -> disabled
	intervals := []struct {
		interval    string
		description string
	}{
		{"0", "Heartbeats disabled"},
		{"1s", "Heartbeats every second"},
		{"3s", "Heartbeats every 3 seconds"},
		{"0", "Heartbeats disabled (final)"},
	}

	// A single registry that we'll reconfigure
	reg, err := logpp.NewBuilder().
		LevelString("debug").
		Console(logpp.TargetStdout).
		RollingFile("./logs/heartbeat.log", "64KB", "").
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := reg.Logger("heartbeat.test")

	for _, hb := range intervals {
		// Reloading replaces the pipeline, heartbeat records carry cumulative counters
		if err := reg.ApplyOverride("heartbeat_interval=" + hb.interval); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reconfigure logger: %v\n", err)
			os.Exit(1)
		}

		// Log the current test state
		fmt.Printf("\n--- Testing heartbeat interval %s: %s ---\n", hb.interval, hb.description)
		logger.Info("Heartbeat test started", logpp.String("interval", hb.interval))

		// Generate some logs to move the counters
		for j := 0; j < 10; j++ {
			logger.Debug("Debug test log", logpp.Int("iteration", j))
			logger.Info("Info test log", logpp.Int("iteration", j))
			logger.Warn("Warning test log", logpp.Int("iteration", j))
			logger.Error("Error test log", logpp.Int("iteration", j))
			time.Sleep(100 * time.Millisecond)
		}

		// Wait for heartbeats to generate
		waitTime := 4 * time.Second
		fmt.Printf("Waiting %v for heartbeats to generate...\n", waitTime)
		time.Sleep(waitTime)

		logger.Info("Heartbeat test completed", logpp.String("interval", hb.interval))
	}

	// Final shutdown
	if err := reg.Shutdown(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to shut down logger: %v\n", err)
	}

	fmt.Printf("\nHeartbeat test program completed, %d heartbeats emitted\n", reg.Stats().Heartbeats)
	fmt.Println("Check logs directory for generated log files")
}
