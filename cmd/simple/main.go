package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lixenwraith/logpp"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
level = "debug"
flush_interval = "100ms"
shutdown_timeout = "2s"

[loggers]
"app.db" = "warn"

[[sinks]]
type = "console"
target = "split"
format = "pattern"
pattern = "%L%H:%M:%S.%i [%l] %n: %v%f[ ]"

[[sinks]]
name = "file"
type = "file"
target = "./simple_logs/app.log"
format = "json"
`

func main() {
	fmt.Println("--- Simple Logger Example ---")

	// --- Setup Config ---
	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created example config file: %s\n", configFile)

	// --- Initialize Logger ---
	// Command line arguments such as --logpp.level=info override the file
	if err := logpp.InitFromFile(configFile, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logger initialized.")

	app := logpp.Get("app")
	db := logpp.Get("app.db")

	// --- Logging ---
	app.Debug("This is a debug message.", logpp.Int("user_id", 123))
	app.Info("Application starting...")
	app.Warnf("Potential issue detected, threshold {}", 0.95)
	app.Error("An error occurred!", logpp.Int("code", 500), logpp.Err(errors.New("connection reset")))
	db.Info("Filtered by the app.db override")
	db.Warn("Slow query", logpp.Duration("took", 1200*time.Millisecond))

	// Logging from goroutines
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker := app.Named("worker").With(logpp.Int("id", id))
			worker.Info("Goroutine started")
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			worker.Info("Goroutine finished")
		}(i)
	}

	// Wait for goroutines to finish before shutting down logger
	wg.Wait()
	fmt.Println("Goroutines finished.")

	stats := logpp.Default().Stats()
	fmt.Printf("Enqueued %d, dropped %d\n", stats.Enqueued, stats.Dropped())

	// --- Shutdown Logger ---
	fmt.Println("Shutting down logger...")
	if err := logpp.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	fmt.Println("--- Example Finished ---")
	fmt.Printf("Check log files in './simple_logs' and the config '%s'.\n", configFile)
}
