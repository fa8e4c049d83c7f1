// FILE: example/sink/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/logpp"
)

const (
	logDirectory = "./temp_logs"
	logInterval  = 200 * time.Millisecond // Shorter interval for quicker tests
)

// main orchestrates the different test scenarios.
func main() {
	// Ensure a clean state by removing the previous log directory.
	if err := os.RemoveAll(logDirectory); err != nil {
		fmt.Printf("Warning: could not remove old log directory: %v\n", err)
	}
	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		fmt.Printf("Fatal: could not create log directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--- Running Sink Test Suite ---")
	fmt.Printf("! All file-based logs will be in the '%s' directory.\n\n", logDirectory)

	// --- Scenario 1: Test different sink tables on fresh registries ---
	fmt.Println("--- SCENARIO 1: Testing sink tables in isolation (new registry per test) ---")
	runIsolated("1.1: File-Only", fileSink("file_only.log"))
	runIsolated("1.2: Stdout-Only", consoleSink(logpp.TargetStdout))
	fmt.Fprintln(os.Stderr, "\n---") // Separator for stderr output
	runIsolated("1.3: Stderr-Only", consoleSink(logpp.TargetStderr))
	fmt.Fprintln(os.Stderr, "---")
	runIsolated("1.4: No-Output (records are discarded)", logpp.DefaultSinkConfig(logpp.SinkNull))
	runIsolated("1.5: Routed (errors to their own file)", fileSink("routed_all.log"), errorsOnly("routed_errors.log"))

	// --- Scenario 2: Test reloading a single registry ---
	fmt.Println("\n--- SCENARIO 2: Testing reloads on a single registry ---")
	testReloadTransitions()

	fmt.Println("\n--- Sink Test Suite Complete ---")
	fmt.Printf("Check the '%s' directory for log files.\n", logDirectory)
}

func fileSink(name string) logpp.SinkConfig {
	sc := logpp.DefaultSinkConfig(logpp.SinkFile)
	sc.Name = name
	sc.Target = filepath.Join(logDirectory, name)
	return sc
}

func consoleSink(target string) logpp.SinkConfig {
	sc := logpp.DefaultSinkConfig(logpp.SinkConsole)
	sc.Name = target
	sc.Target = target
	return sc
}

func errorsOnly(name string) logpp.SinkConfig {
	sc := fileSink(name)
	sc.Level = logpp.LevelError
	sc.Format = logpp.FormatJSON
	return sc
}

func newConfig(sinks ...logpp.SinkConfig) *logpp.Config {
	cfg := logpp.DefaultConfig()
	cfg.Level = logpp.LevelDebug
	cfg.Sinks = sinks
	return cfg
}

// runIsolated builds a registry for one sink table, logs a phase and shuts it down
func runIsolated(phaseName string, sinks ...logpp.SinkConfig) {
	fmt.Printf("\n[Phase %s]\n", phaseName)
	reg, err := logpp.NewRegistry(newConfig(sinks...))
	if err != nil {
		fmt.Printf("  ERROR: Failed to initialize registry: %v\n", err)
		os.Exit(1)
	}
	logPhase(reg.Logger("sink.test"), phaseName)
	shutdownRegistry(reg, phaseName)
}

// testReloadTransitions tests the registry's ability to swap sink tables.
func testReloadTransitions() {
	reg, err := logpp.NewRegistry(newConfig(fileSink("reload.log"), consoleSink(logpp.TargetStdout)))
	if err != nil {
		fmt.Printf("  ERROR: Failed to initialize registry: %v\n", err)
		os.Exit(1)
	}
	logger := reg.Logger("sink.reload")

	// Phase A: Start with dual output
	fmt.Println("\n[Phase 2.1: Reload - Initial (Dual File+Stdout)]")
	logPhase(logger, "2.1")

	// Phase B: Transition to stdout only
	reloadPhase(reg, logger, "2.2: Reload - Transition to Stdout-Only", consoleSink(logpp.TargetStdout))

	// Phase C: Transition back to dual output, appending to the same file
	reloadPhase(reg, logger, "2.3: Reload - Transition back to Dual (File+Stdout)",
		fileSink("reload.log"), consoleSink(logpp.TargetStdout))

	// Phase D: Test different levels on the final reloaded state
	fmt.Println("\n[Phase 2.4: Reload - Testing log levels on final state]")
	logger.Debug("This is a debug message.", logpp.String("state", "final"))
	logger.Info("This is an info message.", logpp.String("state", "final"))
	logger.Warn("This is a warning message.", logpp.String("state", "final"))
	logger.Error("This is an error message.", logpp.String("state", "final"))
	time.Sleep(logInterval)

	fmt.Printf("  Reloads: %d\n", reg.Stats().Reloads)
	shutdownRegistry(reg, "2: Reload")
}

func reloadPhase(reg *logpp.Registry, logger *logpp.Logger, phaseName string, sinks ...logpp.SinkConfig) {
	fmt.Printf("\n[Phase %s]\n", phaseName)
	if err := reg.Reload(newConfig(sinks...)); err != nil {
		fmt.Printf("  ERROR: Failed to reload registry: %v\n", err)
		os.Exit(1)
	}
	logPhase(logger, phaseName)
}

// logPhase is a helper to run a standard logging phase.
func logPhase(logger *logpp.Logger, phaseName string) {
	logger.Info("start_phase", logpp.String("name", phaseName))
	time.Sleep(logInterval)
	logger.Info("end_phase", logpp.String("name", phaseName))
	time.Sleep(logInterval) // Give time for flush
}

// shutdownRegistry is a helper to gracefully shut down a registry.
func shutdownRegistry(reg *logpp.Registry, phaseName string) {
	if err := reg.Shutdown(500 * time.Millisecond); err != nil {
		fmt.Printf("  WARNING: Shutdown error in phase '%s': %v\n", phaseName, err)
	}
}
