// FILE: example/watch/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/logpp"
)

const configFile = "watch_config.yaml"

var initialConfig = `
level: info
loggers:
  app.cache: warn
sinks:
  - type: console
    target: stdout
`

var updatedConfig = `
level: debug
loggers:
  app.cache: trace
sinks:
  - type: console
    target: stdout
`

// Edit the level settings of a watched file and see them applied without a restart
func main() {
	if err := os.WriteFile(configFile, []byte(initialConfig), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(configFile)

	if err := logpp.InitFromFile(configFile, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logpp.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := logpp.Default().WatchConfig(ctx, configFile, 100*time.Millisecond); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to watch config: %v\n", err)
		os.Exit(1)
	}

	app := logpp.Get("app")
	cache := logpp.Get("app.cache")

	logRound := func(round int) {
		app.Debug("app debug", logpp.Int("round", round))
		app.Info("app info", logpp.Int("round", round))
		cache.Trace("cache trace", logpp.Int("round", round))
		cache.Warn("cache warn", logpp.Int("round", round))
		_ = logpp.Flush(time.Second)
	}

	fmt.Println("--- Initial levels ---")
	logRound(1)

	if err := os.WriteFile(configFile, []byte(updatedConfig), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to update config: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(500 * time.Millisecond)

	fmt.Println("--- Updated levels ---")
	logRound(2)

	for name, lvl := range logpp.Default().Levels() {
		fmt.Printf("%-10s %s\n", name, lvl)
	}
}
