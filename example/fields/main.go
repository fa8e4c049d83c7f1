// FILE: example/fields/main.go
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lixenwraith/logpp"
)

// TestPayload defines a struct for testing complex type rendering.
type TestPayload struct {
	RequestID uint64
	User      string
	Metrics   map[string]float64
}

func main() {
	fmt.Println("--- Field Rendering Test ---")

	// Record 1: A string with special characters (newline, tab, null).
	special := "binary\ndata\twith\x00null"

	// Record 2: A struct containing a uint64, a string, and a map.
	payload := TestPayload{
		RequestID: 9223372036854775807, // A large uint64
		User:      "test_user",
		Metrics: map[string]float64{
			"latency_ms":  15.7,
			"cpu_percent": 88.2,
		},
	}

	// The same records through every encoder
	for _, format := range []string{logpp.FormatPattern, logpp.FormatLogfmt, logpp.FormatJSON} {
		fmt.Printf("\n[%s]\n", format)

		sc := logpp.DefaultSinkConfig(logpp.SinkConsole)
		sc.Target = logpp.TargetStdout
		sc.Format = format
		sc.Color = logpp.ColorNever

		reg, err := logpp.NewBuilder().LevelString("debug").Sink(sc).Build()
		if err != nil {
			fmt.Printf("Failed to initialize logger: %v\n", err)
			return
		}
		logger := reg.Logger("fields")

		logger.Info("special characters", logpp.String("value", special))
		logger.Info("struct payload", logpp.Any("payload", payload))
		logger.Debug("struct dump", logpp.Dump("payload", payload))
		logger.Warn("scalars",
			logpp.Uint64("request_id", payload.RequestID),
			logpp.Float64("ratio", 0.25),
			logpp.Bool("cached", true),
			logpp.Duration("took", 15*time.Millisecond),
			logpp.Err(errors.New("upstream \"timeout\"")),
		)
		logger.Infof("template {} of {}", 3, 10)

		if err := reg.Shutdown(time.Second); err != nil {
			fmt.Printf("Shutdown error: %v\n", err)
		}
	}

	fmt.Println("\n--- Test Complete ---")
}
