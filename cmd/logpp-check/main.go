// Command logpp-check validates a logpp configuration file and prints the
// effective settings.
//
// Usage:
//
//	logpp-check <config.toml|config.yaml> [logger ...] [--logpp.<key>=<value> ...]
//
// Logger names given after the file print the level each one resolves to.
package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lixenwraith/logpp"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitInvalid = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var path string
	var loggers, overrides []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--logpp."):
			overrides = append(overrides, arg)
		case path == "":
			path = arg
		default:
			loggers = append(loggers, arg)
		}
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: logpp-check <config file> [logger ...] [--logpp.<key>=<value> ...]")
		return exitUsage
	}

	cfg, err := logpp.LoadConfigFile(path, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		if !errors.Is(err, logpp.ErrConfig) {
			return exitUsage
		}
		return exitInvalid
	}

	fmt.Printf("%s: OK\n\n", path)
	printConfig(cfg)

	if len(loggers) > 0 {
		fmt.Println("\nEffective levels:")
		for _, name := range loggers {
			fmt.Printf("  %-24s %s\n", name, cfg.EffectiveLevel(name))
		}
	}
	return exitOK
}

func printConfig(cfg *logpp.Config) {
	fmt.Printf("level              %s\n", cfg.Level)
	fmt.Printf("queue_capacity     %d (%s)\n", cfg.QueueCapacity, cfg.OverflowPolicy)
	fmt.Printf("block_timeout      %v\n", cfg.BlockTimeout)
	fmt.Printf("batch_size         %d\n", cfg.BatchSize)
	fmt.Printf("writers            %d\n", cfg.Writers)
	fmt.Printf("flush_interval     %v\n", cfg.FlushInterval)
	fmt.Printf("shutdown_timeout   %v\n", cfg.ShutdownTimeout)
	fmt.Printf("heartbeat_interval %v\n", cfg.HeartbeatInterval)
	fmt.Printf("sink_fallback      %t\n", cfg.SinkFallback)
	fmt.Printf("caller             %t\n", cfg.Caller)
	fmt.Printf("trace_depth        %d\n", cfg.TraceDepth)

	if len(cfg.Loggers) > 0 {
		fmt.Println("\nLogger overrides:")
		prefixes := make([]string, 0, len(cfg.Loggers))
		for prefix := range cfg.Loggers {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			fmt.Printf("  %-24s %s\n", prefix, cfg.Loggers[prefix])
		}
	}

	fmt.Printf("\nSinks (%d):\n", len(cfg.Sinks))
	for i, sc := range cfg.Sinks {
		fmt.Printf("  [%d] %-12s %-12s level=%s format=%s", i, sc.Name, sc.Type, sc.Level, sc.Format)
		if sc.Target != "" {
			fmt.Printf(" target=%s", sc.Target)
		}
		if sc.Type == logpp.SinkRollingFile {
			fmt.Printf(" max_size=%d interval=%q archive=%s max_files=%d", sc.MaxSize, sc.Interval, sc.Archive, sc.MaxFiles)
			if sc.Compress != "" {
				fmt.Printf(" compress=%s", sc.Compress)
			}
			if sc.MaxAge > 0 {
				fmt.Printf(" max_age=%s", sc.MaxAge)
			}
			if sc.MaxTotalSize > 0 {
				fmt.Printf(" max_total_size=%d", sc.MaxTotalSize)
			}
			if sc.MinDiskFree > 0 {
				fmt.Printf(" min_disk_free=%d", sc.MinDiskFree)
			}
		}
		if len(sc.Loggers) > 0 {
			fmt.Printf(" loggers=%s", strings.Join(sc.Loggers, ","))
		}
		fmt.Println()
	}
}
