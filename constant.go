package logpp

import (
	"time"
)

// Overflow policies applied when the queue is full
const (
	PolicyBlock      = "block"
	PolicyDropNewest = "drop-newest"
	PolicyDropOldest = "drop-oldest"
)

// Sink types
const (
	SinkConsole     = "console"
	SinkFile        = "file"
	SinkRollingFile = "rolling_file"
	SinkNull        = "null"
)

// Encoder formats
const (
	FormatPattern = "pattern"
	FormatLogfmt  = "logfmt"
	FormatJSON    = "json"
)

// Archive strategies for rolling file sinks
const (
	ArchiveIncremental = "incremental"
	ArchiveTimestamp   = "timestamp"
)

// Archive compression
const (
	CompressGzip   = "gzip"
	CompressBrotli = "brotli"
)

// Console targets
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
	TargetSplit  = "split"
)

// Console color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// File flush policies
const (
	FlushBatch  = "batch"
	FlushRecord = "record"
)

// Queue
const (
	// Retries a drop-oldest producer makes before dropping its own record
	dropOldestRetries = 4
	// Upper bound for queue capacity after power-of-two rounding
	maxQueueCapacity = 1 << 24
)

// Call site capture
const (
	// Deepest call chain attached as a trace field
	maxTraceDepth = 10
	// Frames between runtime.Callers and the exported logging method's caller
	callerSkip = 4
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Bound on how long a flush request waits to be accepted by the processor
	flushRequestTimeout = 100 * time.Millisecond
	// Extra time Shutdown waits past the drain deadline for sinks to flush and close
	shutdownGrace = time.Second
)

// Storage
const (
	// Write buffer size for file backed sinks
	fileBufferSize = 64 * 1024
	// Size multiplier for KB, MB, GB
	sizeMultiplier = 1024
	// Default archive layout for the timestamp strategy
	defaultArchiveLayout = "20060102"
)

// internalLoggerName is the logger name used for records the pipeline emits about itself
const internalLoggerName = "logpp"

// nilText renders a nil receiver whose String or Error method panics
const nilText = "<nil>"
