package logpp

import (
	"strconv"
	"strings"
)

// Level is the severity of a record, ordered from least to most severe
type Level int32

// Log levels
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	// LevelOff is only meaningful as a threshold and disables all output
	LevelOff
)

var levelNames = [...]string{
	LevelTrace:    "trace",
	LevelDebug:    "debug",
	LevelInfo:     "info",
	LevelWarn:     "warn",
	LevelError:    "error",
	LevelCritical: "critical",
	LevelOff:      "off",
}

var levelUpperNames = [...]string{
	LevelTrace:    "TRACE",
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarn:     "WARN",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
	LevelOff:      "OFF",
}

// levelShortNames are the single letter forms written by the %s pattern flag
var levelShortNames = [...]string{
	LevelTrace:    "T",
	LevelDebug:    "D",
	LevelInfo:     "I",
	LevelWarn:     "W",
	LevelError:    "E",
	LevelCritical: "C",
	LevelOff:      "O",
}

// String returns the lower case level name
func (l Level) String() string {
	if l.valid() {
		return levelNames[l]
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// Upper returns the upper case level name
func (l Level) Upper() string {
	if l.valid() {
		return levelUpperNames[l]
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

func (l Level) short() string {
	if l.valid() {
		return levelShortNames[l]
	}
	return "?"
}

func (l Level) valid() bool {
	return l >= LevelTrace && l <= LevelOff
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// ParseLevel converts a level name to its Level value.
// Matching is case-insensitive; "warning" and "fatal" are accepted as aliases.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	case "off", "none":
		return LevelOff, nil
	default:
		return LevelOff, fmtErrorf("invalid level name '%s' (use trace, debug, info, warn, error, critical, off)", name)
	}
}
