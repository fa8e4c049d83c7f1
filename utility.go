package logpp

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "logpp: ") {
		format = "logpp: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	return multierr.Append(err1, err2)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// parseSize converts "512", "64KB", "10MB" or "1GB" to bytes
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmtErrorf("empty size")
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", sizeMultiplier * sizeMultiplier * sizeMultiplier},
		{"MB", sizeMultiplier * sizeMultiplier},
		{"KB", sizeMultiplier},
		{"G", sizeMultiplier * sizeMultiplier * sizeMultiplier},
		{"M", sizeMultiplier * sizeMultiplier},
		{"K", sizeMultiplier},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmtErrorf("invalid size '%s': %w", s, err)
	}
	if n < 0 {
		return 0, fmtErrorf("size cannot be negative: %d", n)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmtErrorf("size '%s' overflows int64", s)
	}
	return n * multiplier, nil
}

// nextPowerOfTwo rounds n up to a power of two
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// matchesPrefix reports whether a dotted logger name falls under prefix.
// "app" matches "app" and "app.db" but not "application".
func matchesPrefix(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	return len(name) == len(prefix) || name[len(prefix)] == '.'
}
