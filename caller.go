package logpp

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode"
)

// callSite resolves the frame skip levels above runtime.Callers. It returns
// the caller as "file.go:line" when withCaller is set, and the innermost depth
// frames as "outer -> inner" function names when depth is positive.
func callSite(skip int, withCaller bool, depth int) (caller, chain string) {
	if depth > maxTraceDepth {
		depth = maxTraceDepth
	}
	var pcs [maxTraceDepth]uintptr
	want := max(depth, 1)
	n := runtime.Callers(skip, pcs[:want])
	if n == 0 {
		if depth > 0 {
			chain = "(unknown)"
		}
		return "", chain
	}

	frames := runtime.CallersFrames(pcs[:n])
	var names []string
	if depth > 0 {
		names = make([]string, 0, n)
	}
	for first := true; ; first = false {
		frame, more := frames.Next()
		if first && withCaller {
			caller = filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
		}
		if depth > 0 && frame.Function != "" {
			names = append(names, functionName(frame.Function))
		}
		if !more {
			break
		}
	}

	if depth > 0 {
		if len(names) == 0 {
			return caller, "(unknown)"
		}
		// Caller to callee order
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
		chain = strings.Join(names, " -> ")
	}
	return caller, chain
}

// functionName shortens a fully qualified function to its last element,
// naming closures after their enclosing function
func functionName(full string) string {
	parts := strings.Split(filepath.Base(full), ".")
	last := parts[len(parts)-1]
	if len(last) > 4 && strings.HasPrefix(last, "func") {
		for _, r := range last[4:] {
			if !unicode.IsDigit(r) {
				return last
			}
		}
		return fmt.Sprintf("(anonymous in %s)", strings.Join(parts[:len(parts)-1], "."))
	}
	return last
}

// clampTraceDepth bounds an explicit per call depth to [0, maxTraceDepth]
func clampTraceDepth(depth int) int {
	return min(max(depth, 0), maxTraceDepth)
}
