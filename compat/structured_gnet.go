package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lixenwraith/logpp"
)

// keyValuePattern detects common structured patterns like "key=%v" or "key: %v"
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)

// parseFormat attempts to extract structured fields from printf-style format strings.
// Text outside the key/verb pairs becomes the message.
func parseFormat(format string, args []any) (string, []logpp.Field) {
	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 || len(matches) > len(args) {
		// Fallback to simple message if pattern doesn't match
		return fmt.Sprintf(format, args...), nil
	}

	fields := make([]logpp.Field, 0, len(matches))
	var msg strings.Builder
	lastEnd := 0
	argIndex := 0

	for _, match := range matches {
		// Verbs in text preceding the match consume arguments too
		prefix := format[lastEnd:match[0]]
		if n := countVerbs(prefix); n > 0 {
			if argIndex+n > len(args) {
				return fmt.Sprintf(format, args...), nil
			}
			prefix = fmt.Sprintf(prefix, args[argIndex:argIndex+n]...)
			argIndex += n
		}
		appendMessage(&msg, prefix)

		if argIndex >= len(args) {
			break
		}
		key := format[match[2]:match[3]]
		fields = append(fields, logpp.Any(key, args[argIndex]))
		argIndex++
		lastEnd = match[1]
	}

	// Handle remaining format string and args
	if lastEnd < len(format) {
		remaining := format[lastEnd:]
		if argIndex < len(args) {
			remaining = fmt.Sprintf(remaining, args[argIndex:]...)
		}
		appendMessage(&msg, remaining)
	}

	return msg.String(), fields
}

// countVerbs counts printf verbs, ignoring "%%"
func countVerbs(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

func appendMessage(sb *strings.Builder, part string) {
	part = strings.Trim(part, " ,;")
	if part == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(part)
}

// StructuredGnetAdapter provides enhanced structured logging for gnet
type StructuredGnetAdapter struct {
	*GnetAdapter
	extractFields bool
}

// NewStructuredGnetAdapter creates a gnet adapter with structured field extraction
func NewStructuredGnetAdapter(logger *logpp.Logger, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{
		GnetAdapter:   NewGnetAdapter(logger, opts...),
		extractFields: true,
	}
}

func (a *StructuredGnetAdapter) logStructured(level logpp.Level, format string, args []any) {
	if !a.logger.Enabled(level) {
		return
	}
	msg, fields := parseFormat(format, args)
	a.logger.LogFields(level, msg, fields...)
}

// Debugf logs with structured field extraction
func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	if a.extractFields {
		a.logStructured(logpp.LevelDebug, format, args)
	} else {
		a.GnetAdapter.Debugf(format, args...)
	}
}

// Infof logs with structured field extraction
func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	if a.extractFields {
		a.logStructured(logpp.LevelInfo, format, args)
	} else {
		a.GnetAdapter.Infof(format, args...)
	}
}

// Warnf logs with structured field extraction
func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	if a.extractFields {
		a.logStructured(logpp.LevelWarn, format, args)
	} else {
		a.GnetAdapter.Warnf(format, args...)
	}
}

// Errorf logs with structured field extraction
func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	if a.extractFields {
		a.logStructured(logpp.LevelError, format, args)
	} else {
		a.GnetAdapter.Errorf(format, args...)
	}
}
