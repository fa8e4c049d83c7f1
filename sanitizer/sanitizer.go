// Package sanitizer provides a fluent and composable interface for sanitizing
// strings based on configurable rules using bitwise filter flags and transforms.
// All operations append to a caller supplied buffer so encoders can reuse memory.
package sanitizer

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for character matching
const (
	FilterNonPrintable uint64 = 1 << iota // Matches runes not classified as printable by strconv.IsPrint
	FilterControl                         // Matches control characters (unicode.IsControl)
	FilterWhitespace                      // Matches whitespace characters (unicode.IsSpace)
	FilterShellSpecial                    // Matches common shell metacharacters: '`', '$', ';', '|', '&', '>', '<', '(', ')', '#'
)

// Transform flags for character transformation
const (
	TransformStrip      uint64 = 1 << iota // Removes the character
	TransformHexEncode                     // Encodes the character's UTF-8 bytes as "<XXYY>"
	TransformJSONEscape                    // Escapes the character with JSON-style backslashes (e.g., '\n', '\u0000')
)

// PolicyPreset defines pre-configured sanitization policies
type PolicyPreset string

const (
	PolicyRaw   PolicyPreset = "raw"   // Raw is a no-op (passthrough)
	PolicyJSON  PolicyPreset = "json"  // Policy for sanitizing strings to be embedded in JSON
	PolicyTxt   PolicyPreset = "txt"   // Policy for sanitizing single line text records
	PolicyShell PolicyPreset = "shell" // Policy for sanitizing arguments passed to shell commands
)

// rule represents a single sanitization rule
type rule struct {
	filter    uint64
	transform uint64
}

// policyRules contains pre-configured rules for each policy
var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:   {},
	PolicyTxt:   {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON:  {{filter: FilterControl, transform: TransformJSONEscape}},
	PolicyShell: {{filter: FilterShellSpecial | FilterWhitespace, transform: TransformStrip}},
}

const hexDigits = "0123456789abcdef"

// Sanitizer provides chainable text sanitization.
// A configured Sanitizer holds no mutable state and is safe for concurrent use.
type Sanitizer struct {
	rules []rule
}

// New creates a new Sanitizer instance
func New() *Sanitizer {
	return &Sanitizer{}
}

// Rule adds a custom rule to the sanitizer (appended, earliest rule applies first)
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy applies a pre-configured policy to the sanitizer (appended)
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if rules, ok := policyRules[preset]; ok {
		s.rules = append(s.rules, rules...)
	}
	return s
}

// Sanitize applies all configured rules to the input string
func (s *Sanitizer) Sanitize(data string) string {
	return string(s.Append(make([]byte, 0, len(data)), data))
}

// Append applies all configured rules to data and appends the result to dst
func (s *Sanitizer) Append(dst []byte, data string) []byte {
	if len(s.rules) == 0 {
		return append(dst, data...)
	}

	last := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRuneInString(data[i:])
		// First matching rule wins
		for _, rl := range s.rules {
			if matchesFilter(r, rl.filter) {
				dst = append(dst, data[last:i]...)
				dst = applyTransform(dst, r, rl.transform)
				last = i + size
				break
			}
		}
		i += size
	}
	return append(dst, data[last:]...)
}

// matchesFilter checks if a rune matches any filter in the mask
func matchesFilter(r rune, filterMask uint64) bool {
	if filterMask&FilterNonPrintable != 0 && !strconv.IsPrint(r) {
		return true
	}
	if filterMask&FilterControl != 0 && unicode.IsControl(r) {
		return true
	}
	if filterMask&FilterWhitespace != 0 && unicode.IsSpace(r) {
		return true
	}
	if filterMask&FilterShellSpecial != 0 {
		switch r {
		case '`', '$', ';', '|', '&', '>', '<', '(', ')', '#':
			return true
		}
	}
	return false
}

// applyTransform appends the transformed rune to dst
func applyTransform(dst []byte, r rune, transformMask uint64) []byte {
	switch {
	case (transformMask & TransformStrip) != 0:
		return dst

	case (transformMask & TransformHexEncode) != 0:
		var runeBytes [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeBytes[:], r)
		dst = append(dst, '<')
		for _, b := range runeBytes[:n] {
			dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
		}
		return append(dst, '>')

	case (transformMask & TransformJSONEscape) != 0:
		return appendEscapedRune(dst, r)
	}
	return utf8.AppendRune(dst, r)
}

func appendEscapedRune(dst []byte, r rune) []byte {
	switch r {
	case '\n':
		return append(dst, '\\', 'n')
	case '\r':
		return append(dst, '\\', 'r')
	case '\t':
		return append(dst, '\\', 't')
	case '\b':
		return append(dst, '\\', 'b')
	case '\f':
		return append(dst, '\\', 'f')
	case '"':
		return append(dst, '\\', '"')
	case '\\':
		return append(dst, '\\', '\\')
	}
	if r < 0x20 || r == 0x7f {
		return append(dst, '\\', 'u', '0', '0', hexDigits[r>>4&0x0f], hexDigits[r&0x0f])
	}
	return utf8.AppendRune(dst, r)
}

// Serializer implements format-specific string output for record encoders
type Serializer struct {
	format    string
	sanitizer *Sanitizer
}

// NewSerializer creates a handler with format-specific behavior.
// Known formats are "pattern", "logfmt" and "json"; anything else passes through.
func NewSerializer(format string, san *Sanitizer) *Serializer {
	if san == nil {
		san = New()
	}
	return &Serializer{
		format:    format,
		sanitizer: san,
	}
}

// AppendString appends s with format-specific escaping and quoting
func (se *Serializer) AppendString(dst []byte, s string) []byte {
	switch se.format {
	case "json":
		return AppendJSONString(dst, s)

	case "logfmt":
		if !se.NeedsQuotes(s) {
			return se.sanitizer.Append(dst, s)
		}
		dst = append(dst, '"')
		start := len(dst)
		dst = se.sanitizer.Append(dst, s)
		if escapes := countEscapes(dst[start:]); escapes > 0 {
			tail := append(make([]byte, 0, len(dst)-start), dst[start:]...)
			dst = dst[:start]
			for _, c := range tail {
				if c == '"' || c == '\\' {
					dst = append(dst, '\\')
				}
				dst = append(dst, c)
			}
		}
		return append(dst, '"')

	default:
		return se.sanitizer.Append(dst, s)
	}
}

func countEscapes(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '"' || c == '\\' {
			n++
		}
	}
	return n
}

// AppendJSONString appends s as a quoted JSON string
func AppendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= ' ' && c != '"' && c != '\\' && c < 0x7f {
			start := i
			for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < 0x7f {
				i++
			}
			dst = append(dst, s[start:i]...)
			continue
		}
		if c < utf8.RuneSelf {
			dst = appendEscapedRune(dst, rune(c))
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, `�`...)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}

// NeedsQuotes determines if quoting is needed
func (se *Serializer) NeedsQuotes(s string) bool {
	switch se.format {
	case "json":
		return true
	case "logfmt":
		if len(s) == 0 {
			return true
		}
		for _, r := range s {
			if unicode.IsSpace(r) || !unicode.IsPrint(r) {
				return true
			}
			switch r {
			case '"', '=', '\\':
				return true
			}
		}
		return false
	default:
		return false
	}
}
