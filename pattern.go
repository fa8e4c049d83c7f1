package logpp

import (
	"strconv"
	"time"

	"github.com/lixenwraith/logpp/sanitizer"
)

// Pattern flags:
//
//	%Y year, %m month, %d day, %H hour, %M minute, %S second
//	%i milliseconds (000-999), %u microseconds within the millisecond (000-999)
//	%L render the following date and time flags in local time instead of UTC
//	%v message, %l level, %s single letter level, %n logger name, %# record sequence number
//	%@ call site as file:line, empty unless the caller option is set
//	%f fields as key=value pairs, %f[prefix] writes prefix first when fields exist
//	%+ expands to fullPattern, %% is a literal percent sign
const (
	defaultPattern = "%+"
	fullPattern    = "%Y-%m-%d %H:%M:%S [%l] (%n) %v%f[ - ]"
)

type patternPart struct {
	flag  byte // 0 for a literal
	text  string
	local bool
}

// patternEncoder renders records through a compiled pattern
type patternEncoder struct {
	parts  []patternPart
	ser    *sanitizer.Serializer
	fields *logfmtEncoder
}

// compilePattern parses a pattern into parts, failing on unknown flags
func compilePattern(pattern string) (*patternEncoder, error) {
	parts, err := parsePattern(pattern, false, nil)
	if err != nil {
		return nil, err
	}
	return &patternEncoder{
		parts:  parts,
		ser:    sanitizer.NewSerializer(FormatPattern, sanitizer.New().Policy(sanitizer.PolicyTxt)),
		fields: newLogfmtEncoder(),
	}, nil
}

func parsePattern(pattern string, local bool, parts []patternPart) ([]patternPart, error) {
	var literal []byte
	flushLiteral := func() {
		if len(literal) > 0 {
			parts = append(parts, patternPart{text: string(literal)})
			literal = literal[:0]
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			literal = append(literal, c)
			continue
		}
		if i+1 >= len(pattern) {
			return nil, fmtErrorf("pattern '%s' ends with a dangling '%%'", pattern)
		}
		i++
		flag := pattern[i]
		switch flag {
		case '%':
			literal = append(literal, '%')
		case '+':
			flushLiteral()
			expanded, err := parsePattern(fullPattern, local, nil)
			if err != nil {
				return nil, err
			}
			parts = append(parts, expanded...)
		case 'L':
			local = true
		case 'Y', 'm', 'd', 'H', 'M', 'S', 'i', 'u':
			flushLiteral()
			parts = append(parts, patternPart{flag: flag, local: local})
		case 'v', 'l', 's', 'n', '#', '@':
			flushLiteral()
			parts = append(parts, patternPart{flag: flag})
		case 'f':
			flushLiteral()
			part := patternPart{flag: flag}
			if i+1 < len(pattern) && pattern[i+1] == '[' {
				end := -1
				for j := i + 2; j < len(pattern); j++ {
					if pattern[j] == ']' {
						end = j
						break
					}
				}
				if end < 0 {
					return nil, fmtErrorf("pattern '%s' has an unterminated %%f[ parameter", pattern)
				}
				part.text = pattern[i+2 : end]
				i = end
			}
			parts = append(parts, part)
		default:
			return nil, fmtErrorf("pattern '%s' has unknown flag '%%%c' at offset %d", pattern, flag, i-1)
		}
	}
	flushLiteral()
	return parts, nil
}

func (e *patternEncoder) AppendRecord(dst []byte, r *Record) []byte {
	utc := r.Time.UTC()
	var local time.Time
	for i := range e.parts {
		p := &e.parts[i]
		t := utc
		if p.local {
			if local.IsZero() {
				local = r.Time.Local()
			}
			t = local
		}
		switch p.flag {
		case 0:
			dst = append(dst, p.text...)
		case 'Y':
			dst = appendPadded(dst, t.Year(), 4)
		case 'm':
			dst = appendPadded(dst, int(t.Month()), 2)
		case 'd':
			dst = appendPadded(dst, t.Day(), 2)
		case 'H':
			dst = appendPadded(dst, t.Hour(), 2)
		case 'M':
			dst = appendPadded(dst, t.Minute(), 2)
		case 'S':
			dst = appendPadded(dst, t.Second(), 2)
		case 'i':
			dst = appendPadded(dst, t.Nanosecond()/int(time.Millisecond), 3)
		case 'u':
			dst = appendPadded(dst, (t.Nanosecond()/int(time.Microsecond))%1000, 3)
		case 'v':
			dst = e.ser.AppendString(dst, r.Message)
		case 'l':
			dst = append(dst, r.Level.String()...)
		case 's':
			dst = append(dst, r.Level.short()...)
		case 'n':
			dst = e.ser.AppendString(dst, r.Logger)
		case '#':
			dst = strconv.AppendUint(dst, r.Seq, 10)
		case '@':
			dst = e.ser.AppendString(dst, r.Caller)
		case 'f':
			if len(r.Fields) > 0 {
				dst = append(dst, p.text...)
				dst = e.fields.appendFields(dst, r.Fields, false)
			}
		}
	}
	return append(dst, '\n')
}

func appendPadded(dst []byte, v, width int) []byte {
	var buf [20]byte
	b := strconv.AppendInt(buf[:0], int64(v), 10)
	for i := len(b); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, b...)
}
