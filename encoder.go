package logpp

import (
	"strconv"
	"time"

	"github.com/lixenwraith/logpp/sanitizer"
)

// Encoder renders one record as a single output line, trailing newline included.
// An encoder is owned by one sink and is not safe for concurrent use.
type Encoder interface {
	AppendRecord(dst []byte, r *Record) []byte
}

// logfmtTimeLayout matches the ts key of the logfmt encoder
const logfmtTimeLayout = "2006-01-02T15:04:05.000000"

// newEncoder builds the encoder selected by a sink's format and pattern keys
func newEncoder(format, pattern string) (Encoder, error) {
	switch format {
	case "", FormatPattern:
		if pattern == "" {
			pattern = defaultPattern
		}
		return compilePattern(pattern)
	case FormatLogfmt:
		return newLogfmtEncoder(), nil
	case FormatJSON:
		return jsonEncoder{}, nil
	default:
		return nil, fmtErrorf("unknown format '%s' (use pattern, logfmt, json)", format)
	}
}

// jsonEncoder writes one JSON object per line
type jsonEncoder struct{}

func (jsonEncoder) AppendRecord(dst []byte, r *Record) []byte {
	dst = append(dst, `{"time":"`...)
	dst = r.Time.UTC().AppendFormat(dst, time.RFC3339Nano)
	dst = append(dst, `","level":"`...)
	dst = append(dst, r.Level.String()...)
	dst = append(dst, `","logger":`...)
	dst = sanitizer.AppendJSONString(dst, r.Logger)
	dst = append(dst, `,"seq":`...)
	dst = strconv.AppendUint(dst, r.Seq, 10)
	if r.Caller != "" {
		dst = append(dst, `,"caller":`...)
		dst = sanitizer.AppendJSONString(dst, r.Caller)
	}
	dst = append(dst, `,"msg":`...)
	dst = sanitizer.AppendJSONString(dst, r.Message)
	for i := range r.Fields {
		f := &r.Fields[i]
		dst = append(dst, ',')
		dst = sanitizer.AppendJSONString(dst, f.Key)
		dst = append(dst, ':')
		dst = appendJSONValue(dst, f)
	}
	return append(dst, '}', '\n')
}

func appendJSONValue(dst []byte, f *Field) []byte {
	if f.isBare() {
		return f.appendValue(dst)
	}
	switch f.kind {
	case kindString, kindError, kindAny:
		return sanitizer.AppendJSONString(dst, f.str)
	default:
		// Durations, times and non-finite floats render as plain ASCII
		dst = append(dst, '"')
		dst = f.appendValue(dst)
		return append(dst, '"')
	}
}

// logfmtEncoder writes ts, level, logger and msg keys followed by the record fields
type logfmtEncoder struct {
	ser     *sanitizer.Serializer
	scratch []byte
}

func newLogfmtEncoder() *logfmtEncoder {
	return &logfmtEncoder{
		ser: sanitizer.NewSerializer(FormatLogfmt, sanitizer.New().Policy(sanitizer.PolicyTxt)),
	}
}

func (e *logfmtEncoder) AppendRecord(dst []byte, r *Record) []byte {
	dst = append(dst, "ts="...)
	dst = r.Time.UTC().AppendFormat(dst, logfmtTimeLayout)
	dst = append(dst, " level="...)
	dst = append(dst, r.Level.String()...)
	dst = append(dst, " logger="...)
	dst = e.ser.AppendString(dst, r.Logger)
	if r.Caller != "" {
		dst = append(dst, " caller="...)
		dst = e.ser.AppendString(dst, r.Caller)
	}
	dst = append(dst, " msg="...)
	dst = e.ser.AppendString(dst, r.Message)
	dst = e.appendFields(dst, r.Fields, true)
	return append(dst, '\n')
}

// appendFields writes key=value pairs separated by spaces, with a leading
// space when leadingSpace is set
func (e *logfmtEncoder) appendFields(dst []byte, fields []Field, leadingSpace bool) []byte {
	for i := range fields {
		f := &fields[i]
		if i > 0 || leadingSpace {
			dst = append(dst, ' ')
		}
		dst = e.ser.AppendString(dst, f.Key)
		dst = append(dst, '=')
		switch f.kind {
		case kindString, kindError, kindAny:
			dst = e.ser.AppendString(dst, f.str)
		default:
			e.scratch = f.appendValue(e.scratch[:0])
			dst = append(dst, e.scratch...)
		}
	}
	return dst
}
