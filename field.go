package logpp

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindUint
	kindFloat
	kindBool
	kindDuration
	kindTime
	kindError
	kindAny
)

// Field is a structured key/value pair attached to a record.
// Scalar values are stored inline so building a field does not allocate;
// values of arbitrary type are rendered to text when the field is created.
type Field struct {
	Key  string
	kind fieldKind
	num  uint64
	str  string
}

// anyDumper renders values without a registered textual form
var anyDumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, kind: kindString, str: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, kind: kindInt, num: uint64(int64(value))}
}

// Int64 creates a 64-bit integer field
func Int64(key string, value int64) Field {
	return Field{Key: key, kind: kindInt, num: uint64(value)}
}

// Uint64 creates an unsigned integer field
func Uint64(key string, value uint64) Field {
	return Field{Key: key, kind: kindUint, num: value}
}

// Float64 creates a floating point field
func Float64(key string, value float64) Field {
	return Field{Key: key, kind: kindFloat, num: math.Float64bits(value)}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	var n uint64
	if value {
		n = 1
	}
	return Field{Key: key, kind: kindBool, num: n}
}

// Duration creates a time.Duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, kind: kindDuration, num: uint64(value)}
}

// Time creates a time field, rendered in UTC.
// Times outside the int64 nanosecond range (1678 to 2262, the zero time
// included) are rendered when the field is created.
func Time(key string, value time.Time) Field {
	ns := value.UnixNano()
	if !time.Unix(0, ns).Equal(value) {
		return Field{Key: key, kind: kindTime, str: value.UTC().Format(time.RFC3339Nano)}
	}
	return Field{Key: key, kind: kindTime, num: uint64(ns)}
}

// Err creates an "error" field; a nil error renders as null
func Err(err error) Field {
	return NamedErr("error", err)
}

// NamedErr creates an error field with a custom key
func NamedErr(key string, err error) Field {
	if err == nil {
		return Field{Key: key, kind: kindAny, str: "null"}
	}
	return Field{Key: key, kind: kindError, str: methodText(err, "Error", err.Error)}
}

// Stringer creates a field from a fmt.Stringer
func Stringer(key string, value interface{ String() string }) Field {
	if value == nil {
		return Field{Key: key, kind: kindString, str: nilText}
	}
	return Field{Key: key, kind: kindString, str: methodText(value, "String", value.String)}
}

// methodText renders a String or Error method result, or "PANIC=..." when it panics
func methodText(v any, name string, method func() string) string {
	text, err := catchPanic(v, name, method)
	if err != nil {
		return "PANIC=" + err.Error()
	}
	return text
}

// Any creates a field from an arbitrary value.
// Known scalar types map to their typed constructor; other values are rendered
// immediately with a compact dump so the record stays immutable.
func Any(key string, value any) Field {
	switch v := value.(type) {
	case Field:
		v.Key = key
		return v
	case string:
		return String(key, v)
	case int:
		return Int(key, v)
	case int8:
		return Int64(key, int64(v))
	case int16:
		return Int64(key, int64(v))
	case int32:
		return Int64(key, int64(v))
	case int64:
		return Int64(key, v)
	case uint:
		return Uint64(key, uint64(v))
	case uint8:
		return Uint64(key, uint64(v))
	case uint16:
		return Uint64(key, uint64(v))
	case uint32:
		return Uint64(key, uint64(v))
	case uint64:
		return Uint64(key, v)
	case float32:
		return Float64(key, float64(v))
	case float64:
		return Float64(key, v)
	case bool:
		return Bool(key, v)
	case time.Duration:
		return Duration(key, v)
	case time.Time:
		return Time(key, v)
	case error:
		return NamedErr(key, v)
	case interface{ String() string }:
		return Stringer(key, v)
	case []byte:
		return String(key, string(v))
	case nil:
		return Field{Key: key, kind: kindAny, str: "null"}
	default:
		return Field{Key: key, kind: kindAny, str: anyDumper.Sprintf("%v", v)}
	}
}

// Dump creates a field holding a multi-line structural dump of value, for debugging
func Dump(key string, value any) Field {
	return Field{Key: key, kind: kindAny, str: strings.TrimSpace(anyDumper.Sdump(value))}
}

// Value returns the field value as text
func (f Field) Value() string {
	return string(f.appendValue(nil))
}

// appendValue writes the textual value without quoting
func (f Field) appendValue(dst []byte) []byte {
	switch f.kind {
	case kindInt:
		return strconv.AppendInt(dst, int64(f.num), 10)
	case kindUint:
		return strconv.AppendUint(dst, f.num, 10)
	case kindFloat:
		return strconv.AppendFloat(dst, math.Float64frombits(f.num), 'g', -1, 64)
	case kindBool:
		return strconv.AppendBool(dst, f.num == 1)
	case kindDuration:
		return append(dst, time.Duration(f.num).String()...)
	case kindTime:
		if f.str != "" {
			return append(dst, f.str...)
		}
		return time.Unix(0, int64(f.num)).UTC().AppendFormat(dst, time.RFC3339Nano)
	default:
		return append(dst, f.str...)
	}
}

// isBare reports whether the value is emitted without quotes in JSON
func (f Field) isBare() bool {
	switch f.kind {
	case kindInt, kindUint, kindBool:
		return true
	case kindFloat:
		v := math.Float64frombits(f.num)
		return !math.IsInf(v, 0) && !math.IsNaN(v)
	case kindAny:
		return f.str == "null"
	default:
		return false
	}
}
