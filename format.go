package logpp

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Format substitutes each "{}" placeholder in template with the textual form
// of the matching argument, left to right. "{{" and "}}" produce literal braces.
// It fails with a *FormatError on arity mismatch, an unbalanced brace, or an
// argument type without a textual representation.
func Format(template string, args ...any) (string, error) {
	buf, err := AppendFormat(make([]byte, 0, len(template)+16*len(args)), template, args...)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// AppendFormat is like Format but appends to dst.
// On error dst is returned truncated to its original length.
func AppendFormat(dst []byte, template string, args ...any) ([]byte, error) {
	start := len(dst)
	argIdx := 0
	last := 0

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				dst = append(dst, template[last:i+1]...)
				i++
				last = i + 1
				continue
			}
			if i+1 >= len(template) || template[i+1] != '}' {
				return dst[:start], &FormatError{Template: template, Reason: "unbalanced '{' at offset " + strconv.Itoa(i)}
			}
			if argIdx >= len(args) {
				return dst[:start], &FormatError{Template: template,
					Reason: fmt.Sprintf("%d placeholders but %d arguments", countPlaceholders(template), len(args))}
			}
			dst = append(dst, template[last:i]...)
			var err error
			dst, err = appendArg(dst, args[argIdx])
			if err == errNoText {
				return dst[:start], &FormatError{Template: template,
					Reason: fmt.Sprintf("argument %d of type %T has no textual representation", argIdx, args[argIdx])}
			}
			if err != nil {
				return dst[:start], &FormatError{Template: template,
					Reason: fmt.Sprintf("argument %d panicked in %v", argIdx, err)}
			}
			argIdx++
			i++
			last = i + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				dst = append(dst, template[last:i+1]...)
				i++
				last = i + 1
				continue
			}
			return dst[:start], &FormatError{Template: template, Reason: "unbalanced '}' at offset " + strconv.Itoa(i)}
		}
	}
	dst = append(dst, template[last:]...)

	if argIdx != len(args) {
		return dst[:start], &FormatError{Template: template,
			Reason: fmt.Sprintf("%d placeholders but %d arguments", argIdx, len(args))}
	}
	return dst, nil
}

// countPlaceholders counts "{}" pairs, skipping escaped braces
func countPlaceholders(template string) int {
	n := 0
	for i := 0; i+1 < len(template); i++ {
		if template[i] == '{' {
			if template[i+1] == '{' {
				i++
				continue
			}
			if template[i+1] == '}' {
				n++
				i++
			}
		}
	}
	return n
}

// errNoText marks an argument type without a textual representation
var errNoText = errors.New("no textual representation")

// appendArg writes the textual representation of a single argument
func appendArg(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return append(dst, val...), nil
	case []byte:
		return append(dst, val...), nil
	case int:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int8:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int16:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int32:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(dst, val, 10), nil
	case uint:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint8:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint16:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint32:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case uint64:
		return strconv.AppendUint(dst, val, 10), nil
	case uintptr:
		return strconv.AppendUint(dst, uint64(val), 10), nil
	case float32:
		return strconv.AppendFloat(dst, float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(dst, val, 'g', -1, 64), nil
	case bool:
		return strconv.AppendBool(dst, val), nil
	case nil:
		return append(dst, "null"...), nil
	case time.Duration:
		return append(dst, val.String()...), nil
	case time.Time:
		return val.AppendFormat(dst, time.RFC3339Nano), nil
	case Field:
		return val.appendValue(dst), nil
	case error:
		text, err := catchPanic(val, "Error", val.Error)
		return append(dst, text...), err
	case fmt.Stringer:
		text, err := catchPanic(val, "String", val.String)
		return append(dst, text...), err
	default:
		return dst, errNoText
	}
}

// catchPanic calls a String or Error method of v on the logging goroutine.
// A nil receiver that panics renders as "<nil>"; any other panic is returned
// as an error naming the method.
func catchPanic(v any, name string, method func() string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rv := reflect.ValueOf(v); v == nil || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
				text = nilText
				return
			}
			text, err = "", fmt.Errorf("%s method: %v", name, r)
		}
	}()
	return method(), nil
}
