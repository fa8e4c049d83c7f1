package logpp

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostPort struct {
	host string
	port int
}

func (h hostPort) String() string {
	return h.host + ":" + strings.Repeat("9", h.port)
}

// labelStringer dereferences its receiver, so a typed nil panics
type labelStringer struct{ label string }

func (s *labelStringer) String() string { return s.label }

type explodingStringer struct{}

func (explodingStringer) String() string { panic("boom") }

type explodingError struct{}

func (explodingError) Error() string { panic("kaput") }

// TestFormat tests placeholder substitution for supported argument types
func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     []any
		want     string
	}{
		{"no placeholders", "plain text", nil, "plain text"},
		{"single string", "hello {}", []any{"world"}, "hello world"},
		{"mixed scalars", "{} {} {} {}", []any{42, -7, 3.5, true}, "42 -7 3.5 true"},
		{"unsigned", "{}", []any{uint64(18446744073709551615)}, "18446744073709551615"},
		{"byte slice", "{}", []any{[]byte("raw")}, "raw"},
		{"nil", "value={}", []any{nil}, "value=null"},
		{"duration", "took {}", []any{1500 * time.Millisecond}, "took 1.5s"},
		{"time", "at {}", []any{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, "at 2024-01-02T03:04:05Z"},
		{"error", "failed: {}", []any{errors.New("boom")}, "failed: boom"},
		{"stringer", "addr {}", []any{hostPort{"localhost", 2}}, "addr localhost:99"},
		{"pointer stringer", "{}", []any{&labelStringer{"ok"}}, "ok"},
		{"typed nil stringer", "value {}", []any{(*labelStringer)(nil)}, "value <nil>"},
		{"field", "{}", []any{Int("n", 5)}, "5"},
		{"escaped braces", "{{}} {} {{", []any{"x"}, "{} x {"},
		{"adjacent", "{}{}", []any{"a", "b"}, "ab"},
		{"unicode", "héllo {} ✓", []any{"wörld"}, "héllo wörld ✓"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.template, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFormatErrors tests that malformed templates and arguments fail with a FormatError
func TestFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     []any
		reason   string
	}{
		{"too few arguments", "{} {}", []any{1}, "2 placeholders but 1 arguments"},
		{"too many arguments", "{}", []any{1, 2}, "1 placeholders but 2 arguments"},
		{"unbalanced open", "value {", nil, "unbalanced '{'"},
		{"open without close", "{x}", []any{1}, "unbalanced '{'"},
		{"unbalanced close", "value }", nil, "unbalanced '}'"},
		{"unformattable", "{}", []any{struct{ A int }{1}}, "no textual representation"},
		{"panicking stringer", "x {}", []any{explodingStringer{}}, "argument 0 panicked in String method: boom"},
		{"panicking error", "{} {}", []any{1, explodingError{}}, "argument 1 panicked in Error method: kaput"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.template, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.template, fe.Template)
			assert.Contains(t, fe.Reason, tt.reason)
		})
	}
}

// TestAppendFormat tests appending and truncation on failure
func TestAppendFormat(t *testing.T) {
	dst := []byte("prefix:")
	out, err := AppendFormat(dst, "{}-{}", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "prefix:1-2", string(out))

	out, err = AppendFormat([]byte("prefix:"), "{} {}", 1)
	require.Error(t, err)
	assert.Equal(t, "prefix:", string(out), "failed formatting leaves dst unchanged")
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, countPlaceholders("none"))
	assert.Equal(t, 2, countPlaceholders("{} and {}"))
	assert.Equal(t, 1, countPlaceholders("{{}} {}"))
}

func TestFormatNoAllocsForScalars(t *testing.T) {
	buf := make([]byte, 0, 128)
	allocs := testing.AllocsPerRun(100, func() {
		buf, _ = AppendFormat(buf[:0], "{} {} {}", "a", true, 1.5)
	})
	assert.LessOrEqual(t, allocs, 3.0)
}
