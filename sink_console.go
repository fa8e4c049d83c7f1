package logpp

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const ansiReset = "\x1b[0m"

// ansiColors maps theme color names to foreground escape sequences
var ansiColors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
	"gray":    "\x1b[90m",
	"none":    "",
}

var defaultTheme = map[Level]string{
	LevelTrace:    "gray",
	LevelDebug:    "green",
	LevelInfo:     "cyan",
	LevelWarn:     "yellow",
	LevelError:    "red",
	LevelCritical: "magenta",
}

// consoleStream is one output stream with its own buffer and color decision
type consoleStream struct {
	w     io.Writer
	color bool
	buf   []byte
}

// ConsoleSink writes encoded records to stdout and/or stderr.
// Writes are unbuffered, so Flush has nothing left to do.
type ConsoleSink struct {
	enc    Encoder
	target string
	out    *consoleStream
	errOut *consoleStream
	theme  [LevelOff]string
	line   []byte
}

func newConsoleSink(sc *SinkConfig, stdout, stderr io.Writer) (*ConsoleSink, error) {
	enc, err := newEncoder(sc.Format, sc.Pattern)
	if err != nil {
		return nil, err
	}

	target := sc.Target
	if target == "" {
		target = TargetSplit
	}
	s := &ConsoleSink{
		enc:    enc,
		target: target,
		out:    &consoleStream{w: stdout, color: resolveColor(sc.Color, stdout)},
		errOut: &consoleStream{w: stderr, color: resolveColor(sc.Color, stderr)},
	}

	for lvl, name := range defaultTheme {
		s.theme[lvl] = ansiColors[name]
	}
	for name, color := range sc.Theme {
		lvl, err := ParseLevel(name)
		if err != nil || lvl >= LevelOff {
			return nil, fmtErrorf("invalid theme level '%s'", name)
		}
		code, ok := ansiColors[strings.ToLower(color)]
		if !ok {
			return nil, fmtErrorf("unknown theme color '%s'", color)
		}
		s.theme[lvl] = code
	}
	return s, nil
}

// resolveColor applies the color mode; auto enables color only on terminals
func resolveColor(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal(w)
	}
}

// isTerminal reports whether w is a file descriptor attached to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (s *ConsoleSink) streamFor(level Level) *consoleStream {
	switch s.target {
	case TargetStdout:
		return s.out
	case TargetStderr:
		return s.errOut
	default:
		if level >= LevelWarn {
			return s.errOut
		}
		return s.out
	}
}

// Write encodes the batch and issues at most one write per stream
func (s *ConsoleSink) Write(records []Record) error {
	s.out.buf = s.out.buf[:0]
	s.errOut.buf = s.errOut.buf[:0]

	for i := range records {
		r := &records[i]
		st := s.streamFor(r.Level)
		code := ""
		if st.color && r.Level < LevelOff {
			code = s.theme[r.Level]
		}
		if code == "" {
			st.buf = s.enc.AppendRecord(st.buf, r)
			continue
		}
		// Color the line but keep the newline outside the escape sequence
		s.line = s.enc.AppendRecord(s.line[:0], r)
		st.buf = append(st.buf, code...)
		st.buf = append(st.buf, s.line[:len(s.line)-1]...)
		st.buf = append(st.buf, ansiReset...)
		st.buf = append(st.buf, '\n')
	}

	var err error
	for _, st := range [...]*consoleStream{s.out, s.errOut} {
		if len(st.buf) == 0 {
			continue
		}
		if _, werr := st.w.Write(st.buf); werr != nil {
			err = combineErrors(err, werr)
		}
	}
	return err
}

func (s *ConsoleSink) Flush() error {
	return nil
}

// Close leaves the process streams open
func (s *ConsoleSink) Close() error {
	return nil
}
