package rcstr

import (
	"fmt"
	"io"
)

// Formatter produces formatted output in two passes: Probe reports the
// exact output length, Fill writes the output into a buffer of that length.
type Formatter interface {
	Probe() (int, error)
	Fill(dst []byte) (int, error)
}

type printf struct {
	format string
	args   []any
}

// Sprintf returns a Formatter over fmt.Fprintf. Both passes format the
// arguments, so arguments whose String methods are not deterministic make
// Format fail rather than produce a truncated string.
func Sprintf(format string, args ...any) Formatter {
	return &printf{format: format, args: args}
}

func (p *printf) Probe() (int, error) {
	var w countWriter
	if _, err := fmt.Fprintf(&w, p.format, p.args...); err != nil {
		return -1, err
	}
	return w.n, nil
}

func (p *printf) Fill(dst []byte) (int, error) {
	w := boundedWriter{buf: dst}
	_, _ = fmt.Fprintf(&w, p.format, p.args...)
	if w.short {
		return w.n, io.ErrShortBuffer
	}
	return w.n, nil
}

type countWriter struct {
	n int
}

func (w *countWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

// boundedWriter fills buf and records whether output was cut short.
type boundedWriter struct {
	buf   []byte
	n     int
	short bool
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	c := copy(w.buf[w.n:], p)
	w.n += c
	if c < len(p) {
		w.short = true
		return c, io.ErrShortBuffer
	}
	return c, nil
}
