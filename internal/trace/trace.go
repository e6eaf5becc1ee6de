// Package trace accumulates the ordered, human-readable decision log for one
// account's sync attempt. The trace is returned to the caller for operator
// diagnosis and is never persisted.
package trace

import "fmt"

// Trace is an append-only list of debug lines.
type Trace struct {
	lines []string
}

func New() *Trace {
	return &Trace{}
}

// Addf appends a formatted line.
func (t *Trace) Addf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Lines returns the accumulated lines in insertion order.
func (t *Trace) Lines() []string {
	return t.lines
}

// Len returns the number of accumulated lines.
func (t *Trace) Len() int {
	return len(t.lines)
}

// Snippet truncates a response body for inclusion in a trace line.
// Truncation protects trace size, not correctness.
func Snippet(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
