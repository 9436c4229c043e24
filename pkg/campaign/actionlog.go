package campaign

import (
	"fmt"
	"io"
	"strings"
)

// ActionLog is the indented, human-readable trace of one iteration. It
// implements mutate.Tracer.
type ActionLog struct {
	lines []string
	depth int
}

// NewActionLog creates an empty log.
func NewActionLog() *ActionLog {
	return &ActionLog{}
}

// Tracef appends a line at the current indentation.
func (l *ActionLog) Tracef(format string, args ...any) {
	l.lines = append(l.lines, strings.Repeat("    ", l.depth)+fmt.Sprintf(format, args...))
}

// Section appends a heading at the top level and indents what follows.
func (l *ActionLog) Section(format string, args ...any) {
	l.depth = 0
	l.Tracef(format, args...)
	l.depth = 1
}

// Append adds multi-line text at the current indentation.
func (l *ActionLog) Append(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		l.Tracef("%s", line)
	}
}

// Lines returns the logged lines.
func (l *ActionLog) Lines() []string {
	return l.lines
}

func (l *ActionLog) String() string {
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}

// WriteTo implements io.WriterTo.
func (l *ActionLog) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, l.String())
	return int64(n), err
}
