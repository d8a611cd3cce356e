// Package logx wraps github.com/charmbracelet/log to render a
// severity-tagged line shape ("%SUBSYS-SEV-IDENT, message") as a charm
// logger message. Each Logger carries one fixed SUBSYS tag (cmd/waveband
// builds "MAIN" and "HOTPLUG"); each call supplies the IDENT.
package logx

import (
	"fmt"
	"io"
	"os"

	charm "github.com/charmbracelet/log"
)

// Logger tags every line with a fixed subsystem name.
type Logger struct {
	subsys string
	out    *charm.Logger
}

// New builds a Logger for subsys writing to stderr.
func New(subsys string) *Logger {
	return NewWriter(subsys, os.Stderr)
}

// NewWriter builds a Logger for subsys writing to w.
func NewWriter(subsys string, w io.Writer) *Logger {
	out := charm.New(w)
	out.SetReportTimestamp(true)
	out.SetTimeFormat("2006-01-02 15:04:05")
	return &Logger{subsys: subsys, out: out}
}

func (l *Logger) line(ident, format string, args ...any) string {
	return fmt.Sprintf("%%%s, %s", ident, fmt.Sprintf(format, args...))
}

// Debug logs at debug severity under the given identifier (e.g. a channel
// or decoder name), producing "%SUBSYS-D-IDENT, message".
func (l *Logger) Debug(ident, format string, args ...any) {
	l.out.Debug(l.line(l.subsys+"-D-"+ident, format, args...))
}

// Info logs at info severity.
func (l *Logger) Info(ident, format string, args ...any) {
	l.out.Info(l.line(l.subsys+"-I-"+ident, format, args...))
}

// Warn logs at warning severity.
func (l *Logger) Warn(ident, format string, args ...any) {
	l.out.Warn(l.line(l.subsys+"-W-"+ident, format, args...))
}

// Error logs at error severity.
func (l *Logger) Error(ident, format string, args ...any) {
	l.out.Error(l.line(l.subsys+"-E-"+ident, format, args...))
}

// SetLevel changes this logger's verbosity level in place, useful for
// quieting a noisy per-sample path in tests.
func (l *Logger) SetLevel(level charm.Level) {
	l.out.SetLevel(level)
}
