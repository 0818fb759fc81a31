package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger provides leveled logging with glyph prefixes
type Logger struct {
	debug bool
	out   io.Writer

	success *color.Color
	warn    *color.Color
	fail    *color.Color
	dim     *color.Color
}

// New creates a new logger instance
func New(debug, noColor bool) *Logger {
	l := &Logger{
		debug:   debug,
		out:     os.Stderr,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		dim:     color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{l.success, l.warn, l.fail, l.dim} {
			c.DisableColor()
		}
	}
	return l
}

// SetOutput redirects log output, used by tests to capture messages.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s\n", l.success.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s\n", l.warn.Sprint("⚠"), fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s\n", l.fail.Sprint("✗"), fmt.Sprintf(format, args...))
}

// Fatal logs a critical message that requires operator attention.
// Reserved for conditions like a failed backup restore, where the run
// cannot leave the filesystem in a known-good state on its own.
func (l *Logger) Fatal(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s\n", l.fail.Sprint("✗✗ CRITICAL:"), fmt.Sprintf(format, args...))
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	fmt.Fprintf(l.out, "%s %s\n", l.dim.Sprint("[DEBUG]"), fmt.Sprintf(format, args...))
}
