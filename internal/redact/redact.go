// Package redact blanks values out of key/value style secret files so they
// can be shared safely.
//
// Redaction is deliberately superficial: it matches single lines of the
// form `key: value` or `key=value` (optionally prefixed with `export`).
// Multi-line and nested structured values pass through untouched; callers
// who need structure-aware redaction should not share those files.
package redact

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// DefaultMarker replaces redacted values when no marker is configured.
const DefaultMarker = "REDACTED"

// lineRe captures leading whitespace, an optional export prefix, the key,
// and the separator (`:` or `=` with surrounding space) ahead of the value.
var lineRe = regexp.MustCompile(`^(\s*)(export\s+)?([A-Za-z_][A-Za-z0-9_.-]*)(\s*[:=]\s*)(.+)$`)

// Line redacts a single line, returning it unchanged when it does not look
// like a key/value assignment.
func Line(line, marker string) string {
	if marker == "" {
		marker = DefaultMarker
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return m[1] + m[2] + m[3] + m[4] + marker
}

// Copy redacts src into dst line by line. The transform is idempotent:
// redacting already-redacted content yields identical output.
func Copy(dst io.Writer, src io.Reader, marker string) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	w := bufio.NewWriter(dst)
	for scanner.Scan() {
		if _, err := w.WriteString(Line(scanner.Text(), marker)); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// String redacts a whole document held in memory.
func String(content, marker string) string {
	var b strings.Builder
	// Copy cannot fail when writing to a strings.Builder.
	_ = Copy(&b, strings.NewReader(content), marker)
	return b.String()
}
