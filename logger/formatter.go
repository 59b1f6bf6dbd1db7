package logger

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// SourceKey is the field holding the "file.go:line" call site.
const SourceKey = "x_file_source"

// SourceFormatter wraps another logrus formatter and reports the caller as
// a compact "file.go:line" field instead of the full path. A source set by
// the caller is kept.
type SourceFormatter struct {
	// Underlying is the formatter that renders the entry.
	Underlying logrus.Formatter
	// AddSpace appends a blank line after every entry.
	AddSpace bool
}

// Format renders a single log entry.
func (f *SourceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if _, ok := entry.Data[SourceKey]; !ok && entry.HasCaller() {
		entry.Data[SourceKey] = source(entry.Caller.File, entry.Caller.Line)
	}

	formatted, err := f.Underlying.Format(entry)
	if err != nil {
		return nil, err
	}

	if f.AddSpace {
		return append(formatted, '\n'), nil
	}
	return formatted, nil
}

func source(file string, line int) string {
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
