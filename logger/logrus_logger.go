package logger

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusLogger implements the [Logger] interface on top of a logrus entry.
// Key/value args become logrus fields; a dangling key is stored under
// "!BADKEY", the way log/slog reports it.
type LogrusLogger struct {
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrusLogger returns a new [LogrusLogger] writing to l.
// It will panic if the logger is nil.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		panic("nil logger")
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// With returns a LogrusLogger that adds the given key/value pairs to every
// record.
func (l *LogrusLogger) With(args ...any) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithFields(fields(args))}
}

// Trace logs at the trace level.
func (l *LogrusLogger) Trace(msg string, args ...any) {
	l.log(logrus.TraceLevel, msg, args)
}

// Debug logs at the debug level.
func (l *LogrusLogger) Debug(msg string, args ...any) {
	l.log(logrus.DebugLevel, msg, args)
}

// Info logs at the info level.
func (l *LogrusLogger) Info(msg string, args ...any) {
	l.log(logrus.InfoLevel, msg, args)
}

// Warn logs at the warn level.
func (l *LogrusLogger) Warn(msg string, args ...any) {
	l.log(logrus.WarnLevel, msg, args)
}

// Error logs at the error level.
func (l *LogrusLogger) Error(msg string, args ...any) {
	l.log(logrus.ErrorLevel, msg, args)
}

func (l *LogrusLogger) log(level logrus.Level, msg string, args []any) {
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}
	entry := l.entry
	if len(args) > 0 {
		entry = entry.WithFields(fields(args))
	}
	// logrus would report this adapter as the caller.
	if l.entry.Logger.ReportCaller {
		if file, line, ok := callSite(); ok {
			entry = entry.WithField(SourceKey, source(file, line))
		}
	}
	entry.Log(level, msg)
}

var packagePrefix = reflect.TypeOf(LogrusLogger{}).PkgPath() + "."

// callSite returns the first frame outside this package.
func callSite() (string, int, bool) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, packagePrefix) {
			return frame.File, frame.Line, frame.File != ""
		}
		if !more {
			return "", 0, false
		}
	}
}

func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, (len(args)+1)/2)
	n := len(args)
	for i := 0; i < n; i += 2 {
		if i+1 < n {
			f[fmt.Sprint(args[i])] = args[i+1]
		} else {
			f["!BADKEY"] = args[i]
		}
	}
	return f
}
