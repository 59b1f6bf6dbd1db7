package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// A Level is the importance or severity of a log event.
// The higher the level, the more important or severe the event.
type Level int

// Names for common log levels.
const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelOff   Level = 12
)

// ParseLevel converts a level name into a Level.
// Unknown names resolve to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch {
	case l <= LevelTrace:
		return logrus.TraceLevel
	case l <= LevelDebug:
		return logrus.DebugLevel
	case l <= LevelInfo:
		return logrus.InfoLevel
	case l <= LevelWarn:
		return logrus.WarnLevel
	case l <= LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.PanicLevel
	}
}
