package logger

import (
	"io"
	"os"
	"runtime"

	"github.com/DeRuina/timberjack"
	"github.com/sirupsen/logrus"
)

// Settings configures a logrus logger built by NewLogrus.
type Settings struct {
	// Level is a level name, e.g. "debug". Empty means info.
	Level string `yaml:"level"`
	// Format is either "text" (default) or "json".
	Format string `yaml:"format"`
	// File enables rotating file output in addition to the given writer.
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	// ReportCaller adds the x_file_source field with the call site.
	ReportCaller bool `yaml:"report_caller"`
}

// NewLogrus creates a logrus.Logger configured by the given settings.
// Output goes to out (stdout if nil), and additionally to a rotating file
// when Settings.File is set.
func NewLogrus(settings Settings, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(ParseLevel(settings.Level).logrusLevel())

	if out == nil {
		out = os.Stdout
	}
	if settings.File != "" {
		out = io.MultiWriter(out, &timberjack.Logger{
			Filename:   settings.File,
			MaxSize:    settings.MaxSize,
			MaxBackups: settings.MaxBackups,
			MaxAge:     settings.MaxAge,
		})
	}
	l.SetOutput(out)

	var underlying logrus.Formatter
	if settings.Format == "json" {
		underlying = &logrus.JSONFormatter{
			CallerPrettyfier: noCaller,
		}
	} else {
		underlying = &logrus.TextFormatter{
			FullTimestamp:    true,
			CallerPrettyfier: noCaller,
		}
	}
	l.SetFormatter(&SourceFormatter{Underlying: underlying})
	l.SetReportCaller(settings.ReportCaller)

	return l
}

func noCaller(_ *runtime.Frame) (string, string) {
	return "", ""
}
