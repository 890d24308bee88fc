package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is attached to every log entry
const ServiceName = "permit-flow"

// Log is the process-wide structured logger
var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.Out = os.Stdout
	Log.Formatter = &logrus.JSONFormatter{}
	Log.AddHook(&DefaultFieldsHook{})
}

// Configure adjusts the level and format for the given environment.
// Development gets a human-readable text formatter.
func Configure(environment, level string) {
	if environment != "production" {
		Log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		Log.WithField("level", level).Warn("unknown log level, keeping info")
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = ServiceName
	if host, err := os.Hostname(); err == nil {
		e.Data["instance"] = host
	}
	return nil
}
