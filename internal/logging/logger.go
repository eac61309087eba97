// Package logging provides the shared structured logging setup used across
// the compositor's components.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger pre-configured for a named component. Output
// is JSON to stdout. Log level is controlled by the LOG_LEVEL env var
// (default: info). The component name is embedded in every log line.
func New(component string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	levelStr := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("component", component)
}
