package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger at the given level. Unknown levels fall
// back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.Level = lvl
	return log
}

// Discard returns a logger that drops everything; used by tests and by
// components constructed without a logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// Component scopes a logger to one component.
func Component(log logrus.FieldLogger, name string) logrus.FieldLogger {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}
